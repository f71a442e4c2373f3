package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/99minutos/member-portal/internal/client/api"
	"github.com/99minutos/member-portal/internal/client/cli"
	"github.com/99minutos/member-portal/internal/client/session"
)

func main() {
	server := flag.String("server", envOr("PORTAL_SERVER", "http://localhost:8080"), "portal base URL")
	dbPath := flag.String("db", envOr("PORTAL_SESSION_DB", defaultDBPath()), "local session database")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-server URL] [-db PATH] <command> [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *server, *dbPath, flag.Args()); err != nil {
		if errors.Is(err, cli.ErrUnknownCommand) || errors.Is(err, session.ErrLoginRequired) {
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, server, dbPath string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	storage, err := session.OpenSQLite(ctx, dbPath)
	if err != nil {
		return err
	}
	defer storage.Close()

	store := session.NewStore(storage)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	client, err := api.New(server, api.WithToken(store.Token))
	if err != nil {
		return err
	}

	return cli.NewApp(store, client, os.Stdin, os.Stdout).Run(ctx, args)
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "member-portal", "session.db")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

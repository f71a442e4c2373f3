// Package cli is a terminal front end for the member portal. The signed-in
// session is kept in a local SQLite file between invocations.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/99minutos/member-portal/internal/client/api"
	"github.com/99minutos/member-portal/internal/client/forms"
	"github.com/99minutos/member-portal/internal/client/session"
	"github.com/99minutos/member-portal/internal/core/domain"
)

// ErrUnknownCommand is returned by Run for a command it does not know.
var ErrUnknownCommand = errors.New("unknown command")

var (
	errLoginFailed    = errors.New("email or password is incorrect")
	errGoogleResult   = errors.New("could not read the sign-in result, paste the full callback URL or JSON")
	errGoogleRejected = errors.New("the sign-in result was not accepted, try again")
)

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

type App struct {
	store    *session.Store
	client   *api.Client
	in       *bufio.Reader
	out      io.Writer
	commands map[string]command
}

func NewApp(store *session.Store, client *api.Client, in io.Reader, out io.Writer) *App {
	a := &App{store: store, client: client, in: bufio.NewReader(in), out: out}
	a.commands = map[string]command{
		"register": {"create an account", a.Register},
		"login":    {"sign in with email and password", a.Login},
		"logout":   {"sign out and forget the local session", a.Logout},
		"whoami":   {"show the signed-in user: whoami [-sync]", a.WhoAmI},
		"refresh":  {"re-issue the token with current account data", a.Refresh},
		"passwd":   {"change your password", a.ChangePassword},
		"profile":  {"update profile: profile -name NAME | -photo URL", a.Profile},
		"google":   {"sign in with Google: google [login|register]", a.Google},
		"plans":    {"list subscription plans", a.Plans},
		"checkout": {"start a purchase: checkout -plan NAME [-period monthly|annual]", a.Checkout},
		"confirm":  {"apply a paid purchase: confirm TRANSACTION_ID", a.Confirm},
	}
	return a
}

// Run dispatches args[0] to its command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		a.Usage()
		return nil
	}
	cmd, ok := a.commands[args[0]]
	if !ok {
		a.Usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	return cmd.run(ctx, args[1:])
}

func (a *App) Usage() {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "Commands:")
	for _, name := range names {
		fmt.Fprintf(a.out, "  %-9s %s\n", name, a.commands[name].usage)
	}
}

func (a *App) Register(ctx context.Context, _ []string) error {
	name, err := readLine(a.in, a.out, "Name")
	if err != nil {
		return err
	}
	email, err := readLine(a.in, a.out, "Email")
	if err != nil {
		return err
	}
	password, err := readSecret(a.out, "Password")
	if err != nil {
		return err
	}

	form := forms.Registration{Name: name, Email: email, Password: password}
	if err := form.Validate(); err != nil {
		return a.fail(err)
	}

	if _, err := a.client.Register(ctx, name, email, password, ""); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return a.fail(forms.FieldErrors{"email": "Email already exists"})
		}
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "%s successfully registered\n", email)
	return nil
}

func (a *App) Login(ctx context.Context, _ []string) error {
	email, err := readLine(a.in, a.out, "Email")
	if err != nil {
		return err
	}
	password, err := readSecret(a.out, "Password")
	if err != nil {
		return err
	}

	if err := (forms.Login{Email: email, Password: password}).Validate(); err != nil {
		return a.fail(err)
	}

	sess, err := a.client.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return a.fail(errLoginFailed)
		}
		return a.fail(err)
	}

	if err := a.store.SetSession(ctx, sess.User, sess.Token); err != nil {
		return err
	}
	// A password login is not a provider session; drop any earlier Google profile.
	if err := a.store.SetOAuthUser(ctx, nil); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s\n", sess.User.Name)
	return nil
}

// Logout always clears the local session; the server call is only an ack.
func (a *App) Logout(ctx context.Context, _ []string) error {
	redirect, err := a.client.Logout(ctx)
	if err != nil || redirect == "" {
		redirect = session.LoginPath
	}
	if err := a.store.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed out (next: %s)\n", redirect)
	return nil
}

// WhoAmI shows the cached user; -sync re-reads the account from the server
// first. The token is left alone, use refresh to re-issue it.
func (a *App) WhoAmI(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(a.out)
	reload := fs.Bool("sync", false, "reload the account from the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.requireUser()
	if err != nil {
		return err
	}
	if *reload {
		fresh, err := a.client.Me(ctx)
		if err != nil {
			return a.fail(err)
		}
		if err := a.store.SetLocalUser(ctx, fresh); err != nil {
			return err
		}
		u = *fresh
	}
	fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
	fmt.Fprintf(a.out, "plan:  %s\n", u.Tier)
	if u.IsAdmin {
		fmt.Fprintln(a.out, "role:  admin")
	}
	if p := a.store.OAuthUser(); p != nil {
		fmt.Fprintf(a.out, "google: %s\n", p.Email)
	}
	return nil
}

func (a *App) Refresh(ctx context.Context, _ []string) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}
	sess, err := a.client.Refresh(ctx)
	if err != nil {
		return a.fail(err)
	}
	return a.store.SetSession(ctx, sess.User, sess.Token)
}

func (a *App) ChangePassword(ctx context.Context, _ []string) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}

	var form forms.ChangePassword
	var err error
	if form.OldPassword, err = readSecret(a.out, "Current password"); err != nil {
		return err
	}
	if form.NewPassword, err = readSecret(a.out, "New password"); err != nil {
		return err
	}
	if form.Confirm, err = readSecret(a.out, "Repeat new password"); err != nil {
		return err
	}
	if err := form.Validate(); err != nil {
		return a.fail(err)
	}

	if err := a.client.ChangePassword(ctx, form.OldPassword, form.NewPassword); err != nil {
		if errors.Is(err, domain.ErrIncorrectOldPassword) {
			return a.fail(forms.FieldErrors{"oldPassword": "Current password is incorrect"})
		}
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

func (a *App) Profile(ctx context.Context, args []string) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}

	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(a.out)
	name := fs.String("name", "", "display name")
	photo := fs.String("photo", "", "photo URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" && *photo == "" {
		fs.Usage()
		return nil
	}

	if *name != "" {
		if err := a.client.UpdateProfile(ctx, api.ProfileUpdate{Name: name}); err != nil {
			return a.fail(err)
		}
	}
	if *photo != "" {
		if err := a.client.ChangePhoto(ctx, *photo); err != nil {
			return a.fail(err)
		}
	}

	// The cached user came from the token; pull the new values back in.
	return a.Refresh(ctx, nil)
}

// Google prints the provider URL, then finishes the sign-in from what the
// browser ended on: the callback URL (state and code) or the JSON the
// callback returned.
func (a *App) Google(ctx context.Context, args []string) error {
	intent := "login"
	if len(args) > 0 {
		intent = args[0]
	}
	if intent != "login" && intent != "register" {
		return fmt.Errorf("intent must be login or register, got %q", intent)
	}
	fmt.Fprintf(a.out, "Open in a browser: %s\n", a.client.GoogleLoginURL(intent))

	line, err := readLine(a.in, a.out, "Paste the callback URL or response")
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	sess, err := a.completeGoogle(ctx, line)
	if err != nil {
		if errors.Is(err, domain.ErrNotRegistered) {
			fmt.Fprintln(a.out, "This Google account hasn't registered yet. Run `google register`.")
			return err
		}
		return a.fail(err)
	}

	if err := a.store.SetOAuthSession(ctx, sess.User, sess.Token, sess.Profile); err != nil {
		return err
	}
	if sess.Created {
		fmt.Fprintf(a.out, "%s successfully registered\n", sess.User.Email)
	}
	fmt.Fprintf(a.out, "Welcome, %s\n", sess.User.Name)
	return nil
}

func (a *App) completeGoogle(ctx context.Context, input string) (*api.OAuthSession, error) {
	input = strings.TrimSpace(input)

	if strings.HasPrefix(input, "{") {
		var sess api.OAuthSession
		if err := json.Unmarshal([]byte(input), &sess); err != nil || sess.Token == "" {
			return nil, errGoogleResult
		}
		// Pasted text is not trusted: the server vouches for the token.
		user, ok, err := a.client.Verify(ctx, sess.Token)
		if err != nil {
			return nil, err
		}
		if !ok || user == nil {
			return nil, errGoogleRejected
		}
		sess.User = *user
		return &sess, nil
	}

	query, err := callbackQuery(input)
	if err != nil {
		return nil, err
	}
	if msg := query.Get("error"); msg != "" {
		return nil, fmt.Errorf("sign-in was cancelled: %s", msg)
	}
	state, code := query.Get("state"), query.Get("code")
	if state == "" || code == "" {
		return nil, errGoogleResult
	}
	return a.client.CompleteGoogle(ctx, state, code)
}

// callbackQuery accepts a full callback URL or just its query string.
func callbackQuery(input string) (url.Values, error) {
	raw := input
	if u, err := url.Parse(input); err == nil && u.RawQuery != "" {
		raw = u.RawQuery
	}
	q, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, errGoogleResult
	}
	return q, nil
}

func (a *App) Plans(ctx context.Context, _ []string) error {
	u, err := a.requireUser()
	if err != nil {
		return err
	}
	cfg, err := a.client.BillingConfig(ctx)
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "Current plan: %s\n", u.Tier)
	fmt.Fprintf(a.out, "Plans (%s):\n", cfg.Environment)
	for _, tier := range sortedKeys(cfg.Prices) {
		fmt.Fprintf(a.out, "  %-18s %s\n", tier, cfg.Prices[tier])
	}
	return nil
}

func (a *App) Checkout(ctx context.Context, args []string) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}

	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(a.out)
	plan := fs.String("plan", "", "plan name, e.g. standard or premium")
	period := fs.String("period", string(domain.PeriodMonthly), "monthly or annual")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tier, err := domain.TierFor(*plan, domain.BillingPeriod(*period))
	if err != nil {
		fs.Usage()
		return a.fail(err)
	}

	co, err := a.client.Checkout(ctx, *plan, *period)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Transaction %s opened for %s (price %s).\n", co.TransactionID, tier, co.PriceID)
	fmt.Fprintf(a.out, "Complete the payment, then run: confirm %s\n", co.TransactionID)
	return nil
}

// Confirm applies a paid transaction and stores the session it returns, so
// the new tier is visible without signing in again.
func (a *App) Confirm(ctx context.Context, args []string) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(a.out, "usage: confirm TRANSACTION_ID")
		return domain.ErrInvalidInput
	}

	sess, err := a.client.ConfirmPayment(ctx, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotCompleted) {
			fmt.Fprintln(a.out, "Payment is not completed yet. Finish the checkout and try again.")
			return err
		}
		return a.fail(err)
	}

	if err := a.store.SetSession(ctx, sess.User, sess.Token); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Your plan is now %s\n", sess.User.Tier)
	return nil
}

func (a *App) requireUser() (domain.SanitizedUser, error) {
	u, err := a.store.RequireUser()
	if err != nil {
		fmt.Fprintf(a.out, "Not signed in. Run `login` first.\n")
		return u, err
	}
	return u, nil
}

// fail prints a user-facing message for err and returns it.
func (a *App) fail(err error) error {
	var fe forms.FieldErrors
	switch {
	case errors.As(err, &fe):
		for _, field := range sortedKeys(fe) {
			fmt.Fprintf(a.out, "  %s: %s\n", field, fe[field])
		}
	case errors.Is(err, domain.ErrUnavailable):
		fmt.Fprintln(a.out, "Something went wrong. Try again.")
	default:
		fmt.Fprintln(a.out, err.Error())
	}
	return err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

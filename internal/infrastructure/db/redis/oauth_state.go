package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// OAuthStateStore keeps one-time OAuth state values until the callback
// consumes them or they expire.
// Key format: oauth:state:<state>
type OAuthStateStore struct {
	client *redis.Client
}

func NewOAuthStateStore(client *redis.Client) *OAuthStateStore {
	return &OAuthStateStore{client: client}
}

func (s *OAuthStateStore) Save(ctx context.Context, state string, intent ports.OAuthIntent, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKey(state), string(intent), ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume reads and deletes the state in one round trip so a callback can
// only be replayed once.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (ports.OAuthIntent, error) {
	v, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrInvalidOAuthState
		}
		return "", fmt.Errorf("consume oauth state: %w", err)
	}
	return ports.OAuthIntent(v), nil
}

func stateKey(state string) string {
	return "oauth:state:" + state
}

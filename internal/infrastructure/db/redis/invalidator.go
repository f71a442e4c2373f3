package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// InvalidationChannel carries the paths of views whose cached render is stale.
const InvalidationChannel = "views:invalidate"

// ViewInvalidator publishes view paths for any cache or SSR layer subscribed
// to InvalidationChannel.
type ViewInvalidator struct {
	client  *redis.Client
	channel string
}

func NewViewInvalidator(client *redis.Client) *ViewInvalidator {
	return &ViewInvalidator{client: client, channel: InvalidationChannel}
}

func (v *ViewInvalidator) Invalidate(ctx context.Context, path string) error {
	if err := v.client.Publish(ctx, v.channel, path).Err(); err != nil {
		return fmt.Errorf("publish invalidation %s: %w", path, err)
	}
	return nil
}

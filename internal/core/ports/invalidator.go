package ports

import "context"

// Paths whose cached views depend on user data.
const (
	ViewHome    = "/"
	ViewProfile = "/profile"
)

// ViewInvalidator signals rendering layers that a cached view is stale.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, path string) error
}

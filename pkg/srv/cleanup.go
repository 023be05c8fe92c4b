package srv

import "context"

// cleanupService implements Service interface.
type cleanupService struct {
	cleanup func(ctx context.Context) error
}

func (c *cleanupService) Start(ctx context.Context) error {
	// No-op for a cleanup-only service
	return nil
}

func (c *cleanupService) Shutdown(ctx context.Context) error {
	if c.cleanup != nil {
		return c.cleanup(ctx)
	}
	return nil
}

// NewCleanup wraps a closer such as (*sql.DB).Close.
func NewCleanup(fn func() error) Service {
	return &cleanupService{cleanup: func(context.Context) error { return fn() }}
}

// NewContextCleanup wraps a shutdown func that honours the shutdown deadline.
func NewContextCleanup(fn func(ctx context.Context) error) Service {
	return &cleanupService{cleanup: fn}
}

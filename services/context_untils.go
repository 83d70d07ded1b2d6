package services

import (
	"context"
	"time"
)

// sideEffectTimeout bounds post-commit work (counters, archive writes,
// notifications) detached from the request.
const sideEffectTimeout = 30 * time.Second

// detachedContext keeps ctx's values but not its cancellation, and gives the
// work its own deadline.
func detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}

package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/newsbell/app/feed"
)

// Paced spaces out notifications so a large cycle does not flood the desktop.
type Paced struct {
	next    Dispatcher
	limiter *rate.Limiter
}

// NewPaced allows a burst of burst notifications, then one per interval.
// A non-positive interval disables pacing.
func NewPaced(next Dispatcher, interval time.Duration, burst int) *Paced {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Paced{
		next:    next,
		limiter: rate.NewLimiter(limit, max(burst, 1)),
	}
}

func (p *Paced) Notify(ctx context.Context, item feed.NewsItem) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return &DispatchError{ItemID: item.ID, Err: fmt.Errorf("rate limiter: %w", err)}
	}
	return p.next.Notify(ctx, item)
}

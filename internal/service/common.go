package service

import (
	"commudev_backend/internal/util"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

// stamp normalizes a clock reading to what the database stores.
func stamp(now func() time.Time) time.Time {
	if now == nil {
		now = utcNow
	}
	return now().UTC().Truncate(time.Millisecond)
}

func requireCaller(id uint) error {
	if id == 0 {
		return util.ErrUnauthorized
	}
	return nil
}

// notFound maps gorm's missing-row error onto the domain error.
func notFound(err error, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return err
}

type commitHooksKey struct{}

// commitHooks collects side effects that may only happen once the
// surrounding transaction has committed.
type commitHooks struct {
	fns []func()
}

func withCommitHooks(ctx context.Context) (context.Context, *commitHooks) {
	h := &commitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, h), h
}

// afterCommit queues fn on the hooks carried by ctx. Without hooks there is
// no enclosing transaction and fn runs right away.
func afterCommit(ctx context.Context, fn func()) {
	if h, ok := ctx.Value(commitHooksKey{}).(*commitHooks); ok {
		h.fns = append(h.fns, fn)
		return
	}
	fn()
}

func (h *commitHooks) run() {
	for _, fn := range h.fns {
		fn()
	}
	h.fns = nil
}

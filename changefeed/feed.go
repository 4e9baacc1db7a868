package changefeed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/goforj/attrcache"
)

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the logger used for handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) {
		f.logger = logger
	}
}

type subscription struct {
	id      uint64
	handler attrcache.ChangeHandler
}

// Feed fans committed changes out to subscribed handlers, synchronously and
// in subscription order.
type Feed struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	logger *slog.Logger
}

// New returns an empty feed.
func New(opts ...Option) *Feed {
	f := &Feed{}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	return f
}

// Subscribe implements attrcache.ChangeNotifier.
func (f *Feed) Subscribe(handler attrcache.ChangeHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.subs = slices.DeleteFunc(f.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

// Len reports the number of active subscriptions.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Publish dispatches a commit of fields on subject.
func (f *Feed) Publish(ctx context.Context, subject attrcache.Subject, fields ...string) error {
	return f.Dispatch(ctx, NewCommit(subject, fields...))
}

// Dispatch delivers change to every handler. All handlers run even when some
// fail; their errors are joined.
func (f *Feed) Dispatch(ctx context.Context, change attrcache.Change) error {
	f.mu.RLock()
	subs := slices.Clone(f.subs)
	f.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler(ctx, change); err != nil {
			f.logger.WarnContext(ctx, "changefeed: handler failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ attrcache.ChangeNotifier = (*Feed)(nil)

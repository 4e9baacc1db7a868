package attrcache

import (
	"context"
	"fmt"
)

// Change describes one committed change to a subject.
type Change interface {
	Subject() Subject
	Changed(field string) bool
}

// ChangeHandler reacts to a committed change.
type ChangeHandler func(ctx context.Context, change Change) error

// ChangeNotifier is the subject type's post-commit notification channel.
// Handlers must only be invoked after the change is durably committed.
type ChangeNotifier interface {
	// Subscribe registers handler and returns a function that removes it.
	Subscribe(handler ChangeHandler) (cancel func())
}

type hookKey struct {
	attribute string
	field     string
}

// wireHookLocked subscribes one eviction hook for (attribute, field) unless
// the pair already has one. Callers hold r.mu.
func (r *Registry) wireHookLocked(attribute, field string) {
	key := hookKey{attribute: attribute, field: field}
	if _, ok := r.hooks[key]; ok {
		return
	}
	r.hooks[key] = r.notifier.Subscribe(r.evictionHook(attribute, field))
	r.logger.Debug("attrcache: invalidation hook wired",
		"serializer", r.name, "attribute", attribute, "field", field)
}

func (r *Registry) evictionHook(attribute, field string) ChangeHandler {
	return func(ctx context.Context, change Change) error {
		if change == nil || !change.Changed(field) {
			return nil
		}
		subject := change.Subject()
		if isNilSubject(subject) {
			return nil
		}
		key := r.keyer.Key(TypeName(subject), subject.SubjectID(), attribute)
		if err := r.backend.Delete(ctx, key); err != nil {
			r.logger.WarnContext(ctx, "attrcache: eviction failed",
				"serializer", r.name, "attribute", attribute, "field", field, "key", key, "error", err)
			return fmt.Errorf("evict %s: %w", key, err)
		}
		r.logger.DebugContext(ctx, "attrcache: evicted",
			"serializer", r.name, "attribute", attribute, "field", field, "key", key)
		return nil
	}
}

// HookCount reports how many (attribute, field) hooks are subscribed.
func (r *Registry) HookCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// Close cancels every invalidation hook. Further declarations fail; cached
// values can still be resolved but are no longer evicted on change.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for _, cancel := range r.hooks {
		if cancel != nil {
			cancel()
		}
	}
	return nil
}

// Package attrcache caches expensive serializer attributes per subject.
//
// A Builder declares one caching policy per output attribute and produces a
// Registry. A Serializer binds one subject to that registry and resolves each
// attribute through a Backend, which either returns the cached value or runs
// the attribute's compute function and stores the result.
//
// Four declaration kinds exist:
//
//	b := attrcache.NewBuilder("UserSerializer",
//		attrcache.WithBackend(attrcache.NewStoreBackend(attrcache.NewMemoryStore(ctx))),
//		attrcache.WithNotifier(userChanges),
//	)
//	_ = b.Columns("id", "email")              // cached until the field changes
//	_ = b.Constant("created_at")              // cached forever
//	_ = b.VolatileFunc("now", nowFn)          // never cached
//	_ = b.Computed("active", activeFn,        // cached with explicit triggers
//		attrcache.DependsOn("last_login_at"),
//		attrcache.RecomputeIf(isStale),
//		attrcache.ExpiresIn(time.Hour),
//	)
//	reg, err := b.Build()
//
// Cached values for columns and DependsOn fields are evicted by hooks the
// registry subscribes on the subject type's ChangeNotifier; each
// (attribute, field) pair is subscribed at most once.
//
// Declaring the same attribute twice merges the policies: recompute
// predicates accumulate, while the compute function and expiry of the later
// declaration replace the earlier ones.
package attrcache

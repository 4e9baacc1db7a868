// Package changefeed provides an in-process attrcache.ChangeNotifier.
//
// Persistence code publishes after a successful commit:
//
//	users := changefeed.New()
//	// ... declare serializers with attrcache.WithNotifier(users) ...
//	if err := tx.Commit(); err == nil {
//		_ = users.Publish(ctx, user, "email", "name")
//	}
package changefeed

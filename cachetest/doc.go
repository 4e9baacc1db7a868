// Package cachetest provides reusable contract tests for cachecore.Store
// implementations.
//
// Example pattern (driver test):
//
//	func TestRedisStoreContract(t *testing.T) {
//		client := newTestRedisClient(t)
//		store := rediscache.New(rediscache.Config{
//			BaseConfig: cachecore.BaseConfig{Prefix: "test"},
//			Client:     client,
//		})
//
//		// Namespace keys per test and tune TTL waits for backend semantics as needed.
//		cachetest.RunStoreContract(t, store, cachetest.Options{
//			CaseName: t.Name(),
//			TTL:      time.Second,
//			TTLWait:  1500 * time.Millisecond,
//		})
//	}
package cachetest

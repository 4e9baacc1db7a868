package cachecore

// BaseConfig contains shared, backend-agnostic driver configuration.
type BaseConfig struct {
	// Prefix scopes keys on shared backends so several applications can
	// share one redis database, SQL table or KV bucket.
	Prefix string
}

// DefaultPrefix is applied by drivers when BaseConfig.Prefix is empty.
const DefaultPrefix = "app"

package attrcache

import "github.com/goforj/attrcache/cachecore"

// Driver identifies cache backend.
type Driver = cachecore.Driver

const (
	DriverNull   = cachecore.DriverNull
	DriverMemory = cachecore.DriverMemory
	DriverDynamo = cachecore.DriverDynamo
	DriverSQL    = cachecore.DriverSQL
	DriverRedis  = cachecore.DriverRedis
	DriverNATS   = cachecore.DriverNATS
)

package memory

import (
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
)

type WeatherCache struct {
	cache *cache.Cache
}

// NewWeatherCache keeps forecasts for ttl and purges expired entries every 2*ttl.
func NewWeatherCache(ttl time.Duration) *WeatherCache {
	return &WeatherCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *WeatherCache) Save(key string, payload json.RawMessage) {
	r.cache.Set(key, payload, cache.DefaultExpiration)
}

func (r *WeatherCache) Get(key string) (json.RawMessage, bool) {
	if x, found := r.cache.Get(key); found {
		return x.(json.RawMessage), true
	}
	return nil, false
}

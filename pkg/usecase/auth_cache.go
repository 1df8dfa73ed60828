package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/m-mizutani/goerr/v2"
)

const (
	keyCacheTTL = time.Hour
)

type cachedKeySet struct {
	set       jwk.Set
	expiresAt time.Time
}

// keyCache keeps fetched JWK sets so that logins do not hit the identity
// provider every time.
type keyCache struct {
	cache sync.Map
}

func newKeyCache() *keyCache {
	return &keyCache{}
}

func (c *keyCache) get(ctx context.Context, url string) (jwk.Set, error) {
	if val, ok := c.cache.Load(url); ok {
		cached := val.(*cachedKeySet)
		if time.Now().Before(cached.expiresAt) {
			return cached.set, nil
		}
		c.cache.Delete(url)
	}

	set, err := jwk.Fetch(ctx, url)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch public keys", goerr.V("jwks_uri", url))
	}

	c.cache.Store(url, &cachedKeySet{
		set:       set,
		expiresAt: time.Now().Add(keyCacheTTL),
	})
	return set, nil
}

package aa

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/common"
)

// CachedFactory memoizes GetAddress. A factory maps (owner, salt) to the same
// address forever, so entries only leave the cache through eviction.
type CachedFactory struct {
	*Factory
	cache *bigcache.BigCache
}

func NewAddressCache(ctx context.Context) (*bigcache.BigCache, error) {
	return bigcache.New(ctx, bigcache.Config{
		// number of shards (must be a power of 2)
		Shards: 64,

		LifeWindow:  24 * time.Hour,
		CleanWindow: 10 * time.Minute,

		MaxEntriesInWindow: 10000,

		// one 20 byte address per entry
		MaxEntrySize: 32,

		// value in MB
		HardMaxCacheSize: 16,
	})
}

func NewCachedFactory(f *Factory, cache *bigcache.BigCache) *CachedFactory {
	return &CachedFactory{Factory: f, cache: cache}
}

func addressCacheKey(factory, owner common.Address, salt *big.Int) string {
	if salt == nil {
		salt = defaultSalt
	}
	return fmt.Sprintf("aa:%s:%s:%s", factory.Hex(), owner.Hex(), salt.Text(16))
}

func (c *CachedFactory) GetAddress(ctx context.Context, owner common.Address, salt *big.Int) (common.Address, error) {
	key := addressCacheKey(c.Address(), owner, salt)
	if data, err := c.cache.Get(key); err == nil && len(data) == common.AddressLength {
		return common.BytesToAddress(data), nil
	}

	addr, err := c.Factory.GetAddress(ctx, owner, salt)
	if err != nil {
		return common.Address{}, err
	}

	// Ignore cache errors - caching is not critical
	c.cache.Set(key, addr.Bytes())
	return addr, nil
}

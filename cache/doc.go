// Package cache provides exact-key caching for the Beluga AI framework.
// It defines the Cache interface for key-value storage with TTL support and a
// registry for pluggable cache backends. Lookups match keys exactly; the
// package has no embedding-based or similarity lookup.
//
// # Cache Interface
//
// The Cache interface provides four operations:
//
//   - Get retrieves a value by key, returning (value, found, error).
//   - Set stores a value with a key and TTL.
//   - Delete removes a key from the cache.
//   - Clear removes all entries.
//
// # Registry
//
// Cache backends register via the standard Beluga registry pattern. Import a
// provider package for side-effect registration, then create instances via New.
//
// # Usage
//
// Exact caching with the in-memory provider:
//
//	import _ "github.com/lookatitude/simba/cache/providers/inmemory"
//
//	c, err := cache.New("inmemory", cache.Config{
//	    TTL:     5 * time.Minute,
//	    MaxSize: 1000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = c.Set(ctx, "key", "value", 10*time.Minute)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	val, ok, err := c.Get(ctx, "key")
package cache

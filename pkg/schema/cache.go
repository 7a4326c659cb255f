package schema

import (
	"flag"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheConfig configures the schema cache.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// RegisterFlags adds the flags required to config this to the given FlagSet.
func (cfg *CacheConfig) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&cfg.Size, "schema.cache-size", 1024, "Number of table schemas to cache. 0 disables the cache.")
	f.DurationVar(&cfg.TTL, "schema.cache-ttl", time.Minute, "How long a cached table schema stays valid.")
}

type cachedLookup struct {
	next  Lookup
	cache *expirable.LRU[string, []Column]

	hits, misses prometheus.Counter
}

// NewCachedLookup wraps next with an expiring LRU cache keyed by table. Every
// lookup returns a fresh ColumnsMap, so callers keep sole ownership of it.
func NewCachedLookup(cfg CacheConfig, next Lookup, reg prometheus.Registerer) Lookup {
	if cfg.Size <= 0 {
		return next
	}
	return &cachedLookup{
		next:  next,
		cache: expirable.NewLRU[string, []Column](cfg.Size, nil, cfg.TTL),
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cassbridge",
			Name:      "schema_cache_hits_total",
			Help:      "Total number of table schema lookups served from cache.",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cassbridge",
			Name:      "schema_cache_misses_total",
			Help:      "Total number of table schema lookups that went to the cluster.",
		}),
	}
}

func (c *cachedLookup) Lookup(src Source, keyspace, table string) (*ColumnsMap, error) {
	key := keyspace + "." + table
	if columns, ok := c.cache.Get(key); ok {
		c.hits.Inc()
		return NewColumnsMap(keyspace, table, columns), nil
	}
	c.misses.Inc()

	m, err := c.next.Lookup(src, keyspace, table)
	if err != nil {
		return nil, err
	}
	columns := make([]Column, m.Len())
	copy(columns, m.Columns())
	c.cache.Add(key, columns)
	return m, nil
}

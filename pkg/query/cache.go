package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	redis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/42futures/firm/pkg/graph"
	"github.com/42futures/firm/pkg/observability"
	"github.com/42futures/firm/pkg/value"
)

// CacheConfig tunes ResultCache's two tiers, mirroring the shape of the
// teacher's codegen cache config: an in-process L1 and an optional shared
// Redis L2.
type CacheConfig struct {
	L1Size    int
	TTL       time.Duration
	RedisAddr string // empty disables the L2 tier
	KeyPrefix string
}

// DefaultCacheConfig returns a config with an L1-only cache; callers that
// want a Redis L2 set RedisAddr.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{L1Size: 256, TTL: 5 * time.Minute, KeyPrefix: "firm:query:"}
}

// ResultCache caches Query results keyed by their raw query text, the way
// the teacher's pkg/codegen/cache.MultiLevelCache layers a bounded
// in-memory cache in front of Redis: Get checks L1 then L2, populating L1
// on an L2 hit; Set writes both tiers (spec.md §4.7 result caching,
// §8 scenario 7 cache rotation).
type ResultCache struct {
	config CacheConfig
	l1     *lru.Cache[string, *Result]
	l2     *redis.Client
	log    *logrus.Entry
}

// NewResultCache builds a cache from config. When config.RedisAddr is set
// it pings the server immediately so a misconfigured L2 fails at startup
// rather than on the first query.
func NewResultCache(config CacheConfig) (*ResultCache, error) {
	if config.L1Size <= 0 {
		config.L1Size = 256
	}
	l1, err := lru.New[string, *Result](config.L1Size)
	if err != nil {
		return nil, err
	}

	c := &ResultCache{config: config, l1: l1, log: observability.Discard()}
	if config.RedisAddr != "" {
		c.l2 = redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.l2.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to query cache redis at %s: %w", config.RedisAddr, err)
		}
	}
	return c, nil
}

// SetLogger attaches log for subsequent Get/Set/Invalidate calls. Passing
// nil reverts to a discard logger.
func (c *ResultCache) SetLogger(log *logrus.Entry) {
	c.log = observability.OrDiscard(log)
}

// RedisClient exposes the L2 client for health checks, or nil when no
// Redis tier is configured.
func (c *ResultCache) RedisClient() *redis.Client {
	return c.l2
}

func (c *ResultCache) buildKey(query string) string {
	return c.config.KeyPrefix + query
}

// Get returns the cached result for query, reconstructing any entity
// references in an L2 hit against g (the live graph), not against
// whatever graph produced the cached result originally.
func (c *ResultCache) Get(ctx context.Context, query string, g *graph.Graph) (*Result, bool) {
	key := c.buildKey(query)

	if r, ok := c.l1.Get(key); ok {
		c.log.WithField("query", query).Debug("query cache hit (l1)")
		return r, true
	}
	if c.l2 == nil {
		c.log.WithField("query", query).Debug("query cache miss")
		return nil, false
	}

	raw, err := c.l2.Get(ctx, key).Bytes()
	if err != nil {
		c.log.WithField("query", query).Debug("query cache miss")
		return nil, false
	}
	result, err := decodeResult(raw, g)
	if err != nil {
		c.log.WithField("query", query).WithError(err).Warn("discarding unreadable l2 cache entry")
		return nil, false
	}
	c.l1.Add(key, result)
	c.log.WithField("query", query).Debug("query cache hit (l2)")
	return result, true
}

// Set stores result under query in both tiers.
func (c *ResultCache) Set(ctx context.Context, query string, result *Result) error {
	key := c.buildKey(query)
	c.l1.Add(key, result)

	if c.l2 == nil {
		return nil
	}
	raw, err := encodeResult(result)
	if err != nil {
		return err
	}
	return c.l2.Set(ctx, key, raw, c.config.TTL).Err()
}

// Invalidate drops every cached result, in both tiers. Callers run this
// after rebuilding the graph, since a cached result from the prior graph
// may reference entities that no longer exist.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	c.l1.Purge()
	if c.l2 == nil {
		return nil
	}

	var cursor uint64
	pattern := c.config.KeyPrefix + "*"
	for {
		keys, next, err := c.l2.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.l2.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.log.Info("query result cache invalidated")
	return nil
}

// Close releases the Redis client, if one was configured.
func (c *ResultCache) Close() error {
	if c.l2 == nil {
		return nil
	}
	return c.l2.Close()
}

// resultEnvelope is ResultCache's L2 wire format. Entities are stored as
// FullId strings and re-resolved against the live graph on decode, rather
// than duplicating entity field data into the cache.
type resultEnvelope struct {
	Entities []string       `json:"entities,omitempty"`
	Rows     []rowEnvelope  `json:"rows,omitempty"`
	Scalar   *fieldEnvelope `json:"scalar,omitempty"`
}

type rowEnvelope struct {
	Fields []string                 `json:"fields"`
	Values map[string]fieldEnvelope `json:"values"`
}

type fieldEnvelope struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func encodeResult(r *Result) ([]byte, error) {
	var env resultEnvelope

	for _, e := range r.Entities {
		env.Entities = append(env.Entities, e.Full.String())
	}

	for _, row := range r.Rows {
		re := rowEnvelope{Fields: row.Fields, Values: make(map[string]fieldEnvelope, len(row.Values))}
		for k, v := range row.Values {
			fe, err := encodeFieldEnvelope(v)
			if err != nil {
				return nil, err
			}
			re.Values[k] = fe
		}
		env.Rows = append(env.Rows, re)
	}

	if r.Scalar != nil {
		fe, err := encodeFieldEnvelope(r.Scalar)
		if err != nil {
			return nil, err
		}
		env.Scalar = &fe
	}

	return json.Marshal(env)
}

func decodeResult(data []byte, g *graph.Graph) (*Result, error) {
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	result := &Result{}

	for _, full := range env.Entities {
		id, err := parseFullId(full)
		if err != nil {
			return nil, err
		}
		e, ok := g.Get(id)
		if !ok {
			return nil, fmt.Errorf("cached entity %s no longer exists in the graph", full)
		}
		result.Entities = append(result.Entities, e)
	}

	for _, re := range env.Rows {
		values := make(map[string]value.FieldValue, len(re.Values))
		for k, fe := range re.Values {
			v, err := graph.DecodeFieldValue(fe.Kind, fe.Value)
			if err != nil {
				return nil, err
			}
			values[k] = v
		}
		result.Rows = append(result.Rows, Row{Fields: re.Fields, Values: values})
	}

	if env.Scalar != nil {
		v, err := graph.DecodeFieldValue(env.Scalar.Kind, env.Scalar.Value)
		if err != nil {
			return nil, err
		}
		result.Scalar = v
	}

	return result, nil
}

func encodeFieldEnvelope(v value.FieldValue) (fieldEnvelope, error) {
	raw, err := graph.EncodeFieldValue(v)
	if err != nil {
		return fieldEnvelope{}, err
	}
	return fieldEnvelope{Kind: v.Kind().String(), Value: raw}, nil
}

func parseFullId(s string) (value.FullId, error) {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return value.FullId{}, fmt.Errorf("malformed full id %q", s)
	}
	t, err := value.NewEntityType(s[:i])
	if err != nil {
		return value.FullId{}, err
	}
	id, err := value.NewEntityId(s[i+1:])
	if err != nil {
		return value.FullId{}, err
	}
	return value.FullId{Type: t, ID: id}, nil
}

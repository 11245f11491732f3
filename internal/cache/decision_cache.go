package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/config"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
)

const (
	decisionKeyPrefix     = "decision:"
	decisionListKeyPrefix = decisionKeyPrefix + "list"
	healthKeyPrefix       = decisionKeyPrefix + "health"
	decisionScanBatchSize = 100
)

// DecisionCache is a read-through cache for decision runs. Entries expire
// after the TTL and are dropped wholesale on inventory changes.
type DecisionCache interface {
	GetDecisions(ctx context.Context, opts domain.DecisionOptions) ([]domain.Decision, bool, error)
	SetDecisions(ctx context.Context, opts domain.DecisionOptions, decisions []domain.Decision) error
	GetHealth(ctx context.Context, opts domain.DecisionOptions) (domain.StockHealth, bool, error)
	SetHealth(ctx context.Context, opts domain.DecisionOptions, health domain.StockHealth) error
	InvalidateAll(ctx context.Context) error
}

type redisDecisionCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDecisionCache struct{}

func NewDecisionCache(cfg config.CacheConfig) (DecisionCache, error) {
	if !cfg.Enabled {
		return &noopDecisionCache{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisDecisionCache{
		client: client,
		ttl:    cacheTTL(cfg),
	}, nil
}

func NewNoopDecisionCache() DecisionCache {
	return &noopDecisionCache{}
}

func (c *redisDecisionCache) GetDecisions(ctx context.Context, opts domain.DecisionOptions) ([]domain.Decision, bool, error) {
	var decisions []domain.Decision
	ok, err := c.get(ctx, buildKey(decisionListKeyPrefix, opts), &decisions)
	if err != nil || !ok {
		return nil, false, err
	}
	return decisions, true, nil
}

func (c *redisDecisionCache) SetDecisions(ctx context.Context, opts domain.DecisionOptions, decisions []domain.Decision) error {
	return c.set(ctx, buildKey(decisionListKeyPrefix, opts), decisions)
}

func (c *redisDecisionCache) GetHealth(ctx context.Context, opts domain.DecisionOptions) (domain.StockHealth, bool, error) {
	var health domain.StockHealth
	ok, err := c.get(ctx, buildKey(healthKeyPrefix, opts), &health)
	if err != nil || !ok {
		return domain.StockHealth{}, false, err
	}
	return health, true, nil
}

func (c *redisDecisionCache) SetHealth(ctx context.Context, opts domain.DecisionOptions, health domain.StockHealth) error {
	return c.set(ctx, buildKey(healthKeyPrefix, opts), health)
}

func (c *redisDecisionCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, decisionKeyPrefix, decisionScanBatchSize)
}

func (c *redisDecisionCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode decision cache %s: %w", key, err)
	}
	return true, nil
}

func (c *redisDecisionCache) set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode decision cache %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopDecisionCache) GetDecisions(ctx context.Context, opts domain.DecisionOptions) ([]domain.Decision, bool, error) {
	return nil, false, nil
}

func (n *noopDecisionCache) SetDecisions(ctx context.Context, opts domain.DecisionOptions, decisions []domain.Decision) error {
	return nil
}

func (n *noopDecisionCache) GetHealth(ctx context.Context, opts domain.DecisionOptions) (domain.StockHealth, bool, error) {
	return domain.StockHealth{}, false, nil
}

func (n *noopDecisionCache) SetHealth(ctx context.Context, opts domain.DecisionOptions, health domain.StockHealth) error {
	return nil
}

func (n *noopDecisionCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildKey(prefix string, opts domain.DecisionOptions) string {
	return fmt.Sprintf("%s:%s", prefix, optionsHash(opts))
}

// optionsHash expects options already normalized by the engine, so that an
// omitted value and its default share an entry.
func optionsHash(opts domain.DecisionOptions) string {
	useAI := "default"
	if opts.UseAI != nil {
		useAI = strconv.FormatBool(*opts.UseAI)
	}

	parts := []string{
		"lookback=" + strconv.Itoa(opts.Lookback),
		"lead_days=" + strconv.Itoa(opts.LeadDays),
		"store=" + strings.TrimSpace(opts.StoreID),
		"details=" + strconv.FormatBool(opts.IncludeDetails),
		"use_ai=" + useAI,
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

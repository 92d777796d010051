package lists

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phishwatch/phishwatch/pkg/urlinfo"
)

// RedisConfig holds the Redis list cache configuration.
type RedisConfig struct {
	RedisURL    string        `json:"redis_url" yaml:"redis_url"`
	KeyPrefix   string        `json:"key_prefix" yaml:"key_prefix"`
	DatabaseNum int           `json:"database_num" yaml:"database_num"`
	EntryTTL    time.Duration `json:"entry_ttl" yaml:"entry_ttl"`
}

// DefaultRedisConfig returns default Redis cache configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		RedisURL:    "redis://localhost:6379",
		KeyPrefix:   "pw:lists",
		DatabaseNum: 0,
		EntryTTL:    24 * time.Hour,
	}
}

// RedisSource serves list lookups from Redis so that multiple service
// instances share one copy of the reference data. URLs and hosts each
// live in a hash of entry to label. Warm populates both from a loaded
// list set.
type RedisSource struct {
	client *redis.Client
	config *RedisConfig
}

// NewRedisSource connects to Redis and verifies the connection.
func NewRedisSource(config *RedisConfig) (*RedisSource, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %v", err)
	}
	opt.DB = config.DatabaseNum
	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("Redis connection failed: %v", err)
	}

	return &RedisSource{client: client, config: config}, nil
}

// Warm replaces the cached lists with the given set.
func (s *RedisSource) Warm(ctx context.Context, lists *Lists) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.urlKey(), s.hostKey())

	if len(lists.URLs) > 0 {
		fields := make(map[string]interface{}, len(lists.URLs))
		for u, label := range lists.URLs {
			fields[u] = string(label)
		}
		pipe.HSet(ctx, s.urlKey(), fields)
		pipe.Expire(ctx, s.urlKey(), s.config.EntryTTL)
	}

	if len(lists.Hosts) > 0 {
		fields := make(map[string]interface{}, len(lists.Hosts))
		for h, label := range lists.Hosts {
			fields[h] = string(label)
		}
		pipe.HSet(ctx, s.hostKey(), fields)
		pipe.Expire(ctx, s.hostKey(), s.config.EntryTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warming list cache: %v", err)
	}
	return nil
}

// MatchURL implements Source.
func (s *RedisSource) MatchURL(ctx context.Context, u string) (Label, bool, error) {
	val, err := s.client.HGet(ctx, s.urlKey(), urlinfo.NormalizeURL(u)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("list cache lookup: %v", err)
	}
	label, ok := ParseLabel(val)
	if !ok {
		return "", false, nil
	}
	return label, true, nil
}

// MatchHost implements Source. Suffix matching is done by probing the
// host and each parent domain, preferring the phishing label when a
// deeper and a shallower entry disagree.
func (s *RedisSource) MatchHost(ctx context.Context, host string) (Label, string, bool, error) {
	host = urlinfo.NormalizeHost(host)
	if host == "" {
		return "", "", false, nil
	}

	var (
		bestLabel Label
		bestHost  string
		found     bool
	)
	labels := strings.Split(host, ".")
	for i := 0; i < len(labels)-1; i++ {
		candidate := strings.Join(labels[i:], ".")
		val, err := s.client.HGet(ctx, s.hostKey(), candidate).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return "", "", false, fmt.Errorf("list cache lookup: %v", err)
		}
		label, ok := ParseLabel(val)
		if !ok {
			continue
		}
		if !found || label == Phish {
			bestLabel, bestHost, found = label, candidate, true
		}
		if label == Phish {
			break
		}
	}
	return bestLabel, bestHost, found, nil
}

// Close releases the Redis connection.
func (s *RedisSource) Close() error {
	return s.client.Close()
}

func (s *RedisSource) urlKey() string  { return s.config.KeyPrefix + ":urls" }
func (s *RedisSource) hostKey() string { return s.config.KeyPrefix + ":hosts" }

var _ Source = (*RedisSource)(nil)

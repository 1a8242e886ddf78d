package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	pkgio "github.com/checklistapp/diagram/pkg/io"
)

// RedisStore keeps versions in Redis under three keys per project:
//
//	<prefix>:<project>:seq       INCR counter for version numbers
//	<prefix>:<project>:versions  hash of version number -> record JSON
//	<prefix>:<project>:current   number of the current version
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisOptions configures [NewRedisStore].
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, defaults to "diagram"
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "diagram"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(projectID, suffix string) string {
	return s.prefix + ":" + projectID + ":" + suffix
}

func (s *RedisStore) Put(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Version, error) {
	n, err := s.client.Incr(ctx, s.key(projectID, "seq")).Result()
	if err != nil {
		return Version{}, fmt.Errorf("next version: %w", err)
	}
	rec := newRecord(projectID, int(n), doc, s.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return Version{}, fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(projectID, "versions"), strconv.FormatInt(n, 10), data)
		pipe.Set(ctx, s.key(projectID, "current"), n, 0)
		return nil
	})
	if err != nil {
		return Version{}, fmt.Errorf("store version %d: %w", n, err)
	}
	return rec.Version, nil
}

func (s *RedisStore) Current(ctx context.Context, projectID string) (Record, error) {
	n, err := s.client.Get(ctx, s.key(projectID, "current")).Int()
	if errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read current: %w", err)
	}
	return s.Get(ctx, projectID, n)
}

func (s *RedisStore) Get(ctx context.Context, projectID string, version int) (Record, error) {
	data, err := s.client.HGet(ctx, s.key(projectID, "versions"), strconv.Itoa(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("project %s version %d: %w", projectID, version, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read version %d: %w", version, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse version %d: %w", version, err)
	}
	return rec, nil
}

func (s *RedisStore) List(ctx context.Context, projectID string) ([]Version, error) {
	all, err := s.client.HGetAll(ctx, s.key(projectID, "versions")).Result()
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	out := make([]Version, 0, len(all))
	for field, data := range all {
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("parse version %s: %w", field, err)
		}
		out = append(out, rec.Version)
	}
	slices.SortFunc(out, func(a, b Version) int { return a.Number - b.Number })
	return out, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)

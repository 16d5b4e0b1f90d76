package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/rules/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "rules:"

// Variable keys and the name index live in separate namespaces under the
// prefix, so no variable name can collide with the index.
const (
	variableSpace = "var:"
	indexName     = "index"
)

// noExpiry is the index score of variables saved without a TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.VariableStore using Redis.
// Variables are stored as JSON {name, type, value}; a sorted set indexes
// the names by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration of saved variables.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(name string) string {
	return s.prefix + variableSpace + name
}

func (s *Store) indexKey() string {
	return s.prefix + indexName
}

// Save writes the variable and indexes its name in one pipeline.
func (s *Store) Save(ctx context.Context, v domain.Variable) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal variable %s: %w", v.Name, err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(v.Name), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: v.Name})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a variable.
func (s *Store) Load(ctx context.Context, name string) (domain.Variable, error) {
	val, err := s.client.Get(ctx, s.key(name)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Variable{}, domain.ErrVariableNotFound
		}
		return domain.Variable{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var v domain.Variable
	if err := json.Unmarshal([]byte(val), &v); err != nil {
		return domain.Variable{}, fmt.Errorf("failed to unmarshal variable %s: %w", name, err)
	}
	return v, nil
}

// Delete removes a variable and its index entry.
func (s *Store) Delete(ctx context.Context, name string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(name))
	pipe.ZRem(ctx, s.indexKey(), name)
	_, err := pipe.Exec(ctx)
	return err
}

// List prunes expired index entries and returns the remaining names sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired variables: %w", err)
	}

	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

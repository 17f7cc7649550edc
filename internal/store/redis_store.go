package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streamhook/streamhook/internal/config"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

// DefaultRedisKey holds the document when the URL names no key.
const DefaultRedisKey = "streamhook:config"

// RedisStore shares one document between hosts through a Redis key. Every
// Save is announced on the "<key>:changed" channel so Watch can follow it.
type RedisStore struct {
	client *redis.Client
	key    string
	log    shlog.Logger
}

// NewRedisStore wraps an existing client. An empty key selects DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string, log shlog.Logger) *RedisStore {
	if log == nil {
		panic("RedisStore requires a non-nil logger")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		client: client,
		key:    key,
		log:    log.With("component", "RedisStore", "key", key),
	}
}

// OpenRedisStore connects to a redis:// or rediss:// URL. The optional "key"
// query parameter names the key holding the document.
func OpenRedisStore(ctx context.Context, rawURL string, log shlog.Logger) (*RedisStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, shErrors.NewConfigError("parse redis URL", err)
	}
	query := u.Query()
	key := query.Get("key")
	query.Del("key")
	u.RawQuery = query.Encode()

	opts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, shErrors.NewConfigError("parse redis URL", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, shErrors.NewConfigError(fmt.Sprintf("connect to redis at '%s'", opts.Addr), err)
	}
	return NewRedisStore(client, key, log), nil
}

func (s *RedisStore) channel() string { return s.key + ":changed" }

// Load reads and validates the document.
func (s *RedisStore) Load(ctx context.Context) (*config.Document, error) {
	content, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: redis key %s", ErrNotFound, s.key)
	}
	if err != nil {
		return nil, shErrors.NewConfigError(fmt.Sprintf("read redis key '%s'", s.key), err)
	}
	return config.Load(content, "redis:"+s.key)
}

// Save stores doc and announces the change. Invalid documents are refused.
func (s *RedisStore) Save(ctx context.Context, doc *config.Document) error {
	content, err := encode(doc, "redis:"+s.key)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key, content, 0)
		pipe.Publish(ctx, s.channel(), "saved")
		return nil
	})
	if err != nil {
		return shErrors.NewConfigError(fmt.Sprintf("write redis key '%s'", s.key), err)
	}
	s.log.Infof("Saved configuration (%d global action(s), %d app(s))", len(doc.GlobalEventActions), len(doc.Apps))
	return nil
}

// Watch calls fn with the freshly loaded document after every Save by any
// client, until ctx is done. Documents that fail to load are skipped.
func (s *RedisStore) Watch(ctx context.Context, fn func(*config.Document)) error {
	sub := s.client.Subscribe(ctx, s.channel())
	defer sub.Close()

	// Wait for the subscription to be confirmed so no Save is missed.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return shErrors.NewConfigError(fmt.Sprintf("subscribe to '%s'", s.channel()), err)
	}

	s.log.Debugf("Watching for changes")
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-messages:
			if !ok {
				return nil
			}
			doc, err := s.Load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Warnf("Ignoring change that failed to load: %v", err)
				}
				continue
			}
			fn(doc)
		}
	}
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var (
	_ Store   = (*RedisStore)(nil)
	_ Watcher = (*RedisStore)(nil)
)

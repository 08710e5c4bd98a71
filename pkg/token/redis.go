package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/gatecache/pkg/logger"
)

// Hash fields of a stored token.
const (
	fieldSubject = "sub"
	fieldScope   = "scope"
	fieldExpires = "exp"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "gatecache:token"

// StoreOption configures a RedisStore.
type StoreOption func(*RedisStore)

// WithPrefix sets the key prefix. Tokens live at "<prefix>:<token>".
func WithPrefix(prefix string) StoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *RedisStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// RedisStore validates tokens stored as Redis hashes:
//
//	HSET <prefix>:<token> sub <subject> scope "<scope> <scope>" exp <unix seconds>
//
// Concurrent lookups of the same token share one round-trip.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group
}

// NewRedisStore returns a store reading tokens from client.
func NewRedisStore(client redis.UniversalClient, opts ...StoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultPrefix,
		logger: logger.NewNope(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate looks the token up.
func (s *RedisStore) Validate(ctx context.Context, token string) (Info, error) {
	if token == "" {
		return Info{}, ErrEmptyToken
	}

	v, err, shared := s.group.Do(token, func() (any, error) {
		return s.lookup(ctx, token)
	})
	if err != nil {
		return Info{}, err
	}
	if shared {
		s.logger.DebugContext(ctx, "token lookup shared")
	}
	return v.(Info), nil
}

func (s *RedisStore) lookup(ctx context.Context, token string) (Info, error) {
	fields, err := s.client.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		return Info{}, errors.Join(ErrLookupFailed, err)
	}
	if len(fields) == 0 {
		return Info{}, ErrInvalidToken
	}

	info, err := decode(fields)
	if err != nil {
		s.logger.WarnContext(ctx, "malformed token record", slog.Any("error", err))
		return Info{}, err
	}
	if info.Expired(s.now()) {
		return Info{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	return info, nil
}

// Issue stores info under token. The record expires with the token.
func (s *RedisStore) Issue(ctx context.Context, token string, info Info) error {
	if token == "" {
		return ErrEmptyToken
	}

	key := s.key(token)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, encode(info))
		if !info.ExpiresAt.IsZero() {
			p.ExpireAt(ctx, key, info.ExpiresAt)
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrLookupFailed, err)
	}
	return nil
}

// Revoke deletes token. Revoking an unknown token is not an error.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return errors.Join(ErrLookupFailed, err)
	}
	return nil
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + token
}

func encode(info Info) map[string]any {
	m := map[string]any{
		fieldSubject: info.Subject,
		fieldScope:   strings.Join(info.Scopes, " "),
	}
	if !info.ExpiresAt.IsZero() {
		m[fieldExpires] = strconv.FormatInt(info.ExpiresAt.Unix(), 10)
	}
	return m
}

func decode(fields map[string]string) (Info, error) {
	info := Info{
		Subject: fields[fieldSubject],
		Scopes:  strings.Fields(fields[fieldScope]),
	}
	if info.Subject == "" {
		return Info{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	if exp, ok := fields[fieldExpires]; ok && exp != "" {
		sec, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			return Info{}, fmt.Errorf("%w: bad expiry %q", ErrInvalidToken, exp)
		}
		info.ExpiresAt = time.Unix(sec, 0)
	}
	return info, nil
}

var _ Validator = (*RedisStore)(nil)

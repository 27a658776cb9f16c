package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"room-advisor/internal/models"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("not found")

// SessionRepository keeps per-visitor recommendation state. Entries expire
// after the configured TTL of inactivity.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
}

type MemorySessionRepository struct {
	cache *cache.Cache
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{cache: cache.New(ttl, ttl/2+time.Minute)}
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (*models.Session, error) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	stored, ok := v.(models.Session)
	if !ok {
		return nil, ErrNotFound
	}
	// Callers may mutate the returned session; the cached copy stays intact.
	return copySession(stored), nil
}

func (r *MemorySessionRepository) Save(_ context.Context, session *models.Session) error {
	r.cache.SetDefault(session.ID, *copySession(*session))
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}

func copySession(s models.Session) *models.Session {
	out := s
	if s.Set != nil {
		set := *s.Set
		set.Products = make([]models.ProductRecommendation, len(s.Set.Products))
		for i, p := range s.Set.Products {
			if p.WhyFit != nil {
				p.WhyFit = append(make([]string, 0, len(p.WhyFit)), p.WhyFit...)
			}
			set.Products[i] = p
		}
		out.Set = &set
	}
	return &out
}

const sessionKeyPrefix = "advisor:session:"

type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, ttl: ttl}
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+session.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

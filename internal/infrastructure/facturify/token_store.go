package facturify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claves del token compartido por todo el proceso.
const (
	TokenKey       = "facturify:auth:token"
	TokenExpiryKey = "facturify:auth:token_expiry"
)

// TokenStore caché del bearer de Facturify. La expiración de la clave es la fuente de verdad
// de la vigencia; OriginalExpiry guarda el expires_in con el que se emitió el token.
type TokenStore interface {
	// Get devuelve "" si no hay token vigente.
	Get(ctx context.Context) (string, error)
	// TTL tiempo restante; <= 0 si no hay token.
	TTL(ctx context.Context) (time.Duration, error)
	// OriginalExpiry 0 si no se conoce.
	OriginalExpiry(ctx context.Context) (time.Duration, error)
	Save(ctx context.Context, token string, ttl time.Duration) error
}

// ── Redis ─────────────────────────────────────────────────────────────────────

// RedisTokenStore implementa TokenStore sobre Redis; compartido entre réplicas.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisClient abre y verifica la conexión a partir de REDIS_URL.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: url inválida: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: no se pudo conectar: %w", err)
	}
	return client, nil
}

// NewRedisTokenStore usa un cliente ya abierto; el cierre es responsabilidad del caller.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Get(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, TokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: leer token: %w", err)
	}
	return v, nil
}

func (s *RedisTokenStore) TTL(ctx context.Context) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, TokenKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: ttl del token: %w", err)
	}
	// -1 / -2 llegan como duraciones negativas: sin expiración o sin clave.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisTokenStore) OriginalExpiry(ctx context.Context) (time.Duration, error) {
	v, err := s.client.Get(ctx, TokenExpiryKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: leer expiración original: %w", err)
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, nil
	}
	return time.Duration(secs) * time.Second, nil
}

// Save escribe token y expiración original en un solo MULTI/EXEC.
func (s *RedisTokenStore) Save(ctx context.Context, token string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, TokenKey, token, ttl)
		pipe.Set(ctx, TokenExpiryKey, strconv.Itoa(int(ttl/time.Second)), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: guardar token: %w", err)
	}
	return nil
}

// ── Memoria ───────────────────────────────────────────────────────────────────

// MemoryTokenStore TokenStore de un solo proceso (CLI y tests).
type MemoryTokenStore struct {
	mu        sync.RWMutex
	token     string
	original  time.Duration
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryTokenStore now puede ser nil (time.Now).
func NewMemoryTokenStore(now func() time.Time) *MemoryTokenStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenStore{now: now}
}

func (s *MemoryTokenStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || !s.now().Before(s.expiresAt) {
		return "", nil
	}
	return s.token, nil
}

func (s *MemoryTokenStore) TTL(_ context.Context) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return 0, nil
	}
	ttl := s.expiresAt.Sub(s.now())
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *MemoryTokenStore) OriginalExpiry(_ context.Context) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.now().Before(s.expiresAt) {
		return 0, nil
	}
	return s.original, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.original = ttl
	s.expiresAt = s.now().Add(ttl)
	return nil
}

var (
	_ TokenStore = (*RedisTokenStore)(nil)
	_ TokenStore = (*MemoryTokenStore)(nil)
)

package facturify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
)

const (
	authPath    = "/api/v1/auth"
	refreshPath = "/api/v1/token/refresh"

	maxBodyBytes = 4 << 20
)

// RetryPolicy reintentos exponenciales para errores de red.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultAuthRetry 3 intentos, espera entre 2 s y 10 s.
func DefaultAuthRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: 2 * time.Second, MaxInterval: 10 * time.Second, Multiplier: 2}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Budget peor caso de una operación: todos los intentos agotan perAttempt y entre ellos
// corren las esperas completas del backoff.
func (p RetryPolicy) Budget(perAttempt time.Duration) time.Duration {
	attempts := max(p.MaxAttempts, 1)
	mult := max(p.Multiplier, 1)
	total := time.Duration(attempts) * perAttempt
	wait := p.InitialInterval
	for i := 1; i < attempts; i++ {
		if p.MaxInterval > 0 && wait > p.MaxInterval {
			wait = p.MaxInterval
		}
		total += wait
		wait = time.Duration(float64(wait) * mult)
	}
	return total
}

// RefreshSchedule tiempos del refresco en segundo plano.
type RefreshSchedule struct {
	AfterRenew time.Duration // espera tras obtener o renovar
	MaxSleep   time.Duration // tope de espera con token vigente
	ShortLived time.Duration // tokens emitidos por debajo de esto se renuevan de inmediato
	OnError    time.Duration
}

// DefaultRefreshSchedule valores del proveedor: /auth emite tokens cortos y /token/refresh largos.
func DefaultRefreshSchedule() RefreshSchedule {
	return RefreshSchedule{
		AfterRenew: 60 * time.Second,
		MaxSleep:   300 * time.Second,
		ShortLived: 300 * time.Second,
		OnError:    30 * time.Second,
	}
}

// AuthConfig credenciales y políticas del cliente de autenticación.
type AuthConfig struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	Timeout       time.Duration
	RefreshBuffer time.Duration
	Retry         RetryPolicy
	Schedule      RefreshSchedule
}

// AuthClient mantiene un único bearer válido para Facturify y lo renueva en segundo plano.
// No hay lock alrededor del refresco: dos renovaciones concurrentes son idempotentes y
// gana la última escritura en el TokenStore.
type AuthClient struct {
	cfg        AuthConfig
	httpClient *http.Client
	store      TokenStore
	log        zerolog.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewAuthClient completa valores por omisión de Retry y Schedule.
func NewAuthClient(cfg AuthConfig, store TokenStore, log zerolog.Logger) *AuthClient {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultAuthRetry()
	}
	if cfg.Schedule == (RefreshSchedule{}) {
		cfg.Schedule = DefaultRefreshSchedule()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &AuthClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		log:        log,
	}
}

type tokenEnvelope struct {
	JWT dto.JWTResponse `json:"jwt"`
}

type authErrorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

var errRefreshRejected = errors.New("facturify: refresh rechazado (401)")

// ObtainToken POST /auth con api_key/api_secret.
func (c *AuthClient) ObtainToken(ctx context.Context) (*dto.JWTResponse, error) {
	body, _ := json.Marshal(map[string]string{"api_key": c.cfg.APIKey, "api_secret": c.cfg.APISecret})

	var tok *dto.JWTResponse
	err := backoff.Retry(func() error {
		status, raw, err := c.post(ctx, authPath, body, "")
		if err != nil {
			return err
		}
		switch status {
		case http.StatusOK:
			tok, err = c.save(ctx, raw)
			return backoffPermanent(err)
		case http.StatusUnauthorized:
			msg := decodeAuthError(raw).Message
			return backoff.Permanent(domain.NewAuthError("autenticación fallida: "+msg, nil))
		case http.StatusUnprocessableEntity:
			eb := decodeAuthError(raw)
			parts := make([]string, 0, len(eb.Errors))
			for _, e := range eb.Errors {
				parts = append(parts, e.Field+": "+e.Message)
			}
			return backoff.Permanent(domain.NewAuthError("error de validación: "+strings.Join(parts, ", "), nil))
		default:
			return backoff.Permanent(domain.NewAuthError(fmt.Sprintf("respuesta inesperada de Facturify: %d", status), nil))
		}
	}, c.cfg.Retry.backOff(ctx))
	if err != nil {
		c.log.Error().Err(err).Msg("no se pudo obtener token de Facturify")
		return nil, asAuthError(err)
	}
	c.log.Info().Int("expires_in", tok.ExpiresIn).Msg("token inicial de Facturify obtenido")
	return tok, nil
}

// RefreshToken POST /token/refresh con el bearer actual. Sin token en caché, o si el
// proveedor responde 401, obtiene uno nuevo.
func (c *AuthClient) RefreshToken(ctx context.Context) (*dto.JWTResponse, error) {
	current, err := c.store.Get(ctx)
	if err != nil {
		return nil, domain.NewAuthError("no se pudo leer el token en caché", err)
	}
	if current == "" {
		c.log.Warn().Msg("sin token en caché, se obtiene uno nuevo")
		return c.ObtainToken(ctx)
	}

	var tok *dto.JWTResponse
	err = backoff.Retry(func() error {
		status, raw, err := c.post(ctx, refreshPath, nil, current)
		if err != nil {
			return err
		}
		switch status {
		case http.StatusOK:
			tok, err = c.save(ctx, raw)
			return backoffPermanent(err)
		case http.StatusUnauthorized:
			return backoff.Permanent(errRefreshRejected)
		default:
			return backoff.Permanent(domain.NewAuthError(fmt.Sprintf("respuesta inesperada al renovar token: %d", status), nil))
		}
	}, c.cfg.Retry.backOff(ctx))
	if errors.Is(err, errRefreshRejected) {
		c.log.Warn().Msg("refresh rechazado, se obtiene un token nuevo")
		return c.ObtainToken(ctx)
	}
	if err != nil {
		c.log.Error().Err(err).Msg("no se pudo renovar token de Facturify")
		return nil, asAuthError(err)
	}
	c.log.Info().Int("expires_in", tok.ExpiresIn).Msg("token de Facturify renovado")
	return tok, nil
}

// GetValidToken token en caché si le queda más que el buffer; si no, una renovación.
func (c *AuthClient) GetValidToken(ctx context.Context) (string, error) {
	token, err := c.store.Get(ctx)
	if err != nil {
		return "", domain.NewAuthError("no se pudo leer el token en caché", err)
	}
	if token != "" {
		ttl, err := c.store.TTL(ctx)
		if err != nil {
			return "", domain.NewAuthError("no se pudo leer el TTL del token", err)
		}
		if ttl > c.cfg.RefreshBuffer {
			return token, nil
		}
		c.log.Info().Dur("ttl", ttl).Msg("token por expirar, renovando")
	}
	tok, err := c.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

// TokenStatus estado del token sin tocar la red.
func (c *AuthClient) TokenStatus(ctx context.Context) (dto.TokenState, error) {
	token, err := c.store.Get(ctx)
	if err != nil {
		return dto.TokenState{}, err
	}
	if token == "" {
		return dto.TokenState{NeedsRefresh: true}, nil
	}
	ttl, err := c.store.TTL(ctx)
	if err != nil {
		return dto.TokenState{}, err
	}
	orig, err := c.store.OriginalExpiry(ctx)
	if err != nil {
		return dto.TokenState{}, err
	}
	at := time.Now().Add(ttl).UTC()
	return dto.TokenState{
		HasToken:          true,
		TTLSeconds:        int(ttl / time.Second),
		OriginalExpiresIn: int(orig / time.Second),
		ExpiresAt:         &at,
		NeedsRefresh:      ttl <= c.cfg.RefreshBuffer,
	}, nil
}

// RefreshCycle una vuelta del refresco en segundo plano. Devuelve cuánto esperar antes de
// la siguiente.
func (c *AuthClient) RefreshCycle(ctx context.Context) (time.Duration, error) {
	s := c.cfg.Schedule

	token, err := c.store.Get(ctx)
	if err != nil {
		return s.OnError, err
	}
	ttl, err := c.store.TTL(ctx)
	if err != nil {
		return s.OnError, err
	}
	if token == "" || ttl <= 0 {
		// /auth emite un token corto; se cambia de inmediato por uno largo.
		if _, err := c.ObtainToken(ctx); err != nil {
			return s.OnError, err
		}
		if _, err := c.RefreshToken(ctx); err != nil {
			return s.OnError, err
		}
		return s.AfterRenew, nil
	}

	orig, err := c.store.OriginalExpiry(ctx)
	if err != nil {
		return s.OnError, err
	}
	if orig > 0 && orig < s.ShortLived {
		c.log.Info().Dur("original", orig).Msg("token de vida corta, renovando")
		if _, err := c.RefreshToken(ctx); err != nil {
			return s.OnError, err
		}
		return s.AfterRenew, nil
	}

	if refreshIn := ttl - c.cfg.RefreshBuffer; refreshIn > 0 {
		return min(refreshIn, s.MaxSleep), nil
	}
	if _, err := c.RefreshToken(ctx); err != nil {
		return s.OnError, err
	}
	return s.AfterRenew, nil
}

// Start lanza el refresco en segundo plano. Idempotente.
func (c *AuthClient) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx)

	c.log.Info().Msg("refresco de token de Facturify iniciado")
	return nil
}

// Stop cancela el loop y espera a que termine o a que venza ctx.
func (c *AuthClient) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		c.log.Info().Msg("refresco de token de Facturify detenido")
		return nil
	case <-ctx.Done():
		c.log.Warn().Msg("timeout deteniendo el refresco de token")
		return ctx.Err()
	}
}

// IsRunning indica si el loop está activo.
func (c *AuthClient) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}

func (c *AuthClient) run(ctx context.Context) {
	defer c.wg.Done()
	for {
		wait, err := c.RefreshCycle(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Error().Err(err).Dur("retry_in", wait).Msg("error en el refresco de token")
		} else {
			c.log.Debug().Dur("next_check", wait).Msg("token de Facturify vigente")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// post devuelve error solo por fallas de transporte (reintentables).
func (c *AuthClient) post(ctx context.Context, path string, body []byte, bearer string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, backoff.Permanent(fmt.Errorf("facturify: crear request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("error de red con Facturify")
		return 0, nil, fmt.Errorf("facturify: %s: %w", path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("facturify: leer respuesta: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func (c *AuthClient) save(ctx context.Context, raw []byte) (*dto.JWTResponse, error) {
	var env tokenEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.JWT.Token == "" {
		return nil, domain.NewAuthError("respuesta de token inválida", err)
	}
	ttl := time.Duration(env.JWT.ExpiresIn) * time.Second
	if err := c.store.Save(ctx, env.JWT.Token, ttl); err != nil {
		return nil, domain.NewAuthError("no se pudo guardar el token", err)
	}
	return &env.JWT, nil
}

func decodeAuthError(raw []byte) authErrorBody {
	var eb authErrorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		eb.Message = strings.TrimSpace(string(raw))
	}
	return eb
}

func backoffPermanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// asAuthError los errores de red que agotan reintentos se reportan como AuthError.
func asAuthError(err error) error {
	if errors.Is(err, domain.ErrAuth) {
		return err
	}
	return domain.NewAuthError("error de comunicación con Facturify", err)
}

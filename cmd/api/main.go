package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/cartaporte-api/internal/application/billing"
	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/infrastructure/facturify"
	"github.com/jhoicas/cartaporte-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/cartaporte-api/internal/interfaces/http"
	"github.com/jhoicas/cartaporte-api/pkg/config"
	"github.com/jhoicas/cartaporte-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := migrate(cfg.DB, log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	rdb, err := facturify.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	defer rdb.Close()

	// ── Facturify ──
	fc := cfg.Facturify
	authClient := facturify.NewAuthClient(facturify.AuthConfig{
		BaseURL:       fc.BaseURL,
		APIKey:        fc.APIKey,
		APISecret:     fc.APISecret,
		Timeout:       fc.Timeout,
		RefreshBuffer: fc.TokenRefreshBuffer,
	}, facturify.NewRedisTokenStore(rdb), log.Component("facturify.auth"))

	clientCfg := facturify.ClientConfig{
		BaseURL:      fc.BaseURL,
		Timeout:      fc.Timeout,
		MaxRetries:   fc.MaxRetries,
		RetryBackoff: fc.RetryBackoff,
	}
	facturifyClient := facturify.NewClient(clientCfg, authClient, log.Component("facturify.client"))
	empresaClient := facturify.NewEmpresaClient(clientCfg, authClient, log.Component("facturify.empresa"))
	builder := facturify.NewPayloadBuilder(fc.AccountUUID)

	// ── Casos de uso ──
	validator := dto.NewValidator()
	txRunner := postgres.NewTxRunner(pool)
	cartaPorteUC := billing.NewCreateCartaPorteUseCase(txRunner, facturifyClient, builder, validator, log.Component("billing.carta_porte"))
	partyUC := billing.NewPartyUseCase(txRunner, empresaClient, log.Component("billing.party"))

	// Un timbrado puede renovar el token y luego agotar los reintentos contra el PAC;
	// la respuesta no debe cortarse antes.
	writeTimeout := facturify.DefaultAuthRetry().Budget(fc.Timeout) + clientCfg.RetryBudget() + 10*time.Second

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: writeTimeout,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Carta Porte API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		CartaPorte: cartaPorteUC,
		Clients:    facturifyClient,
		Recipients: partyUC,
		Tokens:     authClient,
		Empresas:   empresaClient,
		Companies:  partyUC,
		Validator:  validator,
		JWTSecret:  cfg.JWT.Secret,
		AppName:    cfg.App.Name,
		Log:        log.Component("http"),
	})

	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: la API queda sin autenticación")
	}

	g, gctx := errgroup.WithContext(ctx)

	if fc.RefreshEnabled {
		if err := authClient.Start(gctx); err != nil {
			log.Fatal().Err(err).Msg("iniciar refresco de token")
		}
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
		return app.Listen(cfg.HTTP.Addr())
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var errs []error
		if authClient.IsRunning() {
			errs = append(errs, authClient.Stop(shutdownCtx))
		}
		errs = append(errs, app.ShutdownWithContext(shutdownCtx))
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	log.Info().Msg("aplicación detenida")
}

func migrate(cfg config.DBConfig, log *logger.Logger) error {
	m, err := postgres.NewMigrator(cfg.ConnectionString(), log.Component("migrate"))
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

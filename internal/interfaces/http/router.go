package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CartaPorte CartaPorteService
	Clients    ProviderClients
	Recipients RecipientLister
	Tokens     TokenManager
	Empresas   EmpresaDirectory
	Companies  CompanySyncer
	Validator  *dto.Validator
	JWTSecret  string
	AppName    string
	Log        zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	api := app.Group("/api/v1", AuthMiddleware(deps.JWTSecret))

	// Con JWT_SECRET vacío no hay scopes que verificar.
	scope := func(allowed ...string) fiber.Handler {
		if deps.JWTSecret == "" {
			return func(c *fiber.Ctx) error { return c.Next() }
		}
		return RequireScope(allowed...)
	}

	// CFDI
	cfdi := api.Group("/cfdi", scope(ScopeCFDI, ScopeAdmin))
	cfdiHandler := NewCFDIHandler(deps.CartaPorte, deps.Validator, deps.Log)
	cfdi.Post("/carta-porte", cfdiHandler.CreateCartaPorte)
	cfdi.Post("/carta-porte/provider-format", cfdiHandler.CreateFromProviderFormat)
	cfdi.Post("/carta-porte/facturify", cfdiHandler.CreateFromProviderFormat)
	cfdi.Get("/:invoice_id", cfdiHandler.GetByID)
	cfdi.Get("/:invoice_id/provider", cfdiHandler.GetProviderInvoice)

	// Clientes
	clients := api.Group("/clients", scope(ScopeCFDI, ScopeAdmin))
	clientHandler := NewClientHandler(deps.Clients, deps.Recipients, deps.Validator, deps.Log)
	clients.Get("/", clientHandler.List)
	clients.Get("/local", clientHandler.ListLocal)

	// Facturify (administración)
	facturifyHandler := NewFacturifyHandler(deps.Tokens, deps.Empresas, deps.Companies, deps.Log)
	auth := api.Group("/facturify/auth", scope(ScopeAdmin))
	auth.Post("/token", facturifyHandler.ObtainToken)
	auth.Post("/token/refresh", facturifyHandler.RefreshToken)
	auth.Get("/token/status", facturifyHandler.TokenStatus)
	auth.Get("/token", facturifyHandler.ValidToken)

	empresa := api.Group("/facturify/empresa", scope(ScopeAdmin))
	empresa.Get("/", facturifyHandler.ListEmpresas)
	empresa.Get("/rfc/:rfc", facturifyHandler.GetEmpresaByRFC)
	empresa.Post("/sync", facturifyHandler.SyncEmpresas)
}

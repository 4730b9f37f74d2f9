package http

import (
	"github.com/gin-gonic/gin"

	connectionUsecases "github.com/lumina-dash/lumina/internal/application/connection/usecases"
	"github.com/lumina-dash/lumina/internal/domain/authflow"
	"github.com/lumina-dash/lumina/internal/domain/connection"
	"github.com/lumina-dash/lumina/internal/infrastructure/config"
	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
	"github.com/lumina-dash/lumina/internal/infrastructure/ratelimit"
	"github.com/lumina-dash/lumina/internal/infrastructure/vault"
	"github.com/lumina-dash/lumina/internal/interfaces/http/handlers"
	"github.com/lumina-dash/lumina/internal/interfaces/http/middleware"
	"github.com/lumina-dash/lumina/internal/interfaces/http/routes"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// RouterDeps holds the infrastructure pieces the HTTP layer is built from.
type RouterDeps struct {
	Config         *config.Config
	Registry       *oauth.Registry
	Codec          *oauth.StateCodec
	Ledger         authflow.StateLedger
	Vault          *vault.CredentialVault
	ConnectionRepo connection.Repository
	CounterStore   ratelimit.CounterStore
	Logger         logger.Interface
}

// Router represents the HTTP router configuration
type Router struct {
	engine *gin.Engine
}

// NewRouter wires use cases, handlers and middleware into a gin engine.
func NewRouter(deps *RouterDeps) *Router {
	cfg := deps.Config
	log := deps.Logger

	clients := &registryResolver{registry: deps.Registry}

	initiateUC := connectionUsecases.NewInitiateAuthorizationUseCase(
		clients, deps.Codec, deps.Ledger, cfg.AuthFlow.StateTTL(), log.Named("initiate"),
	)
	callbackUC := connectionUsecases.NewHandleCallbackUseCase(
		clients, deps.Codec, deps.Ledger, deps.Vault, cfg.AuthFlow.StateTTL(), log.Named("callback"),
	)
	disconnectUC := connectionUsecases.NewDisconnectPlatformUseCase(deps.Vault, log.Named("disconnect"))
	statusUC := connectionUsecases.NewGetConnectionStatusUseCase(deps.ConnectionRepo, log.Named("status"))
	listUC := connectionUsecases.NewListConnectionsUseCase(deps.ConnectionRepo, log.Named("status"))

	connectHandler := handlers.NewConnectHandler(
		initiateUC, callbackUC, disconnectUC, statusUC, listUC,
		cfg.Server.FrontendCallbackURL, log.Named("http"),
	)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, log.Named("auth"))
	rateLimiter := middleware.NewRateLimitMiddleware(
		ratelimit.NewGovernor(deps.CounterStore, cfg.RateLimit), log.Named("ratelimit"),
	)

	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger(log.Named("gin")))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	routes.SetupAuthRoutes(engine, &routes.AuthRouteConfig{
		ConnectHandler: connectHandler,
		AuthMiddleware: authMiddleware,
		RateLimiter:    rateLimiter,
	})

	return &Router{engine: engine}
}

// Engine exposes the underlying gin engine for the HTTP server.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

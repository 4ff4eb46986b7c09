package api

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guild-dashboard/internal/config"
	"guild-dashboard/internal/db"
	"guild-dashboard/internal/discord"
	"guild-dashboard/internal/guildconfig"
	"guild-dashboard/internal/redis"
	"guild-dashboard/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Authenticator runs one full login reconciliation for a callback code.
type Authenticator interface {
	Login(ctx context.Context, code string) (session.Record, error)
}

// AuthURLProvider builds the identity provider's authorize URL.
type AuthURLProvider interface {
	AuthorizeURL(state string) string
}

// Sessions is the session store surface the handlers need.
type Sessions interface {
	Create(ctx context.Context, rec session.Record) (string, error)
	Get(ctx context.Context, id string) (session.Record, error)
	Delete(ctx context.Context, id string) error
	NewState(ctx context.Context) (string, error)
	ConsumeState(ctx context.Context, state string) bool
}

// ConfigStore is the guild-config gateway surface.
type ConfigStore interface {
	Get(ctx context.Context, guildID string) (guildconfig.Config, error)
	SetPrefix(ctx context.Context, guildID, prefix string) (string, error)
	SetCommand(ctx context.Context, guildID, fullName string, enabled bool) error
	SetModule(ctx context.Context, guildID, module string, enabled bool) error
}

type Server struct {
	log      *slog.Logger
	cfg      config.Config
	db       *db.DB
	redis    *redis.Client
	sessions Sessions
	configs  ConfigStore
	auth     Authenticator
	authURL  AuthURLProvider
	gateway  *discord.Gateway
	router   *gin.Engine
}

func NewServer(
	log *slog.Logger,
	cfg config.Config,
	dbConn *db.DB,
	redisClient *redis.Client,
	sessions Sessions,
	configs ConfigStore,
	auth Authenticator,
	authURL AuthURLProvider,
	gateway *discord.Gateway,
) *Server {
	s := &Server{
		log:      log,
		cfg:      cfg,
		db:       dbConn,
		redis:    redisClient,
		sessions: sessions,
		configs:  configs,
		auth:     auth,
		authURL:  authURL,
		gateway:  gateway,
		router:   gin.New(),
	}

	r := s.router
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	r.Use(gin.Recovery())
	r.Use(s.loggingMiddleware())
	r.Use(s.sessionMiddleware())

	r.GET("/", s.root)
	r.GET("/login", s.login)
	r.GET("/logout", s.logout)
	r.GET("/auth/callback", s.authCallback)
	r.GET("/healthz", s.health)

	pages := r.Group("/")
	pages.Use(s.requireSessionPage())
	{
		pages.GET("/guilds", s.guildList)
		pages.GET("/guild/:id", s.guildPage)
	}

	apiGroup := r.Group("/api")
	apiGroup.Use(s.rateLimitMiddleware())
	apiGroup.Use(s.requireSessionJSON())
	{
		apiGroup.POST("/guild/:id/prefix", s.setPrefix)
		apiGroup.POST("/guild/:id/command", s.setCommand)
		apiGroup.POST("/guild/:id/module", s.setModule)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}

package server

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"newsrelay/internal/account"
	"newsrelay/internal/domain"
	"newsrelay/internal/news"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HeadlineFetcher is satisfied by *news.Fetcher.
type HeadlineFetcher interface {
	Headlines(ctx context.Context, q news.Query) (news.Headlines, error)
}

// BatchSummarizer is satisfied by *batch.Orchestrator.
type BatchSummarizer interface {
	Summarize(ctx context.Context, articles []domain.Article, language string) ([]domain.SummarizedArticle, error)
	SummarizeText(ctx context.Context, text, language string) (string, error)
}

// Accounts is satisfied by *account.Service.
type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (domain.Account, error)
	Login(ctx context.Context, email, password string) (account.Session, error)
	Authenticate(ctx context.Context, token string) (domain.Account, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	AllowedOrigins []string
}

type Server struct {
	fetcher  HeadlineFetcher
	batch    BatchSummarizer
	accounts Accounts
	db       Pinger
	cfg      Config
	log      *slog.Logger
}

func New(
	fetcher HeadlineFetcher,
	batch BatchSummarizer,
	accounts Accounts,
	db Pinger,
	cfg Config,
	log *slog.Logger,
) *Server {
	return &Server{
		fetcher:  fetcher,
		batch:    batch,
		accounts: accounts,
		db:       db,
		cfg:      cfg,
		log:      log,
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(s.requestLogger(), gin.Recovery())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", s.health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.GET("/me", s.requireAuth(), s.me)

	protected := api.Group("", s.requireAuth())
	protected.GET("/news/headlines", s.headlines)
	protected.GET("/news/summaries", s.headlineSummaries)
	protected.POST("/news/summaries", s.summarizeArticles)
	protected.POST("/summarize", s.summarizeText)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not_found", "Route not found.")
	})

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}

	return cfg
}

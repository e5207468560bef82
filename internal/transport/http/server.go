package http

import (
	"fmt"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"hermes/config"
	"hermes/internal/port"
	"hermes/internal/search"
	"hermes/internal/usecase"
)

// Server is the serving surface. It is stateless except for the pipeline
// atomic reference and the indexing job state.
type Server struct {
	cfg       *config.Config
	pipeline  atomic.Pointer[search.Pipeline]
	jobs      *usecase.JobManager
	biencoder port.Embedder
	scorer    port.PairScorer
}

// NewServer wires the serving surface. When artifacts already exist the
// pipeline is loaded eagerly; otherwise the server starts without one and
// /reload-index brings it up after a build.
func NewServer(cfg *config.Config, biencoder port.Embedder, scorer port.PairScorer) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		jobs:      usecase.NewJobManager(),
		biencoder: biencoder,
		scorer:    scorer,
	}

	if search.HasArtifacts(cfg.ArtifactsDir) {
		p, err := search.Load(cfg, biencoder, scorer)
		if err != nil {
			return nil, fmt.Errorf("failed to load search pipeline: %w", err)
		}
		s.pipeline.Store(p)
	}

	return s, nil
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.health)
	router.GET("/health", s.health)
	router.GET("/index/check", s.indexCheck)
	router.GET("/index/status", s.indexStatus)
	router.POST("/index", s.indexStart)
	router.POST("/reload-index", s.reloadIndex)
	router.GET("/stats", s.stats)
	router.POST("/search", s.search)

	return router
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	return s.Router().Run(addr)
}

// Pipeline returns the live pipeline, or nil when no index is loaded.
func (s *Server) Pipeline() *search.Pipeline {
	return s.pipeline.Load()
}

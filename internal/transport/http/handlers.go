package http

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"hermes/internal/domain"
	"hermes/internal/search"
)

const noIndexDetail = "No index loaded. Please index a repository first."

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) indexCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"has_index": search.HasArtifacts(s.cfg.ArtifactsDir)})
}

func (s *Server) indexStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.jobs.Status())
}

type indexRequest struct {
	RepoPath string `json:"repo_path"`
}

func (s *Server) indexStart(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RepoPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "repo_path is required"})
		return
	}
	if info, err := os.Stat(req.RepoPath); err != nil || !info.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "repo_path is not a directory"})
		return
	}

	err := s.jobs.Start(req.RepoPath, s.cfg, s.biencoder, nil)
	if err != nil {
		if errors.Is(err, domain.ErrJobInFlight) {
			c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to start indexing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "indexing started for " + req.RepoPath})
}

func (s *Server) reloadIndex(c *gin.Context) {
	if !search.HasArtifacts(s.cfg.ArtifactsDir) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": noIndexDetail})
		return
	}

	p, err := search.Load(s.cfg, s.biencoder, s.scorer)
	if err != nil {
		slog.Error("reload_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to reload index"})
		return
	}

	// In-flight requests keep the pipeline they started with; the old
	// store handle stays open until process exit.
	s.pipeline.Store(p)
	slog.Info("pipeline_reloaded", "n_chunks", p.NChunks())

	c.JSON(http.StatusOK, gin.H{"n_chunks": p.NChunks()})
}

func (s *Server) stats(c *gin.Context) {
	p := s.pipeline.Load()
	if p == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": noIndexDetail})
		return
	}
	c.JSON(http.StatusOK, p.Stats())
}

func (s *Server) search(c *gin.Context) {
	p := s.pipeline.Load()
	if p == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": noIndexDetail})
		return
	}

	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body"})
		return
	}

	resp, err := p.Search(&req)
	if err != nil {
		var verr *search.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"detail": verr.Detail})
		case errors.Is(err, domain.ErrIntegrity):
			slog.Error("integrity_error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "index integrity error"})
		default:
			slog.Error("search_failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "search failed"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

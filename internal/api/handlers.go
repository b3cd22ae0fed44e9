package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ochestra-tech/tablescaler/internal/collector"
	"github.com/ochestra-tech/tablescaler/internal/config"
	"github.com/ochestra-tech/tablescaler/internal/optimization"
	"github.com/ochestra-tech/tablescaler/internal/state"
)

const defaultDecisionLimit = 20

// StatusResponse summarizes the scaler for one table
type StatusResponse struct {
	Table       string                     `json:"table"`
	DryRun      bool                       `json:"dryRun"`
	CheckEvery  string                     `json:"checkEvery"`
	Stats       *state.RunStats            `json:"stats,omitempty"`
	LastOutcome string                     `json:"lastOutcome,omitempty"`
	LastRun     *optimization.HistoryEntry `json:"lastRun,omitempty"`
	Timestamp   time.Time                  `json:"timestamp"`
}

// DecisionsResponse lists recent runs, most recent first
type DecisionsResponse struct {
	Decisions []optimization.HistoryEntry `json:"decisions"`
	Count     int                         `json:"count"`
}

// handleHealthCheck is the liveness probe
func (s *Server) handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getStatus returns run statistics and the last outcome
func (s *Server) getStatus(c *gin.Context) {
	cfg := s.scaler.Config()
	resp := StatusResponse{
		Table:      cfg.TableName,
		DryRun:     cfg.DryRun,
		CheckEvery: cfg.Period().String(),
		Timestamp:  time.Now().UTC(),
	}

	if stats, err := s.scaler.Stats(c.Request.Context()); err != nil {
		s.logger.WithError(err).Warn("Failed to load run stats")
	} else {
		resp.Stats = &stats
	}

	if latest, ok := s.scaler.Latest(); ok {
		resp.LastRun = &latest
		if latest.Succeeded() && latest.Report != nil {
			resp.LastOutcome = latest.Report.Outcome()
		} else {
			resp.LastOutcome = "failed"
		}
	}

	c.JSON(http.StatusOK, resp)
}

// getDecisions returns recent run outcomes
func (s *Server) getDecisions(c *gin.Context) {
	limit := defaultDecisionLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries := s.scaler.History(limit)
	c.JSON(http.StatusOK, DecisionsResponse{Decisions: entries, Count: len(entries)})
}

// getLatestDecision returns the most recent run outcome
func (s *Server) getLatestDecision(c *gin.Context) {
	latest, ok := s.scaler.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded yet"})
		return
	}
	c.JSON(http.StatusOK, latest)
}

// triggerRun performs a scaling run outside the schedule
func (s *Server) triggerRun(c *gin.Context) {
	report, err := s.scaler.RunOnce(c.Request.Context())
	if err != nil {
		c.JSON(statusForRunError(err), gin.H{
			"error":      err.Error(),
			"request_id": c.GetString("request_id"),
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

// getConfiguration returns the active scaling policy
func (s *Server) getConfiguration(c *gin.Context) {
	c.JSON(http.StatusOK, s.scaler.Config())
}

func statusForRunError(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, collector.ErrResourceNotReady):
		return http.StatusConflict
	case errors.Is(err, collector.ErrCollectorFailure), errors.Is(err, optimization.ErrExecutionFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

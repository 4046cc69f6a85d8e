package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GestureLister reads back the gesture journal.
type GestureLister interface {
	Recent(ctx context.Context, limit int) ([]GestureRecord, error)
}

// API serves the HTTP control surface.
type API struct {
	events  chan<- Event
	journal GestureLister // nil when the journal is disabled
	ws      *Server
	logger  *slog.Logger
}

// NewRouter builds the gin engine:
//
//	GET  /api/v1/health
//	GET  /api/v1/state
//	GET  /api/v1/gestures?limit=N
//	POST /api/v1/events
//	GET  /ws/state
func NewRouter(api *API) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", api.health)
		v1.GET("/state", api.state)
		v1.GET("/gestures", api.gestures)
		v1.POST("/events", api.postEvent)
	}
	if api.ws != nil {
		r.GET("/ws/state", gin.WrapF(api.ws.handleStateWS))
	}
	return r
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
		"version": version,
		"host":    readHostStats(),
	}})
}

func (a *API) state(c *gin.Context) {
	snap, err := requestSnapshot(c.Request.Context(), a.events)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": fmt.Sprintf("snapshot: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": snap})
}

func (a *API) gestures(c *gin.Context) {
	if a.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "gesture journal disabled"})
		return
	}
	limit := 50
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	recs, err := a.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": recs})
}

func (a *API) postEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 4096))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	act, err := UnmarshalAction(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if err := submitAction(a.events, act); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": 0, "data": gin.H{"type": act.actionType()}})
}

// runHTTPServer serves handler on port and shuts it down gracefully when ctx
// is canceled.
func runHTTPServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("HTTP server listening", "port", port)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}

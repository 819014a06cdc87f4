// Package api exposes the query pipeline over REST.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/config"
	"github.com/childsafe-za/childsafe-rag/metrics"
	"github.com/childsafe-za/childsafe-rag/schema"
)

const defaultTopK = 5

// Querier answers one query.
type Querier interface {
	Query(ctx context.Context, query string, topK int) (schema.Response, error)
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// QueryResponse wraps the pipeline output.
type QueryResponse struct {
	Results schema.Response `json:"results"`
}

// ErrorResponse is returned for 4xx and 5xx responses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg config.ServerConfig, q Querier) (*gin.Engine, error) {
	metrics.Register()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware(AllowedOrigins(cfg.FrontendURL)))

	limit, err := RateLimitMiddleware(cfg.RateLimitPerMinute)
	if err != nil {
		return nil, err
	}

	h := &handler{q: q}
	r.POST("/query", limit, h.query)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r, nil
}

type handler struct {
	q Querier
}

func (h *handler) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Detail: fmt.Sprintf("Invalid '%s' field: expected %s", typeErr.Field, typeErr.Type),
			})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "Missing 'query' field"})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "Missing 'query' field"})
		return
	}
	topK := defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	resp, err := h.q.Query(c.Request.Context(), req.Query, topK)
	if err != nil {
		logger.Errorf("api: query failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
		return
	}
	logger.Infof("api: mode detected: %s", resp.Mode())
	c.JSON(http.StatusOK, QueryResponse{Results: resp})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, cfg config.ServerConfig, q Querier) error {
	engine, err := NewRouter(cfg, q)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("api: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Infof("api: shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

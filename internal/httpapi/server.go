// Package httpapi exposes the credit ledger, topics and interviews over JSON/HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/internal/observability"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/idempotency"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/ledger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxBodyBytes      = 1 << 20
)

var ErrInvalidDependencies = errors.New("invalid http dependencies")

// Config holds the HTTP-facing settings.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	RequestTimeout time.Duration
	WelcomeCredits ledger.Credits
}

// Dependencies are the services behind the routes. Metrics and Gatherer are optional.
type Dependencies struct {
	Ledger     *ledger.Service
	Interviews *interview.Service
	Workflow   *interview.SelectTopicWorkflow
	Guard      *idempotency.Guard
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Gatherer   prometheus.Gatherer
}

type httpHandler struct {
	cfg        Config
	logger     *zap.Logger
	ledger     *ledger.Service
	interviews *interview.Service
	workflow   *interview.SelectTopicWorkflow
}

// NewRouter wires the gin engine. authenticate must store *sessionvalidator.Claims under
// "auth_claims" or abort the request.
func NewRouter(cfg Config, dependencies Dependencies, authenticate gin.HandlerFunc) (*gin.Engine, error) {
	switch {
	case dependencies.Ledger == nil:
		return nil, fmt.Errorf("%w: ledger service is nil", ErrInvalidDependencies)
	case dependencies.Interviews == nil:
		return nil, fmt.Errorf("%w: interview service is nil", ErrInvalidDependencies)
	case dependencies.Workflow == nil:
		return nil, fmt.Errorf("%w: select-topic workflow is nil", ErrInvalidDependencies)
	case dependencies.Guard == nil:
		return nil, fmt.Errorf("%w: idempotency guard is nil", ErrInvalidDependencies)
	case authenticate == nil:
		return nil, fmt.Errorf("%w: authentication middleware is nil", ErrInvalidDependencies)
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &httpHandler{
		cfg:        cfg,
		logger:     logger,
		ledger:     dependencies.Ledger,
		interviews: dependencies.Interviews,
		workflow:   dependencies.Workflow,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.GinMiddleware(logger, dependencies.Metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if dependencies.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dependencies.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.Use(authenticate)
	api.Use(requestTimeout(cfg.RequestTimeout))
	api.Use(idempotencyMiddleware(dependencies.Guard, logger))

	api.GET("/credits", handler.handleCredits)
	api.POST("/credits/welcome", handler.handleWelcome)
	api.POST("/credits/usage", handler.handleUsage)

	api.GET("/topics", handler.handleListTopics)
	api.POST("/topics", handler.handleCreateTopics)
	api.POST("/topics/:id/select", handler.handleSelectTopic)
	api.POST("/topics/:id/dismiss", handler.handleDismissTopic)

	api.GET("/interviews", handler.handleListInterviews)
	api.GET("/interviews/:id", handler.handleGetInterview)
	api.PUT("/interviews/:id/answers/:number", handler.handleSaveAnswer)
	api.POST("/interviews/:id/complete", handler.handleCompleteInterview)

	return router, nil
}

// Run serves handler until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, listenAddr string, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("interviewd listening", zap.String("addr", listenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if timeout <= 0 {
			ctx.Next()
			return
		}
		requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(requestCtx)
		ctx.Next()
	}
}

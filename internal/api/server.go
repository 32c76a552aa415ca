package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fundscope/internal/catalog"
	"fundscope/internal/eligibility"
	"fundscope/internal/ledger"
	"fundscope/internal/metrics"
	"fundscope/internal/storage"
)

// Server wires the HTTP read surface over the catalog, ledger, and
// eligibility evaluator.
type Server struct {
	engine    *gin.Engine
	catalog   *catalog.Catalog
	ledger    ledger.Reader
	scanner   *ledger.HistoryScanner
	evaluator *eligibility.Evaluator
	runner    *eligibility.Runner
	operator  common.Address
	meta      storage.MetadataStore
	logger    *zap.Logger
}

// Options carries the server's collaborators. scanner, evaluator, meta and m
// may be nil; the corresponding endpoints degrade gracefully.
type Options struct {
	Catalog   *catalog.Catalog
	Ledger    ledger.Reader
	Scanner   *ledger.HistoryScanner
	Evaluator *eligibility.Evaluator
	Runner    *eligibility.Runner
	Operator  common.Address
	Metadata  storage.MetadataStore
	Metrics   *metrics.Metrics
}

// NewServer builds the gin engine and registers routes.
func NewServer(opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		catalog:   opts.Catalog,
		ledger:    opts.Ledger,
		scanner:   opts.Scanner,
		evaluator: opts.Evaluator,
		runner:    opts.Runner,
		operator:  opts.Operator,
		meta:      opts.Metadata,
		logger:    logger,
	}

	engine.GET("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/campaigns", s.handleListCampaigns)
		v1.GET("/campaigns/:id", s.handleGetCampaign)
		v1.GET("/campaigns/:id/eligibility/:address", s.handleEligibility)
		v1.GET("/accounts/:address/donations", s.handleAccountDonations)
		v1.PUT("/campaigns/:id/metadata", s.handlePutMetadata)
		v1.POST("/campaigns/:id/disbursements", s.handleDisburse)
	}

	return s
}

// Run serves HTTP on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"is_connected": s.catalog.IsConnected(),
		"last_block":   s.catalog.LastBlock(),
	})
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"signal-monitor/src/analysis"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// ChartServer
// -----------------------------------------------------------------------------

// ChartServer is the read-only viewer: it polls the shared state and cache,
// serves the latest chart over REST and pushes every poll to websocket clients.
type ChartServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Sources  StatusSources
	Analysis *analysis.AnalysisFacade
	engine   *gin.Engine

	// WebSocket clients, owned by the hub goroutine
	clients    map[*Client]struct{}
	broadcast  chan *models.MChartSnapshot
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	startOnce  sync.Once

	latestState *models.MChartSnapshot
	stateMutex  sync.RWMutex
	connections int
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewChartServer(cfg *models.MConfig, sources StatusSources, log *logger.Logger) *ChartServer {
	if log == nil {
		log = logger.NewLogger(cfg, "ChartServer")
	}
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &ChartServer{
		Config:   cfg,
		Logger:   log,
		Sources:  sources,
		Analysis: analysis.NewAnalysisFacade(cfg, log.Named("analysis")),
		engine:   gin.New(),
		clients:  make(map[*Client]struct{}),
		// Buffered so a slow hub iteration never stalls the poller
		broadcast:  make(chan *models.MChartSnapshot, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery())

	// CORS for a locally served dashboard
	s.engine.Use(cors.New(cors.Config{
		AllowOriginFunc: localOrigin,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", "Accept", "Origin", "Cache-Control"},
		MaxAge:          12 * time.Hour,
	}))

	s.setupRoutes()
	return s
}

// localOrigin accepts dashboards served from this machine.
func localOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:")
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *ChartServer) setupRoutes() {
	s.engine.GET("/api/chart", s.getChart)
	s.engine.GET("/api/status", s.getStatus)
	s.engine.GET("/api/health", s.getHealth)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *ChartServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start launches the hub and the poller. They stop when ctx ends.
func (s *ChartServer) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.Poll()
		go s.handleWebsockets(ctx)
		go s.pollLoop(ctx)
	})
}

// Run starts the background loops and serves HTTP until ctx ends.
func (s *ChartServer) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Viewer.Host, s.Config.Viewer.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting viewer on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// -----------------------------------------------------------------------------

func (s *ChartServer) pollLoop(ctx context.Context) {
	interval := time.Duration(s.Config.Viewer.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll()
		}
	}
}

// Poll builds a fresh snapshot, stores it and queues it for broadcast.
func (s *ChartServer) Poll() *models.MChartSnapshot {
	snap := s.buildSnapshot(time.Now())

	s.stateMutex.Lock()
	s.latestState = snap
	s.stateMutex.Unlock()

	select {
	case s.broadcast <- snap:
	default:
		s.Logger.Debug("Broadcast queue full; dropping snapshot")
	}
	return snap
}

func (s *ChartServer) buildSnapshot(now time.Time) *models.MChartSnapshot {
	st := s.Sources.State.Snapshot()
	var series *models.MCachedSeries
	if s.Sources.Cache != nil {
		series, _ = s.Sources.Cache.Get(st.Instrument)
	}
	return s.Analysis.ChartSnapshot(st, series, now)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *ChartServer) getChart(c *gin.Context) {
	c.JSON(http.StatusOK, s.buildSnapshot(time.Now()))
}

// -----------------------------------------------------------------------------

func (s *ChartServer) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, BuildStatus(s.Sources, time.Now()))
}

// -----------------------------------------------------------------------------

func (s *ChartServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := s.connections
	var timestamp int64
	if s.latestState != nil {
		timestamp = s.latestState.Timestamp
	}
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

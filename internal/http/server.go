// Package http exposes the ledger over a JSON REST API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fondo/internal/cache"
	"fondo/internal/core"
	"fondo/internal/services"
)

const (
	amountCacheSize    = 512
	amountCacheTTL     = 30 * time.Second
	cacheCleanupPeriod = time.Minute
)

// Server is the fondo HTTP API server.
type Server struct {
	svc        *services.LedgerService
	httpServer *http.Server

	// amounts memoizes projection reads; every write drops the owner's
	// keys, so values never outlive the ledger state they were folded
	// from.
	amounts     *cache.LRU[core.Money]
	stopCleanup chan struct{}
}

func NewServer(addr string, svc *services.LedgerService) *Server {
	s := &Server{
		svc:         svc,
		amounts:     cache.NewLRU[core.Money](amountCacheSize, amountCacheTTL),
		stopCleanup: make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go s.cleanupLoop()
	return s
}

func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(cacheCleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.amounts.CleanExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// cachedAmount serves a projection from the cache or computes and
// stores it.
func (s *Server) cachedAmount(key string, load func() (core.Money, error)) (core.Money, error) {
	if m, ok := s.amounts.Get(key); ok {
		cacheHits.Inc()
		return m, nil
	}
	cacheMisses.Inc()
	m, err := load()
	if err != nil {
		return core.Money{}, err
	}
	s.amounts.Set(key, m)
	return m, nil
}

// invalidateOwner drops all cached projections for one owner. Called
// after every committed write.
func (s *Server) invalidateOwner(owner string) {
	s.amounts.DeletePrefix(owner + ":")
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", s.handleAppendEntry)
			r.Get("/", s.handleListEntries)
			r.Get("/{id}", s.handleGetEntry)
			r.Patch("/{id}", s.handleEditEntry)
			r.Delete("/{id}", s.handleRemoveEntry)
		})

		r.Post("/transfers", s.handleTransfer)

		r.Route("/wallets", func(r chi.Router) {
			r.Post("/", s.handleCreateWallet)
			r.Get("/", s.handleListWallets)
			r.Get("/{id}", s.handleGetWallet)
			r.Delete("/{id}", s.handleDeleteWallet)
			r.Get("/{id}/balance", s.handleWalletBalance)
			r.Get("/{id}/savings", s.handleWalletSavings)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Post("/", s.handleCreateGoal)
			r.Get("/", s.handleListGoals)
			r.Get("/{id}", s.handleGetGoal)
			r.Delete("/{id}", s.handleDeleteGoal)
			r.Get("/{id}/allocated", s.handleGoalAllocated)
			r.Get("/{id}/max-allocation", s.handleMaxAllocation)
			r.Put("/{id}/allocations", s.handleApplyAllocation)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Post("/", s.handleCreateBudget)
			r.Get("/", s.handleListBudgets)
			r.Get("/{id}", s.handleGetBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
			r.Get("/spent", s.handleBudgetSpent)
		})
	})

	return r
}

// Handler returns the router, for tests that drive the API in-process.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopCleanup)
	return s.httpServer.Shutdown(ctx)
}

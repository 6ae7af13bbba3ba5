package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fondo_entries_appended_total",
		Help: "Ledger entries appended through the API, by kind.",
	}, []string{"kind"})

	allocationsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fondo_allocations_applied_total",
		Help: "Allocation sessions committed successfully.",
	})

	allocationsClamped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fondo_allocations_clamped_total",
		Help: "Allocation sessions where a requested amount was reduced to capacity.",
	})

	reconciliationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fondo_reconciliation_failures_total",
		Help: "Allocation sessions that failed partway through reset-then-reapply.",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fondo_projection_cache_hits_total",
		Help: "Projection reads served from the cache.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fondo_projection_cache_misses_total",
		Help: "Projection reads that had to fold the ledger.",
	})
)

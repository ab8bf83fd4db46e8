package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain metrics
var (
	snapshotsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showbook_snapshots_created_total",
		Help: "Total number of selection snapshots created",
	})

	selectionsArchivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showbook_selections_archived_total",
		Help: "Total number of working selections archived by cycle rollover",
	})

	promotionCalculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showbook_promotion_calculations_total",
		Help: "Total number of promotion tier calculations by tier kind",
	}, []string{"kind"})

	promotionCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showbook_promotion_cache_total",
		Help: "Promotion status cache lookups by outcome",
	}, []string{"outcome"})

	bulkVisibilityChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showbook_bulk_visibility_changes_total",
		Help: "Total number of snapshot visibility flips performed by bulk cycle operations",
	})
)

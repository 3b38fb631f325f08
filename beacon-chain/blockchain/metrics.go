package blockchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	forkHeadsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_fork_heads",
		Help: "The number of fork heads tracked by the beacon chain.",
	})
	lastFinalizedSlotGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_last_finalized_slot",
		Help: "The last finalized slot of the beacon chain.",
	})
	processedBlocksCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_processed_blocks_total",
		Help: "The number of blocks added to a fork.",
	})
	rejectedBlocksCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_rejected_blocks_total",
		Help: "The number of blocks that could not be added to a fork.",
	})
	prunedBlocksCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_pruned_blocks_total",
		Help: "The number of fork entries removed from the beacon chain.",
	})
)

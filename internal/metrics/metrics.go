package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scanner metrics
var (
	ScanAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_range_attempts_total",
		Help: "The number of block range fetch attempts, by scan and outcome",
	}, []string{"scan", "outcome"})

	ScanRangeSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scanner_range_size_blocks",
		Help: "The block range size used by the latest fetch attempt",
	}, []string{"scan"})

	ScanRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_records_total",
		Help: "The number of event records fetched",
	}, []string{"scan"})

	ScanLastBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scanner_last_scanned_block",
		Help: "The last block covered by a successful fetch",
	}, []string{"scan"})
)

// Chain head metrics
var ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chain_head_block",
	Help: "The latest block number reported by the provider",
})

// RPC metrics
var (
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_requests_total",
		Help: "The number of JSON-RPC requests sent, by method",
	}, []string{"method"})

	RPCRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpc_rate_limit_waits_total",
		Help: "The number of JSON-RPC requests delayed by the local rate limiter",
	})
)

// Owner resolution metrics
var (
	OwnerLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "owner_lookups_total",
		Help: "The number of ownerOf lookups, by outcome",
	}, []string{"outcome"})

	OwnerBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "owner_lookup_batches_total",
		Help: "The number of owner resolution batches awaited",
	})
)

// Snapshot metrics
var SnapshotOwners = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "snapshot_owners",
	Help: "The number of distinct owners in the last written snapshot",
}, []string{"snapshot"})

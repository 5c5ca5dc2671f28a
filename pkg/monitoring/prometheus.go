// Package monitoring exposes node metrics to Prometheus.
package monitoring

import (
	"net/http"

	"github.com/anchorcoin/anchord/pkg/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BlockRejectedReason string

var (
	BlockOrphan           BlockRejectedReason = "orphan"
	BlockDuplicate        BlockRejectedReason = "duplicate"
	BlockCheckpoint       BlockRejectedReason = "checkpoint_mismatch"
	BlockBelowSync        BlockRejectedReason = "below_sync_checkpoint"
	BlockInvalidPoW       BlockRejectedReason = "invalid_pow"
	BlockInvalidTimestamp BlockRejectedReason = "invalid_timestamp"
	BlockRejectedUnknown  BlockRejectedReason = "other"
)

// NodeMetrics holds the node's collectors. It satisfies
// checkpoints.Recorder.
type NodeMetrics struct {
	registry prometheus.Gatherer

	nodeUpUnixSeconds    prometheus.Gauge
	blockHeight          prometheus.Gauge
	rejectedBlockCount   *prometheus.CounterVec
	reorgCount           prometheus.Counter
	peerCount            prometheus.Gauge
	badMagicCount        prometheus.Counter
	checkpointViolations prometheus.Counter
	syncCheckpointHeight prometheus.Gauge
	estimatedTotalBlocks prometheus.Gauge
}

// NewNodeMetrics registers the node collectors with reg. A nil reg uses a
// fresh private registry.
func NewNodeMetrics(reg *prometheus.Registry) *NodeMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	m := &NodeMetrics{
		registry: reg,
		nodeUpUnixSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "anchord_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node start",
			},
		),
		blockHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "anchord_node_block_height",
				Help: "The current best chain height",
			},
		),
		rejectedBlockCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anchord_node_rejected_block_count",
				Help: "The total number of rejected block headers",
			},
			[]string{"reason"},
		),
		reorgCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "anchord_node_reorg_count",
				Help: "The total number of best chain reorganizations",
			},
		),
		peerCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "anchord_node_peer_count",
				Help: "The total number of peer connections",
			},
		),
		badMagicCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "anchord_p2p_bad_magic_count",
				Help: "Messages discarded because they carried another network's magic",
			},
		),
		checkpointViolations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "anchord_checkpoint_violation_count",
				Help: "Blocks that contradicted a hardened checkpoint",
			},
		),
		syncCheckpointHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "anchord_sync_checkpoint_height",
				Help: "Height of the rolling sync checkpoint",
			},
		),
		estimatedTotalBlocks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "anchord_estimated_total_blocks",
				Help: "Height of the newest hardened checkpoint",
			},
		),
	}
	m.nodeUpUnixSeconds.SetToCurrentTime()
	return m
}

// Handler serves the collectors registered by NewNodeMetrics.
func (m *NodeMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterMetrics mounts the metrics handler on mux.
func (m *NodeMetrics) RegisterMetrics(mux *http.ServeMux) {
	logx.Info("METRICS", "Registering prometheus metrics")
	mux.Handle("/metrics", m.Handler())
}

func (m *NodeMetrics) SetBlockHeight(height int64) {
	m.blockHeight.Set(float64(height))
}

func (m *NodeMetrics) RecordRejectedBlock(reason BlockRejectedReason) {
	m.rejectedBlockCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func (m *NodeMetrics) IncreaseReorgCount() {
	m.reorgCount.Inc()
}

func (m *NodeMetrics) SetPeerCount(peers int) {
	m.peerCount.Set(float64(peers))
}

func (m *NodeMetrics) IncreaseBadMagicCount() {
	m.badMagicCount.Inc()
}

func (m *NodeMetrics) CheckpointViolation(int64) {
	m.checkpointViolations.Inc()
}

func (m *NodeMetrics) SyncFloor(height int64) {
	m.syncCheckpointHeight.Set(float64(height))
}

func (m *NodeMetrics) EstimatedTotal(height int64) {
	m.estimatedTotalBlocks.Set(float64(height))
}

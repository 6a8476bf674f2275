// Package metrics exposes the node's Prometheus metrics endpoint.
// spec.md §1 scopes Prometheus itself out of the core contract
// ("metrics/Prometheus endpoints" are an external collaborator); this
// package is the ambient observability surface every node process
// still carries, grounded on morelucks-gean/observability/metrics/
// metrics.go's catalog and Serve pattern.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fastBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}
	stfBuckets  = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5}

	NodeStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leanconsensus_node_start_time_seconds",
		Help: "Unix time the node process started.",
	})

	HeadSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leanconsensus_head_slot",
		Help: "Slot of the current fork-choice head.",
	})

	CurrentSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leanconsensus_current_slot",
		Help: "Slot computed from the wall clock.",
	})

	LatestJustifiedSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leanconsensus_latest_justified_slot",
		Help: "Slot of latest_justified.",
	})

	LatestFinalizedSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leanconsensus_latest_finalized_slot",
		Help: "Slot of latest_finalized.",
	})

	ValidatorsCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leanconsensus_validators_count",
		Help: "Number of validators in the active registry.",
	})

	ConnectedPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leanconsensus_connected_peers",
		Help: "Number of libp2p peers currently connected.",
	})

	BlockProcessingTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leanconsensus_block_processing_seconds",
		Help:    "Wall time spent in fork choice OnBlock, including STF.",
		Buckets: fastBuckets,
	})

	StateTransitionTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leanconsensus_state_transition_seconds",
		Help:    "Wall time spent in apply_transition.",
		Buckets: stfBuckets,
	})

	AttestationsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leanconsensus_attestations_processed_total",
		Help: "Attestations processed by fork choice, labeled by outcome.",
	}, []string{"outcome"})

	SignatureVerificationTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leanconsensus_signature_verification_seconds",
		Help:    "Wall time spent verifying an XMSS signature.",
		Buckets: fastBuckets,
	})

	SigningTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leanconsensus_signing_seconds",
		Help:    "Wall time spent producing an XMSS signature.",
		Buckets: fastBuckets,
	})
)

// Serve starts a Prometheus exporter on port, returning once the HTTP
// server's listener is closed by ctx cancellation. Grounded on
// morelucks-gean/observability/metrics/metrics.go's Serve.
func Serve(ctx context.Context, port int, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server exited", "err", err)
			}
			return err
		}
		return nil
	}
}

package service

import (
	"context"
	"time"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// Recorder receives service measurements. internal/metrics implements it
// with Prometheus instruments.
type Recorder interface {
	ObserveDiscovery(source string, pools int)
	ObserveEnrichment(mapped, dropped int)
	ObserveTx(action domain.TxAction, state domain.TxState, kind domain.ErrorKind, elapsed time.Duration)
}

// NopRecorder discards every measurement.
type NopRecorder struct{}

func (NopRecorder) ObserveDiscovery(string, int) {}
func (NopRecorder) ObserveEnrichment(int, int) {}
func (NopRecorder) ObserveTx(domain.TxAction, domain.TxState, domain.ErrorKind, time.Duration) {}

// Notifier is told about every finished orchestrator run.
type Notifier interface {
	NotifyOutcome(ctx context.Context, out domain.TxOutcome) error
}

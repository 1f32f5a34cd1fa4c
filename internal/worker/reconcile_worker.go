package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/observability/metrics"
)

// Drift kinds
const (
	DriftOccupiedWithoutContract = "occupied_without_contract"
	DriftContractNotOccupied     = "active_contract_not_occupied"
	DriftMultipleActive          = "multiple_active_contracts"
)

// Drift is one apartment whose stored status disagrees with its contracts
type Drift struct {
	Kind        string                 `json:"kind"`
	ApartmentID string                 `json:"apartment_id"`
	Number      string                 `json:"apartment_number"`
	Status      domain.ApartmentStatus `json:"status"`
	ContractIDs []string               `json:"contract_ids,omitempty"`
}

// ReconcileWorker periodically compares apartment status with active
// contracts. A lease partial failure leaves an active contract on an
// apartment that is still Available; a manual status change can leave an
// Occupied apartment with no contract. Drift is reported, never repaired.
type ReconcileWorker struct {
	apartments domain.ApartmentRepository
	contracts  domain.ContractRepository
	logger     *slog.Logger
	interval   time.Duration
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(
	apartments domain.ApartmentRepository,
	contracts domain.ContractRepository,
	logger *slog.Logger,
	interval time.Duration,
) *ReconcileWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileWorker{
		apartments: apartments,
		contracts:  contracts,
		logger:     logger.With(slog.String("component", "reconcile")),
		interval:   interval,
	}
}

// Start runs a check every interval until ctx is cancelled
func (w *ReconcileWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reconcile worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				w.logger.Error("reconcile check failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Check runs one pass, logs every drift found and updates the drift gauges
func (w *ReconcileWorker) Check(ctx context.Context) ([]Drift, error) {
	drifts, err := w.FindDrift(ctx)
	if err != nil {
		metrics.ObserveReconcile(metrics.ResultError)
		return nil, err
	}
	metrics.ObserveReconcile(metrics.ResultSuccess)

	counts := map[string]int{
		DriftOccupiedWithoutContract: 0,
		DriftContractNotOccupied:     0,
		DriftMultipleActive:          0,
	}
	for _, d := range drifts {
		counts[d.Kind]++
		w.logger.Warn("apartment status drift",
			slog.String("kind", d.Kind),
			slog.String("apartment_id", d.ApartmentID),
			slog.String("status", string(d.Status)),
			slog.Any("contract_ids", d.ContractIDs),
		)
	}
	for kind, n := range counts {
		metrics.SetDrift(kind, n)
	}
	if len(drifts) == 0 {
		w.logger.Debug("no status drift")
	}
	return drifts, nil
}

// FindDrift lists inconsistencies without side effects. Results are ordered by
// apartment id.
func (w *ReconcileWorker) FindDrift(ctx context.Context) ([]Drift, error) {
	apartments, err := w.apartments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list apartments: %w", err)
	}
	active, err := w.contracts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active contracts: %w", err)
	}

	byApartment := map[string][]string{}
	for _, c := range active {
		byApartment[c.ApartmentID] = append(byApartment[c.ApartmentID], c.ID)
	}

	drifts := []Drift{}
	for _, a := range apartments {
		ids := byApartment[a.ID]
		d := Drift{ApartmentID: a.ID, Number: a.Number, Status: a.Status, ContractIDs: ids}
		switch {
		case len(ids) > 1:
			d.Kind = DriftMultipleActive
		case len(ids) == 1 && a.Status != domain.StatusOccupied:
			d.Kind = DriftContractNotOccupied
		case len(ids) == 0 && a.Status == domain.StatusOccupied:
			d.Kind = DriftOccupiedWithoutContract
		default:
			continue
		}
		drifts = append(drifts, d)
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].ApartmentID < drifts[j].ApartmentID })
	return drifts, nil
}

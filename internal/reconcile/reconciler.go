// =============================================================================
// Ventas Histórico - Reconciler
// =============================================================================
//
// The reconciler brings the historical ledger up to date with the
// point-of-sale tables. One run:
//
//   1. Verifies the mandatory tables exist (headers, details, products)
//   2. Creates the ledger if needed
//   3. Takes one snapshot of the stored keys
//   4. Loads the reference maps
//   5. Streams the ticket lines through Merge
//   6. Appends the new entries as one batch
//
// Runs are serialized: a second run waits for the first, so both can never
// work from the same snapshot and store the same key twice.
//
// =============================================================================

package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/ventas-historico/internal/logging"
	"github.com/ginjaninja78/ventas-historico/internal/reference"
	"github.com/ginjaninja78/ventas-historico/internal/store"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// Options controls a run.
type Options struct {
	// DryRun computes the new entries without writing them.
	DryRun bool
}

// Result describes a finished run.
type Result struct {
	// RunID identifies the run in logs.
	RunID uuid.UUID

	// New holds the entries added, or that would be added in a dry run, as
	// the ledger stores them.
	New []types.HistoricalEntry

	// Total is the ledger row count after the run.
	Total int

	// Stats counts what happened to every ticket line.
	Stats types.RunStats

	// DryRun reports whether the ledger was left untouched.
	DryRun bool
}

// Reconciler runs reconciliations against one loader and one store.
type Reconciler struct {
	mu     sync.Mutex
	loader *reference.Loader
	store  *store.Store
	logger *logrus.Logger
}

// New creates a reconciler.
func New(loader *reference.Loader, st *store.Store, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		loader: loader,
		store:  st,
		logger: logging.OrDiscard(logger),
	}
}

// Run performs one reconciliation.
//
// PARAMETERS:
//   - ctx: Cancels the run between phases; a cancelled run writes nothing.
//   - opts: Run options.
//
// RETURNS:
//   - The run result.
//   - *types.MissingFileError when a mandatory table is absent; the ledger
//     is not touched in that case.
//   - Any loader, validation or store error.
func (r *Reconciler) Run(ctx context.Context, opts Options) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	runID := uuid.New()
	log := r.logger.WithFields(logrus.Fields{
		"module": "reconcile",
		"run_id": runID.String(),
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.loader.CheckInputs(); err != nil {
		logging.LogError(r.logger, "reconcile", "Run", "checking inputs", runID.String(), err)
		return nil, err
	}

	if !opts.DryRun {
		if _, err := r.store.EnsureCreated(); err != nil {
			return nil, fmt.Errorf("failed to prepare historical store: %w", err)
		}
	}

	existing, err := r.store.ExistingKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to read stored keys: %w", err)
	}

	refs, err := r.loader.Load()
	if err != nil {
		logging.LogError(r.logger, "reconcile", "Run", "loading reference tables", runID.String(), err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details, err := r.loader.Details()
	if err != nil {
		return nil, err
	}
	entries, stats, err := Merge(details, refs, existing, r.store.StoredKey)
	details.Close()
	if err != nil {
		logging.LogError(r.logger, "reconcile", "Run", "scanning ticket lines", runID.String(), err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries = r.store.Prepare(entries)
	result := &Result{RunID: runID, New: entries, DryRun: opts.DryRun}

	switch {
	case opts.DryRun:
		result.Total, err = r.store.Count()
	case len(entries) > 0:
		result.Total, err = r.store.AppendBatch(entries)
	default:
		result.Total, err = r.store.Count()
	}
	if err != nil {
		logging.LogError(r.logger, "reconcile", "Run", "writing ledger", stats, err)
		return nil, err
	}

	stats.Duration = time.Since(start)
	result.Stats = stats

	log.WithFields(logrus.Fields{
		"scanned":        stats.Scanned,
		"already_stored": stats.AlreadyStored,
		"orphans":        stats.Orphans,
		"repeated":       stats.RepeatedInBatch,
		"unparsed_dates": stats.UnparsedDates,
		"shortened_keys": stats.ShortenedKeys,
		"added":          stats.Added,
		"total":          result.Total,
		"dry_run":        opts.DryRun,
		"duration":       stats.Duration.String(),
	}).Info("reconciliation finished")

	return result, nil
}

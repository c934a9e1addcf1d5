package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marketlogger/internal/record"
)

// Orchestrator drives one polling cycle at a time against the configured
// sources and the workbook store.
type Orchestrator struct {
	cfg      Config
	quotes   QuoteSource
	funds    FundSource
	overview OverviewSource
	store    Store
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config, quotes QuoteSource, funds FundSource, overview OverviewSource, store Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = record.KeySharedID
	}
	return &Orchestrator{
		cfg:      cfg,
		quotes:   quotes,
		funds:    funds,
		overview: overview,
		store:    store,
		logger:   logger,
	}
}

// RunTick executes one polling cycle.
//
// The cycle gets a batch identifier one past the largest identifier already
// persisted on any sheet. Per-instrument rows are committed only when every
// configured instrument produced a valid record; otherwise the whole
// per-instrument batch is dropped and the market overview is not attempted
// either. All writes of a cycle land in a single workbook save, and only
// after the row-count deltas confirm that exactly the staged rows were
// added.
//
// A failed instrument or a rejected overview is not an error, it is a
// dropped cycle reported through Result; only store failures return one.
func (o *Orchestrator) RunTick(ctx context.Context) (Result, error) {
	start := time.Now()

	tx, err := o.store.Begin()
	if err != nil {
		o.logger.Error("failed to open workbook store", "err", err)
		return Result{}, err
	}
	defer tx.Close()

	res := Result{BatchID: o.nextBatchID(tx)}

	perInstrument := len(o.cfg.ClosingFields) > 0 || len(o.cfg.FundFields) > 0
	if perInstrument {
		records := o.collect(ctx, res.BatchID)
		res.Fetched = len(records)
		res.Failed = len(o.cfg.Instruments) - len(records)

		if res.Fetched != len(o.cfg.Instruments) {
			o.logger.Warn("no valid data received to save",
				"batch_id", res.BatchID,
				"fetched", res.Fetched,
				"instruments", len(o.cfg.Instruments),
			)
			return res, nil
		}

		before := dataRows(tx, SheetInstruments)
		for i := range o.cfg.Instruments {
			if err := tx.Append(SheetInstruments, records[i], o.cfg.IDColumn); err != nil {
				o.logger.Error("failed to append instrument row",
					"stock", o.cfg.Instruments[i].Name, "err", err)
				return res, err
			}
		}
		if after := dataRows(tx, SheetInstruments); after-before != res.Fetched {
			err := fmt.Errorf("instrument sheet grew by %d rows, expected %d", after-before, res.Fetched)
			o.logger.Error("row verification failed, dropping cycle", "err", err)
			return res, err
		}
	}

	if len(o.cfg.OverviewFields) > 0 {
		ok, err := o.appendOverview(ctx, tx, res.BatchID)
		if err != nil {
			return res, err
		}
		res.Overview = ok
	}

	if !perInstrument && !res.Overview {
		return res, nil
	}

	if err := tx.Commit(); err != nil {
		o.logger.Error("failed to save workbook", "err", err)
		res.Overview = false
		return res, err
	}
	res.Committed = perInstrument

	o.logger.Info("polling cycle committed",
		"batch_id", res.BatchID,
		"instruments", res.Fetched,
		"overview", res.Overview,
		"duration", time.Since(start),
	)
	return res, nil
}

// nextBatchID assigns the identifier shared by every row of this cycle: one
// past the largest identifier found on any category sheet, so identifiers
// grow monotonically even when earlier cycles wrote only one of the sheets.
func (o *Orchestrator) nextBatchID(tx Tx) int64 {
	last := tx.LastAssignedID(SheetInstruments, o.cfg.IDColumn)
	if n := tx.LastAssignedID(SheetOverview, o.cfg.IDColumn); n > last {
		last = n
	}
	return last + 1
}

// fetchResult carries one instrument's outcome from a worker goroutine back
// to the collecting loop.
type fetchResult struct {
	index int
	rec   record.Record
	err   error
}

// collect runs the per-instrument fetches, concurrently or in list order per
// configuration, and returns the valid records keyed by instrument index.
// Each worker reports into its own channel slot, so there are no shared
// writes; failures are logged and simply absent from the returned map.
func (o *Orchestrator) collect(ctx context.Context, batchID int64) map[int]record.Record {
	results := make(chan fetchResult, len(o.cfg.Instruments))

	if o.cfg.Concurrent {
		var wg sync.WaitGroup
		for i, inst := range o.cfg.Instruments {
			wg.Add(1)
			go func(i int, inst Instrument) {
				defer wg.Done()
				rec, err := o.fetchInstrument(ctx, inst, batchID)
				results <- fetchResult{index: i, rec: rec, err: err}
			}(i, inst)
		}
		go func() {
			wg.Wait()
			close(results)
		}()
	} else {
		for i, inst := range o.cfg.Instruments {
			rec, err := o.fetchInstrument(ctx, inst, batchID)
			results <- fetchResult{index: i, rec: rec, err: err}
		}
		close(results)
	}

	records := make(map[int]record.Record, len(o.cfg.Instruments))
	for r := range results {
		if r.err != nil {
			o.logger.Warn("instrument dropped for this cycle",
				"stock", o.cfg.Instruments[r.index].Name,
				"err", r.err,
			)
			continue
		}
		records[r.index] = r.rec
	}
	return records
}

// appendOverview fetches the market overview once, merges it into a fresh
// record under the cycle's batch identifier and stages it on its own sheet.
// Returns whether a row was staged; only store failures surface as errors.
func (o *Orchestrator) appendOverview(ctx context.Context, tx Tx, batchID int64) (bool, error) {
	rec := record.New(o.cfg.IDColumn, batchID)

	fields, err := o.overview.MarketOverview(ctx, o.cfg.OverviewFields)
	if err != nil {
		o.logger.Warn("market overview fetch failed", "batch_id", batchID, "err", err)
		fields = nil
	}
	if !rec.Merge(fields, o.cfg.NonZero) {
		o.logger.Warn("market overview data rejected", "batch_id", batchID)
		return false, nil
	}

	before := dataRows(tx, SheetOverview)
	if err := tx.Append(SheetOverview, rec, o.cfg.IDColumn); err != nil {
		o.logger.Error("failed to append overview row", "err", err)
		return false, err
	}
	if after := dataRows(tx, SheetOverview); after-before != 1 {
		err := fmt.Errorf("overview sheet grew by %d rows, expected 1", after-before)
		o.logger.Error("row verification failed, dropping cycle", "err", err)
		return false, err
	}
	return true, nil
}

// dataRows treats a sheet that does not exist yet as empty; it will be
// created by the first append.
func dataRows(tx Tx, sheetName string) int {
	if n := tx.RowCount(sheetName); n > 0 {
		return n
	}
	return 0
}

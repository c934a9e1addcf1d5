// Package batch runs one polling cycle: it fetches every configured
// instrument, validates and merges the endpoint results into records, and
// commits the whole cycle to the workbook store all-or-nothing under a
// shared batch identifier.
package batch

import (
	"context"

	"marketlogger/internal/record"
)

// Sheet names, one per data category.
const (
	SheetInstruments = "Instruments"
	SheetOverview    = "MarketOverview"
)

// Instrument is one security to poll. Code is the opaque identifier the
// remote API expects; Name is the human-readable label written to the sheet.
type Instrument struct {
	Code string
	Name string
}

// QuoteSource supplies the per-instrument closing-price fields.
type QuoteSource interface {
	ClosingPrices(ctx context.Context, insCode string, fields []string) (map[string]string, error)
}

// FundSource supplies the fixed fund price pair for an instrument.
type FundSource interface {
	FundInfo(ctx context.Context, insCode string) (map[string]string, error)
}

// OverviewSource supplies the market-wide overview fields.
type OverviewSource interface {
	MarketOverview(ctx context.Context, fields []string) (map[string]string, error)
}

// Tx is one open workbook session. All mutations stay in memory until
// Commit; Close drops them. Close after Commit is a no-op.
type Tx interface {
	LastAssignedID(sheetName, idColumn string) int64
	RowCount(sheetName string) int
	Append(sheetName string, rec record.Record, idColumn string) error
	Commit() error
	Close()
}

// Store hands out one workbook session per polling cycle.
type Store interface {
	Begin() (Tx, error)
}

// Config holds the settings of the orchestrator, loaded once at startup and
// immutable afterwards.
type Config struct {
	// Instruments to poll; list order determines row order within a cycle.
	Instruments []Instrument
	// ClosingFields selects the closing-price fields to fetch per
	// instrument. Empty means the closing-price endpoint is not called.
	ClosingFields []string
	// FundFields selects fund fields; any non-empty selection triggers the
	// fund endpoint, which always yields its fixed key pair.
	FundFields []string
	// OverviewFields selects the market-wide fields fetched once per cycle.
	OverviewFields []string
	// NonZero lists fields whose value must not be the integer zero.
	NonZero record.Set
	// Concurrent fans the per-instrument fetches out in parallel when true,
	// otherwise they run one after another in list order.
	Concurrent bool
	// IDColumn is the header under which the batch identifier is stored.
	IDColumn string
}

// Result summarizes one polling cycle.
type Result struct {
	// BatchID assigned to this cycle's rows.
	BatchID int64
	// Fetched counts instruments that produced a valid record.
	Fetched int
	// Failed counts instruments dropped for this cycle.
	Failed int
	// Committed reports whether the per-instrument rows were persisted.
	Committed bool
	// Overview reports whether a market-overview row was persisted.
	Overview bool
}

package testutil

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"marketlogger/internal/batch"
	"marketlogger/internal/record"
)

// MockSources is a mock implementation of the batch source interfaces for
// testing. Unset functions report "no data".
type MockSources struct {
	ClosingFunc  func(ctx context.Context, insCode string, fields []string) (map[string]string, error)
	FundFunc     func(ctx context.Context, insCode string) (map[string]string, error)
	OverviewFunc func(ctx context.Context, fields []string) (map[string]string, error)
}

// ClosingPrices implements batch.QuoteSource
func (m *MockSources) ClosingPrices(ctx context.Context, insCode string, fields []string) (map[string]string, error) {
	if m.ClosingFunc != nil {
		return m.ClosingFunc(ctx, insCode, fields)
	}
	return nil, nil
}

// FundInfo implements batch.FundSource
func (m *MockSources) FundInfo(ctx context.Context, insCode string) (map[string]string, error) {
	if m.FundFunc != nil {
		return m.FundFunc(ctx, insCode)
	}
	return nil, nil
}

// MarketOverview implements batch.OverviewSource
func (m *MockSources) MarketOverview(ctx context.Context, fields []string) (map[string]string, error) {
	if m.OverviewFunc != nil {
		return m.OverviewFunc(ctx, fields)
	}
	return nil, nil
}

// MemTable is one in-memory sheet: ordered headers plus appended rows.
type MemTable struct {
	Headers []string
	Rows    []map[string]string
}

// MemStore is an in-memory stand-in for the workbook store. It preserves the
// begin/commit semantics of the real store: mutations stay private to the
// session and become visible only on Commit.
type MemStore struct {
	mu     sync.Mutex
	tables map[string]*MemTable

	// Saves counts committed sessions.
	Saves int
	// BeginErr, when set, makes Begin fail, simulating an unopenable file.
	BeginErr error
	// AppendErr, when set, makes every Append fail.
	AppendErr error
	// MisreportCounts makes RowCount always answer 0, tripping the
	// orchestrator's row verification.
	MisreportCounts bool
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*MemTable)}
}

// Table returns the committed table with the given name, or nil.
func (s *MemStore) Table(name string) *MemTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[name]
}

// Begin implements batch.Store
func (s *MemStore) Begin() (batch.Tx, error) {
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	s.mu.Lock()
	return &memTx{store: s, tables: cloneTables(s.tables)}, nil
}

type memTx struct {
	store  *MemStore
	tables map[string]*MemTable
	done   bool
}

func (tx *memTx) LastAssignedID(sheetName, idColumn string) int64 {
	t := tx.tables[sheetName]
	if t == nil {
		return 0
	}
	var max int64
	for _, row := range t.Rows {
		id, err := strconv.ParseInt(row[idColumn], 10, 64)
		if err != nil {
			continue
		}
		if id > max {
			max = id
		}
	}
	return max
}

func (tx *memTx) RowCount(sheetName string) int {
	if tx.store.MisreportCounts {
		return 0
	}
	t := tx.tables[sheetName]
	if t == nil {
		return -1
	}
	return len(t.Rows)
}

func (tx *memTx) Append(sheetName string, rec record.Record, idColumn string) error {
	if tx.store.AppendErr != nil {
		return tx.store.AppendErr
	}
	t := tx.tables[sheetName]
	if t == nil {
		t = &MemTable{}
		tx.tables[sheetName] = t
	}

	known := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		known[h] = true
	}
	for _, key := range orderedKeys(rec, idColumn) {
		if !known[key] {
			t.Headers = append(t.Headers, key)
		}
	}

	t.Rows = append(t.Rows, rec.Clone())
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.tables = tx.tables
	tx.store.Saves++
	tx.store.mu.Unlock()
	return nil
}

func (tx *memTx) Close() {
	if tx.done {
		return
	}
	tx.done = true
	tx.store.mu.Unlock()
}

func cloneTables(tables map[string]*MemTable) map[string]*MemTable {
	out := make(map[string]*MemTable, len(tables))
	for name, t := range tables {
		clone := &MemTable{Headers: append([]string(nil), t.Headers...)}
		for _, row := range t.Rows {
			clone.Rows = append(clone.Rows, record.Record(row).Clone())
		}
		out[name] = clone
	}
	return out
}

// orderedKeys mirrors the column order of the real store: identifier first,
// instrument name second, the rest alphabetical.
func orderedKeys(rec record.Record, idColumn string) []string {
	rest := make([]string, 0, len(rec))
	for key := range rec {
		if key == idColumn || key == record.KeyStock {
			continue
		}
		rest = append(rest, key)
	}
	sort.Strings(rest)

	keys := make([]string, 0, len(rec))
	if _, ok := rec[idColumn]; ok {
		keys = append(keys, idColumn)
	}
	if _, ok := rec[record.KeyStock]; ok {
		keys = append(keys, record.KeyStock)
	}
	return append(keys, rest...)
}

// Package sheet persists polling records into an Excel workbook, one sheet
// per data category. Row 1 of every sheet holds column headers; columns only
// ever grow and data rows are only ever appended.
package sheet

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"marketlogger/internal/record"
)

// Store owns one workbook file. It is the only component that mutates the
// workbook, and its mutex spans every open/mutate/save sequence so that two
// polling cycles can never interleave writes to the same file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a Store for the workbook at path. The file is created on
// the first committed cycle if it does not exist yet.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the workbook location.
func (s *Store) Path() string {
	return s.path
}

// Begin opens the workbook (creating a fresh one when the file does not
// exist) and locks the store. The returned Tx must be finished with either
// Commit or Close; until then every other Begin blocks.
func (s *Store) Begin() (*Tx, error) {
	s.mu.Lock()

	f, err := excelize.OpenFile(s.path)
	switch {
	case err == nil:
		return &Tx{store: s, f: f}, nil
	case errors.Is(err, fs.ErrNotExist):
		return &Tx{store: s, f: excelize.NewFile(), created: true}, nil
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
	}
}

// Tx is one open workbook session: all reads and appends of a polling cycle
// happen in memory and hit disk only on Commit. Not safe for concurrent use.
type Tx struct {
	store   *Store
	f       *excelize.File
	created bool
	done    bool
}

// RowCount returns the number of data rows on the named sheet, not counting
// the header row. An empty or header-only sheet counts 0; a sheet that does
// not exist counts -1.
func (tx *Tx) RowCount(sheetName string) int {
	idx, err := tx.f.GetSheetIndex(sheetName)
	if err != nil || idx < 0 {
		return -1
	}
	rows, err := tx.f.GetRows(sheetName)
	if err != nil {
		return -1
	}
	if len(rows) <= 1 {
		return 0
	}
	return len(rows) - 1
}

// LastAssignedID scans the identifier column of the named sheet and returns
// the largest value that parses as an integer. Cells that do not parse are
// skipped; an empty or missing sheet, or a sheet without the identifier
// column, yields 0.
func (tx *Tx) LastAssignedID(sheetName, idColumn string) int64 {
	rows, err := tx.f.GetRows(sheetName)
	if err != nil || len(rows) == 0 {
		return 0
	}

	col := -1
	for i, header := range rows[0] {
		if header == idColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return 0
	}

	var max int64
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[col]), 10, 64)
		if err != nil {
			continue
		}
		if id > max {
			max = id
		}
	}
	return max
}

// Append writes rec as a new row at the bottom of the named sheet, creating
// the sheet on first use and adding a header column for every record key not
// seen before. Headers are never removed or reordered. Values that parse as
// decimal numbers are stored as numeric cells, everything else as text.
func (tx *Tx) Append(sheetName string, rec record.Record, idColumn string) error {
	if err := tx.ensureSheet(sheetName); err != nil {
		return err
	}

	rows, err := tx.f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	// Map existing headers to their 1-based column.
	columns := make(map[string]int)
	if len(rows) > 0 {
		for i, header := range rows[0] {
			if _, ok := columns[header]; !ok && header != "" {
				columns[header] = i + 1
			}
		}
	}

	nextCol := 1
	if len(rows) > 0 {
		nextCol = len(rows[0]) + 1
	}

	dataRow := len(rows) + 1
	if dataRow < 2 {
		dataRow = 2
	}

	for _, key := range columnOrder(rec, idColumn) {
		col, ok := columns[key]
		if !ok {
			col = nextCol
			nextCol++
			columns[key] = col
			if err := tx.setCell(sheetName, col, 1, key); err != nil {
				return err
			}
		}
		if err := tx.setCell(sheetName, col, dataRow, rec[key]); err != nil {
			return err
		}
	}

	return nil
}

// Commit saves the workbook to disk and releases the store.
func (tx *Tx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	defer tx.store.mu.Unlock()

	var err error
	if tx.created {
		err = tx.f.SaveAs(tx.store.path)
	} else {
		err = tx.f.Save()
	}
	if closeErr := tx.f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", tx.store.path, err)
	}
	return nil
}

// Close discards all in-memory changes and releases the store. Safe to call
// after Commit.
func (tx *Tx) Close() {
	if tx.done {
		return
	}
	tx.done = true
	if err := tx.f.Close(); err != nil {
		tx.store.logger.Warn("failed to close workbook", "path", tx.store.path, "err", err)
	}
	tx.store.mu.Unlock()
}

// ensureSheet makes the named sheet exist. On a freshly created workbook the
// first real sheet replaces the default empty one.
func (tx *Tx) ensureSheet(sheetName string) error {
	idx, err := tx.f.GetSheetIndex(sheetName)
	if err != nil {
		return fmt.Errorf("invalid sheet name %s: %w", sheetName, err)
	}
	if idx >= 0 {
		return nil
	}

	if tx.created {
		// NewFile starts with one default sheet; rename it for the first
		// category instead of leaving an empty tab behind.
		defaultName := tx.f.GetSheetName(0)
		if defaultName == "Sheet1" {
			return tx.f.SetSheetName(defaultName, sheetName)
		}
	}

	_, err = tx.f.NewSheet(sheetName)
	return err
}

func (tx *Tx) setCell(sheetName string, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if n, parseErr := strconv.ParseFloat(strings.TrimSpace(value), 64); parseErr == nil {
		return tx.f.SetCellValue(sheetName, cell, n)
	}
	return tx.f.SetCellValue(sheetName, cell, value)
}

// columnOrder yields record keys in a stable order: the identifier column
// first, then the instrument name, then everything else alphabetically. The
// order only matters the first time a header is written; afterwards each key
// follows its existing column.
func columnOrder(rec record.Record, idColumn string) []string {
	keys := make([]string, 0, len(rec))
	for key := range rec {
		if key == idColumn || key == record.KeyStock {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ordered := make([]string, 0, len(rec))
	if _, ok := rec[idColumn]; ok {
		ordered = append(ordered, idColumn)
	}
	if _, ok := rec[record.KeyStock]; ok {
		ordered = append(ordered, record.KeyStock)
	}
	return append(ordered, keys...)
}

package batch

import (
	"context"
	"errors"
	"fmt"

	"marketlogger/internal/record"
)

// errRejected marks data that arrived but failed field validation, as
// opposed to a transport failure.
var errRejected = errors.New("fields rejected by validation")

// fetchInstrument builds the record for one instrument: it seeds the batch
// identifier and the instrument name, merges the closing-price endpoint
// first and the fund endpoint second. Each merge is all-or-nothing and a
// failed merge drops the instrument immediately, so the returned record is
// either complete or nil.
func (o *Orchestrator) fetchInstrument(ctx context.Context, inst Instrument, batchID int64) (record.Record, error) {
	rec := record.New(o.cfg.IDColumn, batchID)
	rec[record.KeyStock] = inst.Name

	if len(o.cfg.ClosingFields) > 0 {
		fields, err := o.quotes.ClosingPrices(ctx, inst.Code, o.cfg.ClosingFields)
		if err != nil {
			return nil, fmt.Errorf("closing prices: %w", err)
		}
		if !rec.Merge(fields, o.cfg.NonZero) {
			return nil, fmt.Errorf("closing prices: %w", errRejected)
		}
	}

	if len(o.cfg.FundFields) > 0 {
		fields, err := o.funds.FundInfo(ctx, inst.Code)
		if err != nil {
			return nil, fmt.Errorf("fund info: %w", err)
		}
		if !rec.Merge(fields, o.cfg.NonZero) {
			return nil, fmt.Errorf("fund info: %w", errRejected)
		}
	}

	return rec, nil
}

package mocks

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Row is an in-memory driver.Row. Values assigns positionally to the Scan
// destinations; ScanErr short-circuits Scan (use sql.ErrNoRows to simulate a
// missing row).
type Row struct {
	Values  []interface{}
	ScanErr error
}

var _ driver.Row = (*Row)(nil)

func (r *Row) Scan(dest ...interface{}) error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	rows := NewRows(nil, [][]interface{}{r.Values})
	rows.ColumnNames = make([]string, len(r.Values))
	rows.Next()
	return rows.Scan(dest...)
}

func (r *Row) ScanStruct(dest interface{}) error {
	return r.Scan(dest)
}

func (r *Row) Err() error {
	return r.ScanErr
}

package mocks

import (
	"errors"
	"io"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Rows is an in-memory driver.Rows for testing query paths without a live
// ClickHouse. Each row is a slice of values assigned positionally to the Scan
// destinations; nil values leave nullable destinations nil.
type Rows struct {
	ColumnNames []string
	Data        [][]interface{}
	ScanErr     error

	cursor int
}

var _ driver.Rows = (*Rows)(nil)

func NewRows(columns []string, data [][]interface{}) *Rows {
	return &Rows{ColumnNames: columns, Data: data}
}

func (r *Rows) Next() bool {
	if r.cursor >= len(r.Data) {
		return false
	}
	r.cursor++
	return true
}

func (r *Rows) Scan(dest ...interface{}) error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	if r.cursor == 0 || r.cursor > len(r.Data) {
		return io.EOF
	}
	row := r.Data[r.cursor-1]
	if len(dest) != len(row) {
		return errors.New("mocks: scan destination count mismatch")
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Ptr || dv.IsNil() {
			return errors.New("mocks: scan destination must be a non-nil pointer")
		}
		if row[i] == nil {
			dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
			continue
		}
		sv := reflect.ValueOf(row[i])
		if !sv.Type().AssignableTo(dv.Elem().Type()) {
			return errors.New("mocks: scan type mismatch for column " + r.ColumnNames[i])
		}
		dv.Elem().Set(sv)
	}
	return nil
}

func (r *Rows) ScanStruct(dest interface{}) error {
	return errors.New("mocks: ScanStruct not supported")
}

func (r *Rows) ColumnTypes() []driver.ColumnType {
	return nil
}

func (r *Rows) Totals(dest ...interface{}) error {
	return errors.New("mocks: Totals not supported")
}

func (r *Rows) Columns() []string {
	return r.ColumnNames
}

func (r *Rows) Close() error {
	return nil
}

func (r *Rows) Err() error {
	return nil
}

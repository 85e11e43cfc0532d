package exchange

import (
	"encoding/csv"
	"io"
)

// Column names one exported field and how to render it for a record.
type Column[T any] struct {
	Name  string
	Value func(T) string
}

// Export writes a header row followed by one row per record yielded by source.
// source calls emit for each record and stops at the first error emit returns.
func Export[T any](w io.Writer, cols []Column[T], source func(emit func(T) error) error) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(cols))
	err := source(func(item T) error {
		for i, col := range cols {
			record[i] = col.Value(item)
		}
		return cw.Write(record)
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// ExportSlice writes items with cols.
func ExportSlice[T any](w io.Writer, cols []Column[T], items []T) error {
	return Export(w, cols, func(emit func(T) error) error {
		for _, item := range items {
			if err := emit(item); err != nil {
				return err
			}
		}
		return nil
	})
}

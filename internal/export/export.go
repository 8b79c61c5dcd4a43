// Package export serializes extracted tables. The tables are Arrow
// records, so every format here comes from the arrow-go module: CSV for
// spreadsheets and R/pandas, Parquet for columnar storage, and Arrow
// IPC for zero-parse interchange.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Format selects the serialization of an extracted table
type Format int

const (
	// FormatCSV writes comma-separated text with a header row
	FormatCSV Format = iota
	// FormatParquet writes an Apache Parquet file
	FormatParquet
	// FormatArrow writes an Arrow IPC stream
	FormatArrow
)

func (f Format) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatArrow:
		return "arrow"
	}
	return "csv"
}

// Ext returns the conventional file extension for the format
func (f Format) Ext() string {
	switch f {
	case FormatParquet:
		return ".parquet"
	case FormatArrow:
		return ".arrows"
	}
	return ".csv"
}

// ParseFormat converts a format name (case-insensitive) into a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "parquet":
		return FormatParquet, nil
	case "arrow", "ipc":
		return FormatArrow, nil
	}
	return 0, fmt.Errorf("export: unknown format %q", s)
}

// Write serializes one record in the given format
func Write(w io.Writer, rec arrow.Record, format Format) error {
	switch format {
	case FormatParquet:
		return writeParquet(w, rec)
	case FormatArrow:
		return writeIPC(w, rec)
	}
	return writeCSV(w, rec)
}

func writeCSV(w io.Writer, rec arrow.Record) error {
	cw := csv.NewWriter(w, rec.Schema(),
		csv.WithHeader(true),
		csv.WithNullWriter(""),
	)
	if err := cw.Write(rec); err != nil {
		return err
	}
	if err := cw.Flush(); err != nil {
		return err
	}
	return cw.Error()
}

func writeParquet(w io.Writer, rec arrow.Record) error {
	fw, err := pqarrow.NewFileWriter(rec.Schema(), w,
		parquet.NewWriterProperties(),
		pqarrow.DefaultWriterProps())
	if err != nil {
		return err
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

func writeIPC(w io.Writer, rec arrow.Record) error {
	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return err
	}
	return iw.Close()
}

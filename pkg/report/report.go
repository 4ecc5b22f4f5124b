// Package report exports benchmark results and renders the terminal summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v2"

	"github.com/eunmann/rtbench/pkg/bench"
	"github.com/eunmann/rtbench/pkg/fileutil"
	"github.com/eunmann/rtbench/pkg/humanfmt"
)

// Format is an export file format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatCSV, FormatParquet}

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat resolves a format name, case-insensitively. "yml" is
// accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatCSV, FormatParquet:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Row is the flat per-sample record used by the CSV and Parquet exports.
type Row struct {
	RunID      string  `parquet:"run_id" json:"run_id"`
	Step       string  `parquet:"step" json:"step"`
	Group      string  `parquet:"group" json:"group"`
	Label      string  `parquet:"label" json:"label"`
	Repeat     int64   `parquet:"repeat" json:"repeat"`
	ElapsedNS  int64   `parquet:"elapsed_ns" json:"elapsed_ns"`
	ElapsedMS  float64 `parquet:"elapsed_ms" json:"elapsed_ms"`
	Bytes      int64   `parquet:"bytes" json:"bytes"`
	AllocBytes int64   `parquet:"alloc_bytes" json:"alloc_bytes"`
}

var csvHeader = []string{"run_id", "step", "group", "label", "repeat", "elapsed_ns", "elapsed_ms", "bytes", "alloc_bytes"}

// Rows flattens the samples of r.
func Rows(r *bench.Report) []Row {
	samples := r.Samples()
	rows := make([]Row, len(samples))
	for i, s := range samples {
		rows[i] = Row{
			RunID:      r.RunID,
			Step:       s.Step,
			Group:      s.Group,
			Label:      s.Label,
			Repeat:     int64(s.Repeat),
			ElapsedNS:  s.Elapsed.Nanoseconds(),
			ElapsedMS:  s.Millis(),
			Bytes:      s.Bytes,
			AllocBytes: int64(s.AllocBytes),
		}
	}
	return rows
}

// Encode writes r to w in format f. Parquet needs a file; use Write.
func Encode(w io.Writer, f Format, r *bench.Report) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatCSV:
		return encodeCSV(w, Rows(r))
	case FormatParquet:
		return encodeParquet(w, Rows(r))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func encodeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.RunID,
			r.Step,
			r.Group,
			r.Label,
			strconv.FormatInt(r.Repeat, 10),
			strconv.FormatInt(r.ElapsedNS, 10),
			strconv.FormatFloat(r.ElapsedMS, 'f', 3, 64),
			strconv.FormatInt(r.Bytes, 10),
			strconv.FormatInt(r.AllocBytes, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeParquet(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// Write exports r to path in format f. The file appears only once it is
// complete.
func Write(path string, f Format, r *bench.Report) error {
	err := fileutil.WriteTmpThenMove(path, func(tmpPath string) error {
		out, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		if err := Encode(out, f, r); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
	if err != nil {
		return fmt.Errorf("write %s report %s: %w", f, path, err)
	}
	return nil
}

// ReadRows loads rows back from a CSV or Parquet export.
func ReadRows(path string, f Format) ([]Row, error) {
	switch f {
	case FormatParquet:
		rows, err := parquet.ReadFile[Row](path)
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		return rows, nil
	case FormatCSV:
		return readCSV(path)
	default:
		return nil, fmt.Errorf("%w: rows cannot be read from %s", ErrUnknownFormat, f)
	}
}

func readCSV(path string) ([]Row, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = len(csvHeader)
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("read csv %s: missing header", path)
	}

	rows := make([]Row, 0, len(recs)-1)
	for i, rec := range recs[1:] {
		row, err := parseCSVRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("read csv %s line %d: %w", path, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCSVRecord(rec []string) (Row, error) {
	var errs []error
	parseInt := func(s string) int64 {
		v, err := strconv.ParseInt(s, 10, 64)
		errs = append(errs, err)
		return v
	}
	row := Row{
		RunID:      rec[0],
		Step:       rec[1],
		Group:      rec[2],
		Label:      rec[3],
		Repeat:     parseInt(rec[4]),
		ElapsedNS:  parseInt(rec[5]),
		Bytes:      parseInt(rec[7]),
		AllocBytes: parseInt(rec[8]),
	}
	ms, err := strconv.ParseFloat(rec[6], 64)
	errs = append(errs, err)
	row.ElapsedMS = ms
	return row, errors.Join(errs...)
}

// Describe returns a one-line description of an export for logging.
func Describe(path string, f Format) string {
	size, err := fileutil.Size(path)
	if err != nil {
		return fmt.Sprintf("%s (%s)", path, f)
	}
	return fmt.Sprintf("%s (%s, %s)", path, f, humanfmt.Bytes(size))
}

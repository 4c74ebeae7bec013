package stats

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVWriter appends rows to a CSV file, writing the header row only when the
// file is new or empty — so repeated sweep runs accumulate into one file
// instead of clobbering it, matching the teacher's SavetoFile append
// discipline (and the original driver's "_probability.csv"/"_size.csv"
// per-sweep output files, §4.6 / AttackEfficiencyController.cpp).
type CSVWriter struct {
	path   string
	header []string
}

func NewCSVWriter(path string, header []string) *CSVWriter {
	return &CSVWriter{path: path, header: header}
}

// Append writes rows to the file named by w.path, creating it (with a
// header) if it does not exist or is currently empty, and appending
// without a header otherwise.
func (w *CSVWriter) Append(rows [][]string) error {
	needsHeader, err := w.fileIsEmpty()
	if err != nil {
		return fmt.Errorf("cachefx: stat aggregation failed to stat %q: %w", w.path, err)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cachefx: stat aggregation failed to open %q: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader && len(w.header) > 0 {
		if err := cw.Write(w.header); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *CSVWriter) fileIsEmpty() (bool, error) {
	info, err := os.Stat(w.path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return info.Size() == 0, nil
}

package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ResultFileName is the result table filename inside the output directory.
const ResultFileName = "colony_counts.csv"

// csvHeader is a compatibility contract: callers parse colony_counts.csv by
// these column names.
var csvHeader = []string{"File Name", "True Count"}

// CountRecord is one result row: the plate's stem and its colony count.
// Produced exactly once per successfully processed image, never for a
// failed one.
type CountRecord struct {
	Stem  string
	Count int
}

// WriteCounts writes the full record set as the result table, header first,
// rows in the order given. An empty record set still produces a header-only
// file; the caller skips the write entirely when the worklist was empty.
func WriteCounts(path string, records []CountRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result table: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write result table: %w", err)
	}
	for _, rec := range records {
		if err := w.Write([]string{rec.Stem, strconv.Itoa(rec.Count)}); err != nil {
			f.Close()
			return fmt.Errorf("write result table: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write result table: %w", err)
	}
	return f.Close()
}

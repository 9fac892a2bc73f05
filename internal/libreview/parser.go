// Package libreview reads the CSV export produced by the LibreView
// portal for FreeStyle Libre sensors. The format is positional: a
// one-line export banner, a header row, then data rows whose meaning
// depends on the record type column.
package libreview

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glucograph/glucograph/internal/reading"
)

// Column positions in a LibreView export row.
const (
	colTimestamp  = 2
	colRecordType = 3
	colHistoric   = 4
	colScan       = 5
	colNotes      = 13
)

// Record types that carry chartable data. Other types (insulin and
// carbohydrate entries) are ignored.
const (
	recordHistoric = 0
	recordScan     = 1
	recordNote     = 6
)

// timeLayout matches the device timestamp column, e.g. "2025-10-27 08:15".
const timeLayout = "2006-01-02 15:04"

// ErrMissingHeader means the input ended before the banner and header
// rows, so it cannot be a LibreView export.
var ErrMissingHeader = errors.New("libreview: missing banner or header row")

// Stats counts what the parser did with the data rows.
type Stats struct {
	Total     int // data rows seen
	Kept      int // rows turned into readings
	Malformed int // rows dropped for bad timestamp, type or value
	Ignored   int // valid rows of record types we do not chart
}

// File is a parsed export. Readings preserves file order and may span
// several days.
type File struct {
	Readings []reading.Reading
	Stats    Stats
}

// Parse reads a LibreView CSV export. Malformed rows are counted and
// skipped rather than failing the whole file; only a structurally
// unusable input (no header) or a read failure returns an error.
func Parse(r io.Reader) (*File, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	// Banner line, then the column header.
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingHeader, err)
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingHeader, err)
	}

	f := &File{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				f.Stats.Total++
				f.Stats.Malformed++
				continue
			}
			return nil, fmt.Errorf("libreview: read failed: %w", err)
		}

		f.Stats.Total++
		rec, ok := parseRow(row, len(header))
		if !ok {
			f.Stats.Malformed++
			continue
		}
		if rec == nil {
			f.Stats.Ignored++
			continue
		}
		f.Readings = append(f.Readings, *rec)
		f.Stats.Kept++
	}

	return f, nil
}

// parseRow converts one data row. It returns (nil, true) for valid
// rows of record types we do not use, and (nil, false) for rows that
// cannot be trusted: short, unparseable, or carrying a non-positive
// glucose value.
func parseRow(row []string, headerLen int) (*reading.Reading, bool) {
	if len(row) < headerLen || len(row) <= colRecordType {
		return nil, false
	}

	ts, err := time.ParseInLocation(timeLayout, strings.TrimSpace(row[colTimestamp]), time.Local)
	if err != nil {
		return nil, false
	}

	recordType, err := strconv.Atoi(strings.TrimSpace(row[colRecordType]))
	if err != nil {
		return nil, false
	}

	switch recordType {
	case recordHistoric:
		v, ok := parseGlucose(row, colHistoric)
		if !ok {
			return nil, false
		}
		return &reading.Reading{Time: ts, Value: v, Kind: reading.Historic}, true

	case recordScan:
		v, ok := parseGlucose(row, colScan)
		if !ok {
			return nil, false
		}
		return &reading.Reading{Time: ts, Value: v, Kind: reading.Scan}, true

	case recordNote:
		if len(row) <= colNotes {
			return nil, false
		}
		return &reading.Reading{Time: ts, Note: row[colNotes], Kind: reading.Note}, true

	default:
		return nil, true
	}
}

// parseGlucose reads a glucose column. An empty cell is a sensor gap
// and yields a value-less reading; a present value must be a positive
// number to be believed.
func parseGlucose(row []string, col int) (float64, bool) {
	if len(row) <= col {
		return 0, false
	}
	cell := strings.TrimSpace(row[col])
	if cell == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Dates returns the distinct calendar days present in the file, as
// local midnights in ascending order.
func (f *File) Dates() []time.Time {
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, r := range f.Readings {
		day := time.Date(r.Time.Year(), r.Time.Month(), r.Time.Day(), 0, 0, 0, 0, r.Time.Location())
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Latest returns the most recent calendar day in the file, or false
// when the file holds no readings.
func (f *File) Latest() (time.Time, bool) {
	days := f.Dates()
	if len(days) == 0 {
		return time.Time{}, false
	}
	return days[len(days)-1], true
}

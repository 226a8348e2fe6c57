// Package ingest reads and prepares the discrepancy and comments feeds. It
// is upstream plumbing for the resolution engine: parsing, cleaning, and the
// Not-Found-SysB filter, but no classification logic.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"discern/internal/model"
)

// Feed column names as produced by the upstream reconciliation export.
const (
	colOrderID    = "txn_ref_id"
	colAmount     = "sys_a_amount_attribute_1"
	colDate       = "sys_a_date"
	colSysBStatus = "recon_sub_status"

	commentsColOrderID = "Transaction ID"
	commentsColComment = "Comments"
)

// DefaultNotFoundValue marks rows that have no match in System B.
const DefaultNotFoundValue = "Not Found-SysB"

// Row is one raw line of the discrepancy feed before it becomes a
// DiscrepancyRecord.
type Row struct {
	Date       time.Time
	OrderID    string
	SysBStatus string
	Amount     float64
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"02-Jan-2006",
}

// ReadDiscrepancies parses the discrepancy feed. Unknown columns are
// ignored; missing required columns fail the whole read. Unparseable
// amounts and dates are coerced to zero values rather than dropping rows.
func ReadDiscrepancies(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx, err := columnIndex(header, colOrderID, colAmount, colDate, colSysBStatus)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		row := Row{
			OrderID:    strings.TrimSpace(record[idx[colOrderID]]),
			SysBStatus: strings.TrimSpace(record[idx[colSysBStatus]]),
		}
		if row.OrderID == "" {
			continue
		}
		row.Amount = parseAmount(record[idx[colAmount]])
		row.Date = parseDate(record[idx[colDate]])
		rows = append(rows, row)
	}

	return rows, nil
}

// ReadDiscrepancyFile reads the discrepancy feed from a CSV file.
func ReadDiscrepancyFile(path string) ([]Row, error) {
	f, err := os.Open(path) // #nosec G304 -- user-supplied input path
	if err != nil {
		return nil, fmt.Errorf("failed to open discrepancy file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadDiscrepancies(f)
}

// ReadComments parses the comments feed into an order id → comment map.
// The comment may be empty; the engine routes such records to review.
func ReadComments(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx, err := columnIndex(header, commentsColOrderID, commentsColComment)
	if err != nil {
		return nil, err
	}

	comments := make(map[string]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		orderID := strings.TrimSpace(record[idx[commentsColOrderID]])
		if orderID == "" {
			continue
		}
		comments[orderID] = strings.TrimSpace(record[idx[commentsColComment]])
	}

	return comments, nil
}

// ReadCommentsFile reads the comments feed from a CSV file.
func ReadCommentsFile(path string) (map[string]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-supplied input path
	if err != nil {
		return nil, fmt.Errorf("failed to open comments file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadComments(f)
}

// Clean drops duplicate order ids, keeping the first occurrence.
func Clean(rows []Row) []Row {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		if _, ok := seen[row.OrderID]; ok {
			continue
		}
		seen[row.OrderID] = struct{}{}
		out = append(out, row)
	}
	return out
}

// FilterNotFound keeps the rows whose System B status contains the
// not-found marker.
func FilterNotFound(rows []Row, notFoundValue string) []Row {
	if notFoundValue == "" {
		notFoundValue = DefaultNotFoundValue
	}

	var out []Row
	for _, row := range rows {
		if strings.Contains(row.SysBStatus, notFoundValue) {
			out = append(out, row)
		}
	}
	return out
}

// Merge joins filtered rows with their resolution comments into the records
// the engine consumes. Rows without a comment still produce a record: every
// discrepancy gets a disposition, comment or not.
func Merge(rows []Row, comments map[string]string) []model.DiscrepancyRecord {
	records := make([]model.DiscrepancyRecord, len(rows))
	for i, row := range rows {
		records[i] = model.DiscrepancyRecord{
			OrderID: row.OrderID,
			Amount:  row.Amount,
			Date:    row.Date,
			Comment: comments[row.OrderID],
			Status:  model.StatusUnclassified,
		}
	}
	return records
}

// WriteCSV exports filtered rows in the reduced three-column shape the
// downstream upload expects.
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Transaction ID", "Amount", "Date"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		date := ""
		if !row.Date.IsZero() {
			date = row.Date.Format("2006-01-02")
		}
		record := []string{
			row.OrderID,
			strconv.FormatFloat(row.Amount, 'f', 2, 64),
			date,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile exports filtered rows to a file path.
func WriteCSVFile(path string, rows []Row) error {
	f, err := os.Create(path) // #nosec G304 -- user-supplied output path
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return WriteCSV(f, rows)
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("required column %q not found", name)
		}
	}
	return idx, nil
}

func parseAmount(s string) float64 {
	amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return amount
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package buyer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

// DefaultMaxRows is the hard cap on data rows per CSV import.
const DefaultMaxRows = 200

// RowError reports why one CSV data row was rejected. Row numbers are
// 1-indexed over data rows; the header row is not counted.
type RowError struct {
	Row    int          `json:"row"`
	Errors []FieldError `json:"errors"`
}

// ImportResult is the outcome of one import invocation.
type ImportResult struct {
	Inserted int        `json:"inserted"`
	Errors   []RowError `json:"errors"`
}

// Importer ingests CSV payloads of buyer rows. Rows are validated
// independently; all valid rows commit in a single transaction.
type Importer struct {
	store   store.Store
	log     *zap.Logger
	maxRows int
}

func NewImporter(s store.Store, log *zap.Logger, maxRows int) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Importer{store: s, log: log, maxRows: maxRows}
}

// Import parses csvText (header row + data rows) and inserts every valid
// row as a new buyer owned by actor.
//
// Failure modes, in order: a structurally malformed CSV fails the whole
// import before any row processing; more than maxRows data rows (counted
// after the full parse) fails with ErrRowLimitExceeded and commits
// nothing; per-row validation failures are collected in the result and
// never block sibling rows; a storage error during the commit rolls back
// the entire batch and surfaces as a StorageError.
func (im *Importer) Import(ctx context.Context, csvText string, actor Identity) (*ImportResult, error) {
	header, records, err := parseCSV(csvText)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	// Hard cutoff, checked after the full parse. Observable behavior: an
	// over-limit file parses completely and then fails wholesale.
	if len(records) > im.maxRows {
		return nil, ErrRowLimitExceeded
	}

	result := &ImportResult{Errors: []RowError{}}
	now := time.Now().UTC().Truncate(time.Millisecond)

	var staged []store.BatchItem
	for i, record := range records {
		rowNumber := i + 1

		input, fieldErrs := rowToInput(header, record)
		if len(fieldErrs) == 0 {
			fieldErrs = input.Validate()
		}
		if len(fieldErrs) > 0 {
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Errors: fieldErrs})
			continue
		}

		b := input.ToBuyer(actor.UserID, now)
		staged = append(staged, store.BatchItem{
			Buyer: b,
			History: &models.BuyerHistory{
				BuyerID:   b.ID,
				ChangedBy: actor.UserID,
				ChangedAt: now,
				Diff:      models.ImportedDiff(models.Snapshot(b), rowNumber),
			},
		})
	}

	if len(staged) > 0 {
		if err := im.store.CreateBatch(ctx, staged); err != nil {
			im.log.Error("import commit failed, batch rolled back",
				zap.Int("staged", len(staged)), zap.Error(err))
			return nil, &StorageError{Err: err}
		}
	}
	result.Inserted = len(staged)

	im.log.Info("csv import finished",
		zap.String("imported_by", actor.UserID),
		zap.Int("inserted", result.Inserted),
		zap.Int("rejected", len(result.Errors)))

	return result, nil
}

// parseCSV reads the header and all data rows up front.
func parseCSV(csvText string) ([]string, [][]string, error) {
	reader := csv.NewReader(strings.NewReader(csvText))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty csv")
	}
	if err != nil {
		return nil, nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return header, records, nil
}

// rowToInput maps one record onto the header columns and coerces typed
// fields. Unknown columns are ignored; blank optional values are absent.
func rowToInput(header []string, record []string) (*Input, []FieldError) {
	row := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(record) {
			row[name] = strings.TrimSpace(record[i])
		}
	}

	input := &Input{
		FullName:     row["fullName"],
		Email:        row["email"],
		Phone:        row["phone"],
		City:         row["city"],
		PropertyType: row["propertyType"],
		BHK:          row["bhk"],
		Purpose:      row["purpose"],
		Timeline:     row["timeline"],
		Source:       row["source"],
		Status:       row["status"],
		Notes:        row["notes"],
	}

	var fieldErrs []FieldError

	if v := row["budgetMin"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{"budgetMin", "Budget minimum must be an integer"})
		} else {
			input.BudgetMin = &n
		}
	}
	if v := row["budgetMax"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{"budgetMax", "Budget maximum must be an integer"})
		} else {
			input.BudgetMax = &n
		}
	}

	if v := row["tags"]; v != "" {
		input.Tags = strings.Split(v, ",")
	}

	return input, fieldErrs
}

package buyer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

const importHeader = "fullName,email,phone,city,propertyType,bhk,purpose,budgetMin,budgetMax,timeline,source,notes,tags,status"

func importRow(name, phone string) string {
	return fmt.Sprintf("%s,,%s,Chandigarh,Apartment,2,Buy,,,0-3m,Website,,,", name, phone)
}

func buildCSV(rows ...string) string {
	return importHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestImportAllRowsValid(t *testing.T) {
	s := store.NewMemoryStore()
	im := NewImporter(s, nil, 0)

	csvText := buildCSV(
		importRow("Asha Verma", "9876543210"),
		importRow("Rohan Gupta", "9876543211"),
		importRow("Neha Singh", "9876543212"),
	)

	result, err := im.Import(context.Background(), csvText, Identity{UserID: "importer"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Empty(t, result.Errors)

	all, err := s.ListAll(context.Background(), store.Filters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, b := range all {
		assert.Equal(t, "importer", b.OwnerID)
		assert.Equal(t, models.StatusNew, b.Status)
	}
}

func TestImportCollectsRowErrors(t *testing.T) {
	s := store.NewMemoryStore()
	im := NewImporter(s, nil, 0)

	csvText := buildCSV(
		importRow("Asha Verma", "9876543210"),
		importRow("Rohan Gupta", "bad"),
		importRow("Neha Singh", "9876543212"),
	)

	result, err := im.Import(context.Background(), csvText, Identity{UserID: "importer"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	require.Len(t, result.Errors[0].Errors, 1)
	assert.Equal(t, "phone", result.Errors[0].Errors[0].Field)
	assert.Equal(t, "Phone must be 10-15 digits", result.Errors[0].Errors[0].Message)

	// The invalid row never reaches the store.
	all, err := s.ListAll(context.Background(), store.Filters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImportRowLimit(t *testing.T) {
	s := store.NewMemoryStore()
	im := NewImporter(s, nil, 200)

	rows := make([]string, 201)
	for i := range rows {
		rows[i] = importRow(fmt.Sprintf("Buyer %03d", i), fmt.Sprintf("98765%05d", i))
	}

	_, err := im.Import(context.Background(), buildCSV(rows...), Identity{UserID: "importer"})
	assert.ErrorIs(t, err, ErrRowLimitExceeded)

	all, err := s.ListAll(context.Background(), store.Filters{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImportExactlyAtLimit(t *testing.T) {
	s := store.NewMemoryStore()
	im := NewImporter(s, nil, 5)

	rows := make([]string, 5)
	for i := range rows {
		rows[i] = importRow(fmt.Sprintf("Buyer %d", i), fmt.Sprintf("98765432%02d", i))
	}

	result, err := im.Import(context.Background(), buildCSV(rows...), Identity{UserID: "importer"})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Inserted)
}

func TestImportEmptyCSV(t *testing.T) {
	im := NewImporter(store.NewMemoryStore(), nil, 0)

	_, err := im.Import(context.Background(), "", Identity{UserID: "importer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse csv")
}

func TestImportMalformedCSV(t *testing.T) {
	im := NewImporter(store.NewMemoryStore(), nil, 0)

	// Unterminated quote makes the reader fail mid-parse.
	csvText := importHeader + "\n\"Asha,,9876543210\n"
	_, err := im.Import(context.Background(), csvText, Identity{UserID: "importer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse csv")
}

func TestImportBudgetCoercion(t *testing.T) {
	s := store.NewMemoryStore()
	im := NewImporter(s, nil, 0)

	csvText := buildCSV(
		"Asha Verma,,9876543210,Chandigarh,Apartment,2,Buy,2000000,3000000,0-3m,Website,,,",
		"Rohan Gupta,,9876543211,Mohali,Plot,,Buy,lots,,0-3m,Website,,,",
	)

	result, err := im.Import(context.Background(), csvText, Identity{UserID: "importer"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, "budgetMin", result.Errors[0].Errors[0].Field)
	assert.Equal(t, "Budget minimum must be an integer", result.Errors[0].Errors[0].Message)

	all, err := s.ListAll(context.Background(), store.Filters{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].BudgetMin)
	assert.Equal(t, 2000000, *all[0].BudgetMin)
}

func TestImportTagsSplit(t *testing.T) {
	s := store.NewMemoryStore()
	im := NewImporter(s, nil, 0)

	csvText := buildCSV(
		`Asha Verma,,9876543210,Chandigarh,Apartment,2,Buy,,,0-3m,Website,,"vip, nri ,vip",`,
	)

	result, err := im.Import(context.Background(), csvText, Identity{UserID: "importer"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Inserted)

	all, err := s.ListAll(context.Background(), store.Filters{})
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"vip", "nri"}, all[0].Tags)
}

func TestImportWritesHistoryWithRowNumbers(t *testing.T) {
	s := store.NewMemoryStore()
	im := NewImporter(s, nil, 0)

	csvText := buildCSV(
		importRow("Asha Verma", "9876543210"),
		importRow("Rohan Gupta", "9876543211"),
	)

	_, err := im.Import(context.Background(), csvText, Identity{UserID: "importer"})
	require.NoError(t, err)

	all, err := s.ListAll(context.Background(), store.Filters{})
	require.NoError(t, err)

	rows := map[int]bool{}
	for _, b := range all {
		entries, err := s.ListHistory(context.Background(), b.ID, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.ActionImported, entries[0].Diff.Action)
		assert.Equal(t, "importer", entries[0].ChangedBy)
		rows[entries[0].Diff.Row] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true}, rows)
}

// failingBatchStore simulates a storage failure during the batch commit.
type failingBatchStore struct {
	*store.MemoryStore
}

func (s *failingBatchStore) CreateBatch(ctx context.Context, items []store.BatchItem) error {
	return errors.New("deadlock detected")
}

func TestImportStorageFailureRollsBack(t *testing.T) {
	s := &failingBatchStore{MemoryStore: store.NewMemoryStore()}
	im := NewImporter(s, nil, 0)

	csvText := buildCSV(importRow("Asha Verma", "9876543210"))
	_, err := im.Import(context.Background(), csvText, Identity{UserID: "importer"})

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)

	all, listErr := s.ListAll(context.Background(), store.Filters{})
	require.NoError(t, listErr)
	assert.Empty(t, all)
}

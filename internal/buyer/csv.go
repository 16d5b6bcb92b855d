package buyer

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
)

// ExportHeader is the CSV column order for exports. Re-importing an
// exported file reproduces the same field values; extra columns in an
// import are ignored.
var ExportHeader = []string{
	"fullName", "email", "phone", "city", "propertyType", "bhk",
	"purpose", "budgetMin", "budgetMax", "timeline", "source",
	"notes", "tags", "status",
}

// WriteCSV writes buyers as CSV, header row first.
func WriteCSV(w io.Writer, buyers []models.Buyer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ExportHeader); err != nil {
		return err
	}
	for i := range buyers {
		if err := writer.Write(exportRecord(&buyers[i])); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func exportRecord(b *models.Buyer) []string {
	return []string{
		b.FullName,
		b.Email,
		b.Phone,
		string(b.City),
		string(b.PropertyType),
		string(b.BHK),
		string(b.Purpose),
		intPtrString(b.BudgetMin),
		intPtrString(b.BudgetMax),
		string(b.Timeline),
		string(b.Source),
		b.Notes,
		strings.Join(b.Tags, ","),
		string(b.Status),
	}
}

func intPtrString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

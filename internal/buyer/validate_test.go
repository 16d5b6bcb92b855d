package buyer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
)

func validInput() *Input {
	return &Input{
		FullName:     "Asha Verma",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		City:         "Chandigarh",
		PropertyType: "Apartment",
		BHK:          "2",
		Purpose:      "Buy",
		Timeline:     "0-3m",
		Source:       "Website",
	}
}

func intPtr(v int) *int { return &v }

func fieldNames(errs []FieldError) []string {
	names := make([]string, 0, len(errs))
	for _, e := range errs {
		names = append(names, e.Field)
	}
	return names
}

func TestValidateAcceptsMinimalInput(t *testing.T) {
	in := validInput()
	assert.Empty(t, in.Validate())
}

func TestValidateFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"short name", func(in *Input) { in.FullName = "A" }, "fullName"},
		{"long name", func(in *Input) { in.FullName = strings.Repeat("x", 81) }, "fullName"},
		{"bad email", func(in *Input) { in.Email = "not-an-email" }, "email"},
		{"short phone", func(in *Input) { in.Phone = "12345" }, "phone"},
		{"non-numeric phone", func(in *Input) { in.Phone = "98765abcde" }, "phone"},
		{"unknown city", func(in *Input) { in.City = "Delhi" }, "city"},
		{"unknown property type", func(in *Input) { in.PropertyType = "Farmhouse" }, "propertyType"},
		{"unknown bhk", func(in *Input) { in.BHK = "5" }, "bhk"},
		{"unknown purpose", func(in *Input) { in.Purpose = "Lease" }, "purpose"},
		{"unknown timeline", func(in *Input) { in.Timeline = "soon" }, "timeline"},
		{"unknown source", func(in *Input) { in.Source = "TV" }, "source"},
		{"unknown status", func(in *Input) { in.Status = "Archived" }, "status"},
		{"negative budget min", func(in *Input) { in.BudgetMin = intPtr(-1) }, "budgetMin"},
		{"max below min", func(in *Input) {
			in.BudgetMin = intPtr(5000000)
			in.BudgetMax = intPtr(4000000)
		}, "budgetMax"},
		{"long notes", func(in *Input) { in.Notes = strings.Repeat("n", 1001) }, "notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			errs := in.Validate()
			assert.Contains(t, fieldNames(errs), tt.field)
		})
	}
}

func TestValidateBHKRequiredForApartmentAndVilla(t *testing.T) {
	for _, pt := range []string{"Apartment", "Villa"} {
		in := validInput()
		in.PropertyType = pt
		in.BHK = ""
		errs := in.Validate()
		require.Len(t, errs, 1)
		assert.Equal(t, "bhk", errs[0].Field)
		assert.Equal(t, "BHK is required for Apartment and Villa property types", errs[0].Message)
	}
}

func TestValidateBHKOptionalForOtherTypes(t *testing.T) {
	for _, pt := range []string{"Plot", "Office", "Retail"} {
		in := validInput()
		in.PropertyType = pt
		in.BHK = ""
		assert.Empty(t, in.Validate(), "property type %s", pt)
	}
}

func TestValidateEmailOptional(t *testing.T) {
	in := validInput()
	in.Email = ""
	assert.Empty(t, in.Validate())
}

func TestValidateEqualBudgetsAccepted(t *testing.T) {
	in := validInput()
	in.BudgetMin = intPtr(3000000)
	in.BudgetMax = intPtr(3000000)
	assert.Empty(t, in.Validate())
}

func TestValidateCollectsAllFailures(t *testing.T) {
	in := &Input{FullName: "X", Phone: "abc", City: "Nowhere"}
	errs := in.Validate()
	names := fieldNames(errs)
	assert.Contains(t, names, "fullName")
	assert.Contains(t, names, "phone")
	assert.Contains(t, names, "city")
}

func TestToBuyerDefaults(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	in := validInput()
	in.Tags = []string{" vip ", "vip", "", "nri"}

	b := in.ToBuyer("user-1", now)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "user-1", b.OwnerID)
	assert.Equal(t, models.StatusNew, b.Status)
	assert.Equal(t, models.StringList{"vip", "nri"}, b.Tags)
	assert.True(t, b.CreatedAt.Equal(now))
	assert.True(t, b.UpdatedAt.Equal(now))
}

func TestToBuyerKeepsExplicitStatus(t *testing.T) {
	in := validInput()
	in.Status = "Qualified"

	b := in.ToBuyer("user-1", time.Now().UTC())
	assert.Equal(t, models.StatusQualified, b.Status)
}

func TestToBuyerClearsBHKForNonResidential(t *testing.T) {
	in := validInput()
	in.PropertyType = "Plot"
	in.BHK = "2"

	b := in.ToBuyer("user-1", time.Now().UTC())
	assert.Empty(t, string(b.BHK))
}

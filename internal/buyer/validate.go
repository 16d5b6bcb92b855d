package buyer

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
)

var (
	phonePattern = regexp.MustCompile(`^\d{10,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Identity is the acting user as seen by the core flows.
type Identity struct {
	UserID string
	Admin  bool
}

// Input is a full buyer payload, as submitted by a create request or one
// CSV data row. Blank optional strings are treated as absent.
type Input struct {
	FullName     string   `json:"fullName"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	City         string   `json:"city"`
	PropertyType string   `json:"propertyType"`
	BHK          string   `json:"bhk"`
	Purpose      string   `json:"purpose"`
	BudgetMin    *int     `json:"budgetMin"`
	BudgetMax    *int     `json:"budgetMax"`
	Timeline     string   `json:"timeline"`
	Source       string   `json:"source"`
	Status       string   `json:"status"`
	Notes        string   `json:"notes"`
	Tags         []string `json:"tags"`
}

// Validate checks every field rule and returns one error per offending
// field. An empty result means the input is acceptable.
func (in *Input) Validate() []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(in.FullName)
	if len(name) < 2 {
		errs = append(errs, FieldError{"fullName", "Full name must be at least 2 characters"})
	} else if len(name) > 80 {
		errs = append(errs, FieldError{"fullName", "Full name must be at most 80 characters"})
	}

	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		errs = append(errs, FieldError{"email", "Invalid email format"})
	}

	if !phonePattern.MatchString(in.Phone) {
		errs = append(errs, FieldError{"phone", "Phone must be 10-15 digits"})
	}

	if !models.ValidCity(in.City) {
		errs = append(errs, FieldError{"city", "Invalid city"})
	}

	propertyTypeOK := models.ValidPropertyType(in.PropertyType)
	if !propertyTypeOK {
		errs = append(errs, FieldError{"propertyType", "Invalid property type"})
	}

	if in.BHK != "" && !models.ValidBHK(in.BHK) {
		errs = append(errs, FieldError{"bhk", "Invalid BHK value"})
	}
	if propertyTypeOK && requiresBHK(in.PropertyType) && in.BHK == "" {
		errs = append(errs, FieldError{"bhk", "BHK is required for Apartment and Villa property types"})
	}

	if !models.ValidPurpose(in.Purpose) {
		errs = append(errs, FieldError{"purpose", "Invalid purpose"})
	}

	if in.BudgetMin != nil && *in.BudgetMin <= 0 {
		errs = append(errs, FieldError{"budgetMin", "Budget minimum must be positive"})
	}
	if in.BudgetMax != nil && *in.BudgetMax <= 0 {
		errs = append(errs, FieldError{"budgetMax", "Budget maximum must be positive"})
	}
	if in.BudgetMin != nil && *in.BudgetMin > 0 && in.BudgetMax != nil && *in.BudgetMax > 0 &&
		*in.BudgetMax < *in.BudgetMin {
		errs = append(errs, FieldError{"budgetMax", "Budget maximum must be greater than or equal to budget minimum"})
	}

	if !models.ValidTimeline(in.Timeline) {
		errs = append(errs, FieldError{"timeline", "Invalid timeline"})
	}

	if !models.ValidSource(in.Source) {
		errs = append(errs, FieldError{"source", "Invalid source"})
	}

	if in.Status != "" && !models.ValidStatus(in.Status) {
		errs = append(errs, FieldError{"status", "Invalid status"})
	}

	if len(in.Notes) > 1000 {
		errs = append(errs, FieldError{"notes", "Notes must be at most 1000 characters"})
	}

	return errs
}

// ToBuyer materializes a validated input into a new record owned by ownerID.
// Status defaults to New, BHK is kept only where the property type calls
// for it, and createdAt/updatedAt are both set to now.
func (in *Input) ToBuyer(ownerID string, now time.Time) *models.Buyer {
	b := &models.Buyer{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        in.Email,
		Phone:        in.Phone,
		City:         models.City(in.City),
		PropertyType: models.PropertyType(in.PropertyType),
		Purpose:      models.Purpose(in.Purpose),
		BudgetMin:    in.BudgetMin,
		BudgetMax:    in.BudgetMax,
		Timeline:     models.Timeline(in.Timeline),
		Source:       models.Source(in.Source),
		Status:       models.StatusNew,
		Notes:        in.Notes,
		Tags:         models.StringList(normalizeTags(in.Tags)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Status != "" {
		b.Status = models.Status(in.Status)
	}
	if requiresBHK(in.PropertyType) || in.BHK != "" {
		b.BHK = models.BHK(in.BHK)
	}
	if !b.NeedsBHK() {
		b.BHK = ""
	}
	return b
}

func requiresBHK(propertyType string) bool {
	return propertyType == string(models.PropertyApartment) ||
		propertyType == string(models.PropertyVilla)
}

// normalizeTags trims entries, drops blanks and keeps first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// validateBuyer re-checks a merged record after a partial update.
func validateBuyer(b *models.Buyer) []FieldError {
	in := Input{
		FullName:     b.FullName,
		Email:        b.Email,
		Phone:        b.Phone,
		City:         string(b.City),
		PropertyType: string(b.PropertyType),
		BHK:          string(b.BHK),
		Purpose:      string(b.Purpose),
		BudgetMin:    b.BudgetMin,
		BudgetMax:    b.BudgetMax,
		Timeline:     string(b.Timeline),
		Source:       string(b.Source),
		Status:       string(b.Status),
		Notes:        b.Notes,
		Tags:         b.Tags,
	}
	return in.Validate()
}

package buyer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

// UpdatePayload is a partial buyer update. Nil pointers mean "leave the
// field alone"; supplied empty strings clear optional fields. UpdatedAt is
// the client's version token (RFC3339), checked against the stored value.
type UpdatePayload struct {
	FullName     *string  `json:"fullName"`
	Email        *string  `json:"email"`
	Phone        *string  `json:"phone"`
	City         *string  `json:"city"`
	PropertyType *string  `json:"propertyType"`
	BHK          *string  `json:"bhk"`
	Purpose      *string  `json:"purpose"`
	BudgetMin    *int     `json:"budgetMin"`
	BudgetMax    *int     `json:"budgetMax"`
	Timeline     *string  `json:"timeline"`
	Source       *string  `json:"source"`
	Status       *string  `json:"status"`
	Notes        *string  `json:"notes"`
	Tags         []string `json:"tags"`
	UpdatedAt    *string  `json:"updatedAt"`
}

// Updater applies partial updates to single buyers, enforcing ownership
// and optimistic-concurrency rules and recording a field-level diff.
type Updater struct {
	store store.Store
	log   *zap.Logger
}

func NewUpdater(s store.Store, log *zap.Logger) *Updater {
	if log == nil {
		log = zap.NewNop()
	}
	return &Updater{store: s, log: log}
}

// Update merges patch into the buyer identified by id.
//
// Precondition order: the buyer must exist (ErrNotFound), the actor must
// own it or be an admin (ErrForbidden), and a supplied version token must
// equal the stored updatedAt (ConflictError). A no-op patch still succeeds
// and advances updatedAt, but writes no history entry.
func (u *Updater) Update(ctx context.Context, id string, actor Identity, patch UpdatePayload) (*models.Buyer, error) {
	existing, err := u.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if existing.OwnerID != actor.UserID && !actor.Admin {
		return nil, ErrForbidden
	}

	if patch.UpdatedAt != nil && *patch.UpdatedAt != "" {
		token, err := time.Parse(time.RFC3339Nano, *patch.UpdatedAt)
		if err != nil {
			return nil, &ValidationError{Fields: []FieldError{
				{Field: "updatedAt", Message: "Invalid timestamp"},
			}}
		}
		if !token.Equal(existing.UpdatedAt) {
			return nil, &ConflictError{CurrentUpdatedAt: existing.UpdatedAt}
		}
	}

	merged := *existing
	merged.Tags = append(models.StringList(nil), existing.Tags...)
	changes := patch.apply(&merged)

	if fieldErrs := validateBuyer(&merged); len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	merged.UpdatedAt = nextVersion(existing.UpdatedAt)

	err = u.store.Update(ctx, &merged, existing.UpdatedAt)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(err, store.ErrStaleVersion) {
		// Another writer advanced the record between our read and write.
		current, readErr := u.store.FindByID(ctx, id)
		if readErr != nil {
			return nil, &ConflictError{CurrentUpdatedAt: existing.UpdatedAt}
		}
		return nil, &ConflictError{CurrentUpdatedAt: current.UpdatedAt}
	}
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		entry := &models.BuyerHistory{
			BuyerID:   merged.ID,
			ChangedBy: actor.UserID,
			ChangedAt: merged.UpdatedAt,
			Diff:      models.UpdatedDiff(changes),
		}
		if err := u.store.AppendHistory(ctx, entry); err != nil {
			u.log.Warn("failed to record buyer history",
				zap.String("buyer_id", merged.ID), zap.Error(err))
		}
	}

	u.log.Info("buyer updated",
		zap.String("buyer_id", merged.ID),
		zap.String("changed_by", actor.UserID),
		zap.Int("changed_fields", len(changes)))

	return &merged, nil
}

// apply merges the supplied fields into b and returns the per-field diff.
// Fields whose serialized value is unchanged are excluded.
func (p *UpdatePayload) apply(b *models.Buyer) map[string]models.FieldChange {
	changes := make(map[string]models.FieldChange)

	setString := func(field string, target *string, value *string) {
		if value == nil {
			return
		}
		if *target != *value {
			changes[field] = models.FieldChange{From: *target, To: *value}
		}
		*target = *value
	}

	setString("fullName", &b.FullName, p.FullName)
	setString("email", &b.Email, p.Email)
	setString("phone", &b.Phone, p.Phone)
	setString("notes", &b.Notes, p.Notes)

	setEnum := func(field string, current string, value *string, assign func(string)) {
		if value == nil {
			return
		}
		if current != *value {
			changes[field] = models.FieldChange{From: current, To: *value}
		}
		assign(*value)
	}

	setEnum("city", string(b.City), p.City, func(v string) { b.City = models.City(v) })
	setEnum("propertyType", string(b.PropertyType), p.PropertyType, func(v string) { b.PropertyType = models.PropertyType(v) })
	setEnum("bhk", string(b.BHK), p.BHK, func(v string) { b.BHK = models.BHK(v) })
	setEnum("purpose", string(b.Purpose), p.Purpose, func(v string) { b.Purpose = models.Purpose(v) })
	setEnum("timeline", string(b.Timeline), p.Timeline, func(v string) { b.Timeline = models.Timeline(v) })
	setEnum("source", string(b.Source), p.Source, func(v string) { b.Source = models.Source(v) })
	setEnum("status", string(b.Status), p.Status, func(v string) { b.Status = models.Status(v) })

	setInt := func(field string, target **int, value *int) {
		if value == nil {
			return
		}
		if !intPtrEqual(*target, value) {
			changes[field] = models.FieldChange{From: intPtrValue(*target), To: *value}
		}
		v := *value
		*target = &v
	}

	setInt("budgetMin", &b.BudgetMin, p.BudgetMin)
	setInt("budgetMax", &b.BudgetMax, p.BudgetMax)

	if p.Tags != nil {
		tags := normalizeTags(p.Tags)
		if !jsonEqual([]string(b.Tags), tags) {
			changes["tags"] = models.FieldChange{From: []string(b.Tags), To: tags}
		}
		b.Tags = models.StringList(tags)
	}

	// The BHK invariant follows the property type: a carried or explicitly
	// patched BHK is dropped when the merged type no longer calls for one,
	// and the drop shows up in the diff as a transition from the pre-patch
	// value.
	if !b.NeedsBHK() && b.BHK != "" {
		from := string(b.BHK)
		if prev, ok := changes["bhk"]; ok {
			if s, ok := prev.From.(string); ok {
				from = s
			}
		}
		b.BHK = ""
		if from == "" {
			delete(changes, "bhk")
		} else {
			changes["bhk"] = models.FieldChange{From: from, To: ""}
		}
	}

	return changes
}

// nextVersion returns now, nudged forward if the clock has not advanced
// past the previous token. updatedAt must strictly advance on every write.
func nextVersion(prev time.Time) time.Time {
	next := time.Now().UTC().Truncate(time.Millisecond)
	if !next.After(prev) {
		next = prev.Add(time.Millisecond)
	}
	return next
}

func intPtrEqual(a, b *int) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func intPtrValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func jsonEqual(a, b interface{}) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

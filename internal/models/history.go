package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BuyerHistory is an immutable audit record of one mutation to a Buyer.
// Entries are never updated; they are only appended.
type BuyerHistory struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID   string    `gorm:"type:varchar(36);not null;index" json:"buyerId"`
	ChangedBy string    `gorm:"type:varchar(36);not null" json:"changedBy"`
	ChangedAt time.Time `gorm:"type:datetime(3);not null;index" json:"changedAt"`
	Diff      Diff      `gorm:"type:text" json:"diff"`
}

func (BuyerHistory) TableName() string {
	return "buyer_history"
}

// DiffAction discriminates the kinds of recorded mutations.
type DiffAction string

const (
	ActionCreated  DiffAction = "created"
	ActionUpdated  DiffAction = "updated"
	ActionDeleted  DiffAction = "deleted"
	ActionImported DiffAction = "imported"
)

// FieldChange captures one field's transition inside an update diff.
type FieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// Diff describes what a history entry records. Action is always set;
// Changes is present for updates, Data for create/delete/import, and
// Row for imports (1-indexed CSV data row).
type Diff struct {
	Action  DiffAction             `json:"action"`
	Changes map[string]FieldChange `json:"changes,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Row     int                    `json:"row,omitempty"`
}

// CreatedDiff records a freshly created buyer.
func CreatedDiff(data map[string]interface{}) Diff {
	return Diff{Action: ActionCreated, Data: data}
}

// UpdatedDiff records a per-field change map.
func UpdatedDiff(changes map[string]FieldChange) Diff {
	return Diff{Action: ActionUpdated, Changes: changes}
}

// DeletedDiff records the final state of a buyer before removal.
func DeletedDiff(data map[string]interface{}) Diff {
	return Diff{Action: ActionDeleted, Data: data}
}

// ImportedDiff records a buyer created by CSV import, with its source row.
func ImportedDiff(data map[string]interface{}, row int) Diff {
	return Diff{Action: ActionImported, Data: data, Row: row}
}

func (d Diff) Value() (driver.Value, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (d *Diff) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*d = Diff{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Diff", src)
	}
	return json.Unmarshal(data, d)
}

// Snapshot serializes a buyer into the map shape stored in create, delete
// and import diffs.
func Snapshot(b *Buyer) map[string]interface{} {
	m := map[string]interface{}{
		"fullName":     b.FullName,
		"phone":        b.Phone,
		"city":         string(b.City),
		"propertyType": string(b.PropertyType),
		"purpose":      string(b.Purpose),
		"timeline":     string(b.Timeline),
		"source":       string(b.Source),
		"status":       string(b.Status),
		"tags":         []string(b.Tags),
	}
	if b.Email != "" {
		m["email"] = b.Email
	}
	if b.BHK != "" {
		m["bhk"] = string(b.BHK)
	}
	if b.BudgetMin != nil {
		m["budgetMin"] = *b.BudgetMin
	}
	if b.BudgetMax != nil {
		m["budgetMax"] = *b.BudgetMax
	}
	if b.Notes != "" {
		m["notes"] = b.Notes
	}
	return m
}

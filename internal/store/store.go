// Package store abstracts buyer persistence so the core flows can run
// against MySQL (GORM), raw PostgreSQL, or an in-memory map.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
)

var (
	// ErrNotFound is returned when a buyer id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStaleVersion is returned by Update when the expected updatedAt no
	// longer matches the stored row, i.e. another writer got there first.
	ErrStaleVersion = errors.New("stale version")
)

// BatchItem pairs a new buyer with its history entry for transactional
// bulk insert.
type BatchItem struct {
	Buyer   *models.Buyer
	History *models.BuyerHistory
}

// Filters narrows and orders buyer listings. Zero values mean "no filter".
type Filters struct {
	Search       string // matches fullName (case-insensitive), phone, email
	City         string
	PropertyType string
	Status       string
	Timeline     string
	SortBy       string // fullName | createdAt | updatedAt (default updatedAt)
	SortOrder    string // asc | desc (default desc)
	Page         int    // 1-based
	Limit        int
}

// Page is one page of a buyer listing.
type Page struct {
	Buyers     []models.Buyer `json:"buyers"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"totalPages"`
	HasNext    bool           `json:"hasNext"`
	HasPrev    bool           `json:"hasPrev"`
}

// Stats summarizes the dataset for the admin dashboard.
type Stats struct {
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"by_status"`
	ByCity         map[string]int64 `json:"by_city"`
	CreatedLast24h int64            `json:"created_last_24h"`
	ChangesLast7d  int64            `json:"changes_last_7_days"`
}

// Store is the persistence collaborator consumed by the buyer flows.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.Buyer, error)

	// Create inserts a buyer together with its "created" history entry.
	Create(ctx context.Context, b *models.Buyer, entry *models.BuyerHistory) error

	// Update persists the full record, conditioned on the stored updatedAt
	// equalling expected. Returns ErrStaleVersion when the condition fails
	// and ErrNotFound when the row is gone.
	Update(ctx context.Context, b *models.Buyer, expected time.Time) error

	// Delete removes a buyer after appending its final history entry.
	// The entry outlives the buyer.
	Delete(ctx context.Context, id string, entry *models.BuyerHistory) error

	// CreateBatch inserts all items (buyers plus history entries) inside a
	// single transaction. Any failure rolls back the entire batch.
	CreateBatch(ctx context.Context, items []BatchItem) error

	AppendHistory(ctx context.Context, entry *models.BuyerHistory) error
	ListHistory(ctx context.Context, buyerID string, limit int) ([]models.BuyerHistory, error)

	List(ctx context.Context, f Filters) (*Page, error)
	// ListAll applies the same filters without pagination (export, reindex).
	ListAll(ctx context.Context, f Filters) ([]models.Buyer, error)

	Stats(ctx context.Context) (*Stats, error)
}

const (
	defaultLimit = 10
	maxLimit     = 50
)

// normalize clamps pagination and sorting to supported values.
func (f *Filters) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	switch f.SortBy {
	case "fullName", "createdAt", "updatedAt":
	default:
		f.SortBy = "updatedAt"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

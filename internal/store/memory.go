package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
)

// MemoryStore keeps buyers in process memory. It backs tests and the
// database-less demo mode.
type MemoryStore struct {
	mu      sync.RWMutex
	buyers  map[string]models.Buyer
	history []models.BuyerHistory
	nextID  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buyers: make(map[string]models.Buyer),
		nextID: 1,
	}
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buyers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneBuyer(b)
	return &out, nil
}

func (s *MemoryStore) Create(_ context.Context, b *models.Buyer, entry *models.BuyerHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buyers[b.ID] = cloneBuyer(*b)
	if entry != nil {
		s.appendHistoryLocked(entry)
	}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, b *models.Buyer, expected time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.buyers[b.ID]
	if !ok {
		return ErrNotFound
	}
	if !current.UpdatedAt.Equal(expected) {
		return ErrStaleVersion
	}

	updated := cloneBuyer(*b)
	updated.OwnerID = current.OwnerID
	updated.CreatedAt = current.CreatedAt
	s.buyers[b.ID] = updated
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string, entry *models.BuyerHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buyers[id]; !ok {
		return ErrNotFound
	}
	if entry != nil {
		s.appendHistoryLocked(entry)
	}
	delete(s.buyers, id)
	return nil
}

func (s *MemoryStore) CreateBatch(_ context.Context, items []BatchItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.buyers[item.Buyer.ID] = cloneBuyer(*item.Buyer)
		if item.History != nil {
			item.History.BuyerID = item.Buyer.ID
			s.appendHistoryLocked(item.History)
		}
	}
	return nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, entry *models.BuyerHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendHistoryLocked(entry)
	return nil
}

func (s *MemoryStore) appendHistoryLocked(entry *models.BuyerHistory) {
	entry.ID = s.nextID
	s.nextID++
	s.history = append(s.history, *entry)
}

func (s *MemoryStore) ListHistory(_ context.Context, buyerID string, limit int) ([]models.BuyerHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []models.BuyerHistory
	for _, e := range s.history {
		if e.BuyerID == buyerID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ChangedAt.Equal(entries[j].ChangedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].ChangedAt.After(entries[j].ChangedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStore) List(ctx context.Context, f Filters) (*Page, error) {
	f.normalize()

	all, err := s.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}

	total := int64(len(all))
	totalPages := int((total + int64(f.Limit) - 1) / int64(f.Limit))

	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}

	return &Page{
		Buyers:     all[start:end],
		Page:       f.Page,
		Limit:      f.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    f.Page < totalPages,
		HasPrev:    f.Page > 1,
	}, nil
}

func (s *MemoryStore) ListAll(_ context.Context, f Filters) ([]models.Buyer, error) {
	f.normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Buyer, 0, len(s.buyers))
	for _, b := range s.buyers {
		if !matches(&b, f) {
			continue
		}
		matched = append(matched, cloneBuyer(b))
	}

	sort.Slice(matched, func(i, j int) bool {
		less := false
		switch f.SortBy {
		case "fullName":
			less = matched[i].FullName < matched[j].FullName
		case "createdAt":
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		default:
			less = matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		}
		if f.SortOrder == "asc" {
			return less
		}
		return !less
	})

	return matched, nil
}

func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		ByStatus: make(map[string]int64),
		ByCity:   make(map[string]int64),
	}
	last24h := time.Now().Add(-24 * time.Hour)
	for _, b := range s.buyers {
		stats.Total++
		stats.ByStatus[string(b.Status)]++
		stats.ByCity[string(b.City)]++
		if b.CreatedAt.After(last24h) {
			stats.CreatedLast24h++
		}
	}
	last7d := time.Now().AddDate(0, 0, -7)
	for _, e := range s.history {
		if e.ChangedAt.After(last7d) {
			stats.ChangesLast7d++
		}
	}
	return stats, nil
}

func matches(b *models.Buyer, f Filters) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(b.FullName), needle) &&
			!strings.Contains(b.Phone, f.Search) &&
			!strings.Contains(strings.ToLower(b.Email), needle) {
			return false
		}
	}
	if f.City != "" && string(b.City) != f.City {
		return false
	}
	if f.PropertyType != "" && string(b.PropertyType) != f.PropertyType {
		return false
	}
	if f.Status != "" && string(b.Status) != f.Status {
		return false
	}
	if f.Timeline != "" && string(b.Timeline) != f.Timeline {
		return false
	}
	return true
}

func cloneBuyer(b models.Buyer) models.Buyer {
	if b.Tags != nil {
		tags := make(models.StringList, len(b.Tags))
		copy(tags, b.Tags)
		b.Tags = tags
	}
	if b.BudgetMin != nil {
		v := *b.BudgetMin
		b.BudgetMin = &v
	}
	if b.BudgetMax != nil {
		v := *b.BudgetMax
		b.BudgetMax = &v
	}
	return b
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
)

// GormStore is the MySQL-backed store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(host, port, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB wraps an existing gorm.DB instance.
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate.
func (s *GormStore) InitSchema() error {
	return s.db.AutoMigrate(
		&models.Buyer{},
		&models.BuyerHistory{},
	)
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*models.Buyer, error) {
	var b models.Buyer
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *GormStore) Create(ctx context.Context, b *models.Buyer, entry *models.BuyerHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return err
		}
		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Update writes the full record in one conditional statement:
// UPDATE buyers SET ... WHERE id = ? AND updated_at = ?. A zero rows-affected
// result means either the row vanished (ErrNotFound) or another writer
// advanced updated_at first (ErrStaleVersion).
func (s *GormStore) Update(ctx context.Context, b *models.Buyer, expected time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.Buyer{}).
		Where("id = ? AND updated_at = ?", b.ID, expected).
		Updates(buyerColumns(b))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		s.db.WithContext(ctx).Model(&models.Buyer{}).Where("id = ?", b.ID).Count(&count)
		if count == 0 {
			return ErrNotFound
		}
		return ErrStaleVersion
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string, entry *models.BuyerHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		result := tx.Where("id = ?", id).Delete(&models.Buyer{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) CreateBatch(ctx context.Context, items []BatchItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.Create(item.Buyer).Error; err != nil {
				return err
			}
			if item.History != nil {
				item.History.BuyerID = item.Buyer.ID
				if err := tx.Create(item.History).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *GormStore) AppendHistory(ctx context.Context, entry *models.BuyerHistory) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListHistory(ctx context.Context, buyerID string, limit int) ([]models.BuyerHistory, error) {
	var entries []models.BuyerHistory
	query := s.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("changed_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *GormStore) List(ctx context.Context, f Filters) (*Page, error) {
	f.normalize()

	query := applyFilters(s.db.WithContext(ctx).Model(&models.Buyer{}), f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var buyers []models.Buyer
	offset := (f.Page - 1) * f.Limit
	err := query.Order(orderClause(f)).Limit(f.Limit).Offset(offset).Find(&buyers).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return &Page{
		Buyers:     buyers,
		Page:       f.Page,
		Limit:      f.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    f.Page < totalPages,
		HasPrev:    f.Page > 1,
	}, nil
}

func (s *GormStore) ListAll(ctx context.Context, f Filters) ([]models.Buyer, error) {
	f.normalize()
	var buyers []models.Buyer
	err := applyFilters(s.db.WithContext(ctx).Model(&models.Buyer{}), f).
		Order(orderClause(f)).
		Find(&buyers).Error
	return buyers, err
}

func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus: make(map[string]int64),
		ByCity:   make(map[string]int64),
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Buyer{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var rows []bucket

	if err := db.Model(&models.Buyer{}).
		Select("status AS `key`, COUNT(*) AS count").
		Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByStatus[r.Key] = r.Count
	}

	rows = rows[:0]
	if err := db.Model(&models.Buyer{}).
		Select("city AS `key`, COUNT(*) AS count").
		Group("city").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByCity[r.Key] = r.Count
	}

	last24h := time.Now().Add(-24 * time.Hour)
	if err := db.Model(&models.Buyer{}).
		Where("created_at >= ?", last24h).
		Count(&stats.CreatedLast24h).Error; err != nil {
		return nil, err
	}

	last7d := time.Now().AddDate(0, 0, -7)
	if err := db.Model(&models.BuyerHistory{}).
		Where("changed_at >= ?", last7d).
		Count(&stats.ChangesLast7d).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func applyFilters(query *gorm.DB, f Filters) *gorm.DB {
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		query = query.Where(
			"full_name LIKE ? OR phone LIKE ? OR email LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if f.City != "" {
		query = query.Where("city = ?", f.City)
	}
	if f.PropertyType != "" {
		query = query.Where("property_type = ?", f.PropertyType)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Timeline != "" {
		query = query.Where("timeline = ?", f.Timeline)
	}
	return query
}

func orderClause(f Filters) string {
	column := map[string]string{
		"fullName":  "full_name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}[f.SortBy]
	direction := "DESC"
	if f.SortOrder == "asc" {
		direction = "ASC"
	}
	return column + " " + direction
}

// buyerColumns lists every mutable column explicitly so cleared optional
// fields (empty email, removed budget) are written instead of skipped.
func buyerColumns(b *models.Buyer) map[string]interface{} {
	return map[string]interface{}{
		"full_name":     b.FullName,
		"email":         b.Email,
		"phone":         b.Phone,
		"city":          b.City,
		"property_type": b.PropertyType,
		"bhk":           b.BHK,
		"purpose":       b.Purpose,
		"budget_min":    b.BudgetMin,
		"budget_max":    b.BudgetMax,
		"timeline":      b.Timeline,
		"source":        b.Source,
		"status":        b.Status,
		"notes":         b.Notes,
		"tags":          b.Tags,
		"updated_at":    b.UpdatedAt,
	}
}

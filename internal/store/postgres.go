package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
)

// PostgresStore is the raw-SQL PostgreSQL store.
type PostgresStore struct {
	conn *sql.DB
}

func NewPostgresStore(host, port, user, password, dbname, sslmode string) (*PostgresStore, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{conn: conn}, nil
}

func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

// InitSchema creates the buyers and buyer_history tables if absent.
func (s *PostgresStore) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS buyers (
		id VARCHAR(36) PRIMARY KEY,
		owner_id VARCHAR(36) NOT NULL,
		full_name VARCHAR(80) NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(15) NOT NULL,
		city VARCHAR(20) NOT NULL,
		property_type VARCHAR(20) NOT NULL,
		bhk VARCHAR(10) NOT NULL DEFAULT '',
		purpose VARCHAR(10) NOT NULL,
		budget_min INTEGER,
		budget_max INTEGER,
		timeline VARCHAR(20) NOT NULL,
		source VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'New',
		notes TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_buyers_owner_id ON buyers(owner_id);
	CREATE INDEX IF NOT EXISTS idx_buyers_updated_at ON buyers(updated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_buyers_city ON buyers(city);
	CREATE INDEX IF NOT EXISTS idx_buyers_status ON buyers(status);

	CREATE TABLE IF NOT EXISTS buyer_history (
		id BIGSERIAL PRIMARY KEY,
		buyer_id VARCHAR(36) NOT NULL,
		changed_by VARCHAR(36) NOT NULL,
		changed_at TIMESTAMPTZ NOT NULL,
		diff JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_buyer_history_buyer_id ON buyer_history(buyer_id);
	CREATE INDEX IF NOT EXISTS idx_buyer_history_changed_at ON buyer_history(changed_at DESC);
	`
	_, err := s.conn.Exec(query)
	return err
}

const buyerSelectColumns = `id, owner_id, full_name, email, phone, city, property_type, bhk,
	purpose, budget_min, budget_max, timeline, source, status, notes, tags, created_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Buyer, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+buyerSelectColumns+` FROM buyers WHERE id = $1`, id)
	b, err := scanBuyer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Buyer, entry *models.BuyerHistory) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertBuyer(ctx, tx, b); err != nil {
		return err
	}
	if entry != nil {
		if err := insertHistory(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Update(ctx context.Context, b *models.Buyer, expected time.Time) error {
	result, err := s.conn.ExecContext(ctx, `
	UPDATE buyers SET
		full_name = $1, email = $2, phone = $3, city = $4, property_type = $5,
		bhk = $6, purpose = $7, budget_min = $8, budget_max = $9, timeline = $10,
		source = $11, status = $12, notes = $13, tags = $14, updated_at = $15
	WHERE id = $16 AND updated_at = $17`,
		b.FullName, b.Email, b.Phone, b.City, b.PropertyType,
		b.BHK, b.Purpose, nullableInt(b.BudgetMin), nullableInt(b.BudgetMax), b.Timeline,
		b.Source, b.Status, b.Notes, pq.Array([]string(b.Tags)), b.UpdatedAt,
		b.ID, expected)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var count int
		if err := s.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM buyers WHERE id = $1`, b.ID).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStaleVersion
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string, entry *models.BuyerHistory) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if entry != nil {
		if err := insertHistory(ctx, tx, entry); err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM buyers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *PostgresStore) CreateBatch(ctx context.Context, items []BatchItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := insertBuyer(ctx, tx, item.Buyer); err != nil {
			return err
		}
		if item.History != nil {
			item.History.BuyerID = item.Buyer.ID
			if err := insertHistory(ctx, tx, item.History); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) AppendHistory(ctx context.Context, entry *models.BuyerHistory) error {
	return insertHistory(ctx, s.conn, entry)
}

func (s *PostgresStore) ListHistory(ctx context.Context, buyerID string, limit int) ([]models.BuyerHistory, error) {
	query := `SELECT id, buyer_id, changed_by, changed_at, diff FROM buyer_history
		WHERE buyer_id = $1 ORDER BY changed_at DESC, id DESC`
	args := []interface{}{buyerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.BuyerHistory
	for rows.Next() {
		var e models.BuyerHistory
		if err := rows.Scan(&e.ID, &e.BuyerID, &e.ChangedBy, &e.ChangedAt, &e.Diff); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context, f Filters) (*Page, error) {
	f.normalize()

	where, args := buildWhere(f)

	var total int64
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buyers`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	offset := (f.Page - 1) * f.Limit
	query := fmt.Sprintf(`SELECT %s FROM buyers%s ORDER BY %s LIMIT %d OFFSET %d`,
		buyerSelectColumns, where, orderClause(f), f.Limit, offset)

	buyers, err := s.queryBuyers(ctx, query, args...)
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

func (s *PostgresStore) ListAll(ctx context.Context, f Filters) ([]models.Buyer, error) {
	f.normalize()
	where, args := buildWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM buyers%s ORDER BY %s`,
		buyerSelectColumns, where, orderClause(f))
	return s.queryBuyers(ctx, query, args...)
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus: make(map[string]int64),
		ByCity:   make(map[string]int64),
	}

	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buyers`).Scan(&stats.Total); err != nil {
		return nil, err
	}

	if err := s.groupCounts(ctx, "status", stats.ByStatus); err != nil {
		return nil, err
	}
	if err := s.groupCounts(ctx, "city", stats.ByCity); err != nil {
		return nil, err
	}

	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buyers WHERE created_at >= $1`,
		time.Now().Add(-24*time.Hour)).Scan(&stats.CreatedLast24h); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM buyer_history WHERE changed_at >= $1`,
		time.Now().AddDate(0, 0, -7)).Scan(&stats.ChangesLast7d); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *PostgresStore) groupCounts(ctx context.Context, column string, out map[string]int64) error {
	rows, err := s.conn.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM buyers GROUP BY %s`, column, column))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		out[key] = count
	}
	return rows.Err()
}

func (s *PostgresStore) queryBuyers(ctx context.Context, query string, args ...interface{}) ([]models.Buyer, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buyers []models.Buyer
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, err
		}
		buyers = append(buyers, *b)
	}
	return buyers, rows.Err()
}

func buildWhere(f Filters) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		args = append(args, pattern)
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(full_name ILIKE $%d OR phone LIKE $%d OR email ILIKE $%d)", n, n, n))
	}
	if f.City != "" {
		add("city = $%d", f.City)
	}
	if f.PropertyType != "" {
		add("property_type = $%d", f.PropertyType)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Timeline != "" {
		add("timeline = $%d", f.Timeline)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertBuyer(ctx context.Context, tx execer, b *models.Buyer) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO buyers (
		id, owner_id, full_name, email, phone, city, property_type, bhk,
		purpose, budget_min, budget_max, timeline, source, status, notes, tags,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		b.ID, b.OwnerID, b.FullName, b.Email, b.Phone, b.City, b.PropertyType, b.BHK,
		b.Purpose, nullableInt(b.BudgetMin), nullableInt(b.BudgetMax), b.Timeline, b.Source,
		b.Status, b.Notes, pq.Array([]string(b.Tags)), b.CreatedAt, b.UpdatedAt)
	return err
}

func insertHistory(ctx context.Context, tx execer, entry *models.BuyerHistory) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO buyer_history (buyer_id, changed_by, changed_at, diff)
	VALUES ($1, $2, $3, $4)`,
		entry.BuyerID, entry.ChangedBy, entry.ChangedAt, entry.Diff)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBuyer(row rowScanner) (*models.Buyer, error) {
	var b models.Buyer
	var budgetMin, budgetMax sql.NullInt64
	var tags pq.StringArray

	err := row.Scan(
		&b.ID, &b.OwnerID, &b.FullName, &b.Email, &b.Phone, &b.City, &b.PropertyType,
		&b.BHK, &b.Purpose, &budgetMin, &budgetMax, &b.Timeline, &b.Source, &b.Status,
		&b.Notes, &tags, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if budgetMin.Valid {
		v := int(budgetMin.Int64)
		b.BudgetMin = &v
	}
	if budgetMax.Valid {
		v := int(budgetMax.Int64)
		b.BudgetMax = &v
	}
	b.Tags = models.StringList(tags)
	return &b, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

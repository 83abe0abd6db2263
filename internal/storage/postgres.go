package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IshaanNene/trendscout/internal/types"
)

const recordColumns = `id, name, category, product_brand, average_price, image_url, market_zone, segment,
	source_brand, source_url, trend_growth_percent, growth_estimated, trend_label, trend_score,
	saturability, technical, created_at, updated_at`

// PostgresStore keeps product records in a PostgreSQL table keyed by the
// natural key.
type PostgresStore struct {
	db     *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewPostgresStore connects to dsn and creates the table when missing.
func NewPostgresStore(ctx context.Context, dsn, table string, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &types.StorageError{Backend: "postgres", Op: "ping", Err: err}
	}
	s := &PostgresStore{
		db:     pool,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: logger.With("component", "postgres_storage"),
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) wrap(op string, err error) error {
	return &types.StorageError{Backend: s.Name(), Op: op, Err: err}
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
  id                   TEXT PRIMARY KEY,
  name                 TEXT NOT NULL,
  category             TEXT NOT NULL,
  product_brand        TEXT,
  average_price        DOUBLE PRECISION NOT NULL DEFAULT 0,
  image_url            TEXT NOT NULL DEFAULT '',
  market_zone          TEXT NOT NULL,
  segment              TEXT NOT NULL,
  source_brand         TEXT NOT NULL,
  source_url           TEXT NOT NULL,
  trend_growth_percent DOUBLE PRECISION,
  growth_estimated     BOOLEAN NOT NULL DEFAULT FALSE,
  trend_label          TEXT,
  trend_score          DOUBLE PRECISION NOT NULL,
  saturability         DOUBLE PRECISION NOT NULL,
  technical            JSONB,
  created_at           TIMESTAMPTZ NOT NULL,
  updated_at           TIMESTAMPTZ NOT NULL,
  UNIQUE (source_url, source_brand, market_zone)
)`, s.table)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return s.wrap("migrate", err)
	}
	return nil
}

// where builds a WHERE clause for f with positional arguments.
func (s *PostgresStore) where(f Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if len(f.SourceBrands) > 0 {
		lowered := make([]string, len(f.SourceBrands))
		for i, b := range f.SourceBrands {
			lowered[i] = strings.ToLower(b)
		}
		add("lower(source_brand) = ANY($%d)", lowered)
	}
	if f.MarketZone != "" {
		add("market_zone = $%d", string(f.MarketZone))
	}
	if f.Segment != "" {
		add("segment = $%d", string(f.Segment))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.SourceURL != "" {
		add("source_url = $%d", f.SourceURL)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var orderColumns = map[string]string{
	OrderTrendScore:   "trend_score",
	OrderSaturability: "saturability",
	OrderCreatedAt:    "created_at",
	OrderUpdatedAt:    "updated_at",
	OrderName:         "name",
}

func (s *PostgresStore) FindMany(ctx context.Context, f Filter, order OrderBy, limit int) ([]*types.ProductRecord, error) {
	if !validOrder(order.Field) {
		return nil, s.wrap("find", fmt.Errorf("unsupported order field %q", order.Field))
	}
	where, args := s.where(f)
	query := "SELECT " + recordColumns + " FROM " + s.table + where
	if col, ok := orderColumns[order.Field]; ok {
		query += " ORDER BY " + col
		if order.Desc {
			query += " DESC"
		}
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("find", err)
	}
	defer rows.Close()

	var out []*types.ProductRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, s.wrap("scan", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("find", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*types.ProductRecord, error) {
	var (
		rec       types.ProductRecord
		zone, seg string
		technical []byte
	)
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Category, &rec.ProductBrand, &rec.AveragePrice, &rec.ImageURL,
		&zone, &seg, &rec.SourceBrand, &rec.SourceURL, &rec.TrendGrowthPercent, &rec.GrowthEstimated,
		&rec.TrendLabel, &rec.TrendScore, &rec.Saturability, &technical, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.MarketZone = types.MarketZone(zone)
	rec.Segment = types.Segment(seg)
	if len(technical) > 0 {
		var t types.Technical
		if err := json.Unmarshal(technical, &t); err != nil {
			return nil, fmt.Errorf("decode technical: %w", err)
		}
		rec.Technical = &t
	}
	return &rec, nil
}

func recordArgs(rec *types.ProductRecord) ([]any, error) {
	var technical []byte
	if rec.Technical != nil {
		b, err := json.Marshal(rec.Technical)
		if err != nil {
			return nil, err
		}
		technical = b
	}
	return []any{
		rec.ID, rec.Name, rec.Category, rec.ProductBrand, rec.AveragePrice, rec.ImageURL,
		string(rec.MarketZone), string(rec.Segment), rec.SourceBrand, rec.SourceURL,
		rec.TrendGrowthPercent, rec.GrowthEstimated, rec.TrendLabel, rec.TrendScore,
		rec.Saturability, technical, rec.CreatedAt, rec.UpdatedAt,
	}, nil
}

const updateSet = `name = EXCLUDED.name,
	category = EXCLUDED.category,
	product_brand = EXCLUDED.product_brand,
	average_price = EXCLUDED.average_price,
	image_url = EXCLUDED.image_url,
	segment = EXCLUDED.segment,
	trend_growth_percent = EXCLUDED.trend_growth_percent,
	growth_estimated = EXCLUDED.growth_estimated,
	trend_label = EXCLUDED.trend_label,
	trend_score = EXCLUDED.trend_score,
	saturability = EXCLUDED.saturability,
	technical = EXCLUDED.technical,
	updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Create(ctx context.Context, rec *types.ProductRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	args, err := recordArgs(rec)
	if err != nil {
		return s.wrap("encode", err)
	}
	query := "INSERT INTO " + s.table + " (" + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return s.wrap("insert", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, key types.RecordKey, rec *types.ProductRecord) error {
	var technical []byte
	if rec.Technical != nil {
		b, err := json.Marshal(rec.Technical)
		if err != nil {
			return s.wrap("encode", err)
		}
		technical = b
	}
	query := "UPDATE " + s.table + ` SET
		name = $4, category = $5, product_brand = $6, average_price = $7, image_url = $8, segment = $9,
		trend_growth_percent = $10, growth_estimated = $11, trend_label = $12, trend_score = $13,
		saturability = $14, technical = $15, updated_at = $16
		WHERE source_url = $1 AND source_brand = $2 AND market_zone = $3`
	tag, err := s.db.Exec(ctx, query,
		key.SourceURL, key.SourceBrand, string(key.MarketZone),
		rec.Name, rec.Category, rec.ProductBrand, rec.AveragePrice, rec.ImageURL, string(rec.Segment),
		rec.TrendGrowthPercent, rec.GrowthEstimated, rec.TrendLabel, rec.TrendScore,
		rec.Saturability, technical, rec.UpdatedAt,
	)
	if err != nil {
		return s.wrap("update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: %w", key, types.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec *types.ProductRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	args, err := recordArgs(rec)
	if err != nil {
		return false, s.wrap("encode", err)
	}
	// xmax is zero only on a freshly inserted row.
	query := "INSERT INTO " + s.table + " (" + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (source_url, source_brand, market_zone) DO UPDATE SET ` + updateSet + `
		RETURNING (xmax = 0)`
	var inserted bool
	if err := s.db.QueryRow(ctx, query, args...).Scan(&inserted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, s.wrap("upsert", err)
	}
	return inserted, nil
}

func (s *PostgresStore) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	where, args := s.where(f)
	tag, err := s.db.Exec(ctx, "DELETE FROM "+s.table+where, args...)
	if err != nil {
		return 0, s.wrap("delete", err)
	}
	s.logger.Debug("records deleted", "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := s.where(f)
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM "+s.table+where, args...).Scan(&n); err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/devlongs/arb-recorder/internal/config"
	"github.com/devlongs/arb-recorder/pkg/types"
)

// DriverName is the database/sql driver registered by lib/pq
const DriverName = "postgres"

var (
	ErrConnect  = errors.New("database connection failed")
	ErrExecute  = errors.New("statement execution failed")
	ErrCommit   = errors.New("commit failed")
	ErrNotFound = errors.New("opportunity not found")
)

// Connector opens a ready-to-use database handle. The caller owns the handle
// and must close it.
type Connector func(ctx context.Context) (*sqlx.DB, error)

// NewConnector returns a Connector that opens cfg with Open
func NewConnector(cfg config.DatabaseConfig) Connector {
	return func(ctx context.Context) (*sqlx.DB, error) {
		return Open(ctx, cfg)
	}
}

// Open connects to PostgreSQL and verifies the connection with a ping
// bounded by cfg.ConnectTimeout. The handle is closed if the ping fails.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	return db, nil
}

// Store reads and writes arbitrage_opportunities
type Store struct {
	db *sqlx.DB
}

// New creates a Store using the provided database handle
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const insertOpportunitySQL = `
	INSERT INTO arbitrage_opportunities (
		discovered_at,
		arbitrage_type, start_token, end_token,
		input_amount, output_amount, gross_profit, net_profit, roi_percent, estimated_fees,
		hop_count, path_summary,
		router_mode, min_roi_threshold
	) VALUES (
		NOW(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	) RETURNING id`

// InsertOpportunity writes rec in its own transaction and returns the
// generated id. discovered_at is set by the server.
func (s *Store) InsertOpportunity(ctx context.Context, rec *types.OpportunityRecord) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", ErrExecute, err)
	}
	// No-op once committed.
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowxContext(ctx, insertOpportunitySQL,
		rec.ArbitrageType,
		rec.StartToken,
		rec.EndToken,
		rec.InputAmount,
		rec.OutputAmount,
		rec.GrossProfit,
		rec.NetProfit,
		rec.ROIPercent,
		rec.EstimatedFees,
		rec.HopCount,
		rec.PathSummary,
		rec.RouterMode,
		rec.MinROIThreshold,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert opportunity: %w", ErrExecute, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCommit, err)
	}

	return id, nil
}

// opportunityColumns selects every field of types.OpportunityRecord
const opportunityColumns = `
			id, discovered_at,
			arbitrage_type, start_token, end_token,
			input_amount, output_amount, gross_profit, net_profit,
			roi_percent, estimated_fees, hop_count, path_summary,
			COALESCE(router_mode, '') AS router_mode,
			COALESCE(min_roi_threshold, 0) AS min_roi_threshold,
			COALESCE(is_executed, FALSE) AS is_executed,
			execution_status, execution_tx_hash, actual_profit`

// Recent returns the newest opportunities first, with every stored field

func (s *Store) Recent(ctx context.Context, limit int) ([]types.OpportunityRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	var recs []types.OpportunityRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT `+opportunityColumns+`
		FROM arbitrage_opportunities
		ORDER BY discovered_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent opportunities: %w", err)
	}
	return recs, nil
}

// Get returns a single opportunity with its execution outcome
func (s *Store) Get(ctx context.Context, id int64) (*types.OpportunityRecord, error) {
	var rec types.OpportunityRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT `+opportunityColumns+`
		FROM arbitrage_opportunities
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query opportunity %d: %w", id, err)
	}
	return &rec, nil
}

// UpdateExecution stores the outcome of acting on an opportunity
func (s *Store) UpdateExecution(ctx context.Context, u types.ExecutionUpdate) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE arbitrage_opportunities
		SET is_executed = $2,
			execution_status = $3,
			execution_tx_hash = $4,
			actual_profit = $5
		WHERE id = $1
	`, u.ID, u.Executed, u.Status, u.TxHash, u.ActualProfit)
	if err != nil {
		return fmt.Errorf("update execution status of %d: %w", u.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, u.ID)
	}
	return nil
}

// GroupStat is an opportunity count and average ROI for one group
type GroupStat struct {
	Key    string          `db:"key"`
	Count  int64           `db:"count"`
	AvgROI sql.NullFloat64 `db:"avg_roi"`
}

// Summary aggregates every recorded opportunity
type Summary struct {
	Count        int64           `db:"count"`
	AvgROI       sql.NullFloat64 `db:"avg_roi"`
	MinROI       sql.NullFloat64 `db:"min_roi"`
	MaxROI       sql.NullFloat64 `db:"max_roi"`
	AvgNetProfit sql.NullFloat64 `db:"avg_profit"`
	AvgHops      sql.NullFloat64 `db:"avg_hops"`
	Executed     int64           `db:"executed_count"`

	ByType []GroupStat `db:"-"`
	ByMode []GroupStat `db:"-"`
}

// Summary returns overall statistics plus per-type and per-mode breakdowns
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	var sum Summary
	err := s.db.GetContext(ctx, &sum, `
		SELECT
			COUNT(*) AS count,
			AVG(roi_percent) AS avg_roi,
			MIN(roi_percent) AS min_roi,
			MAX(roi_percent) AS max_roi,
			AVG(net_profit) AS avg_profit,
			AVG(hop_count) AS avg_hops,
			COUNT(CASE WHEN is_executed THEN 1 END) AS executed_count
		FROM arbitrage_opportunities
	`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}

	err = s.db.SelectContext(ctx, &sum.ByType, `
		SELECT
			arbitrage_type AS key,
			COUNT(*) AS count,
			AVG(roi_percent) AS avg_roi
		FROM arbitrage_opportunities
		GROUP BY arbitrage_type
		ORDER BY count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query summary by type: %w", err)
	}

	err = s.db.SelectContext(ctx, &sum.ByMode, `
		SELECT
			router_mode AS key,
			COUNT(*) AS count,
			AVG(roi_percent) AS avg_roi
		FROM arbitrage_opportunities
		WHERE router_mode IS NOT NULL
		GROUP BY router_mode
		ORDER BY count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query summary by mode: %w", err)
	}

	return &sum, nil
}

// ROIBucket counts opportunities in one ROI range
type ROIBucket struct {
	Range string `db:"roi_range"`
	Count int64  `db:"count"`
}

// ROIDistribution buckets opportunities by ROI, lowest bucket first
func (s *Store) ROIDistribution(ctx context.Context) ([]ROIBucket, error) {
	var buckets []ROIBucket
	err := s.db.SelectContext(ctx, &buckets, `
		SELECT
			CASE
				WHEN roi_percent < 0.5 THEN '< 0.5%'
				WHEN roi_percent < 1.0 THEN '0.5-1.0%'
				WHEN roi_percent < 2.0 THEN '1.0-2.0%'
				WHEN roi_percent < 5.0 THEN '2.0-5.0%'
				ELSE '> 5.0%'
			END AS roi_range,
			COUNT(*) AS count
		FROM arbitrage_opportunities
		GROUP BY roi_range
		ORDER BY MIN(roi_percent)
	`)
	if err != nil {
		return nil, fmt.Errorf("query roi distribution: %w", err)
	}
	return buckets, nil
}

// HourlyStat aggregates the opportunities of one hour
type HourlyStat struct {
	Hour   time.Time       `db:"hour"`
	Count  int64           `db:"count"`
	AvgROI sql.NullFloat64 `db:"avg_roi"`
	MaxROI sql.NullFloat64 `db:"max_roi"`
}

// Hourly returns per-hour statistics for the last 24 hours, newest first
func (s *Store) Hourly(ctx context.Context) ([]HourlyStat, error) {
	var stats []HourlyStat
	err := s.db.SelectContext(ctx, &stats, `
		SELECT
			DATE_TRUNC('hour', discovered_at) AS hour,
			COUNT(*) AS count,
			AVG(roi_percent) AS avg_roi,
			MAX(roi_percent) AS max_roi
		FROM arbitrage_opportunities
		WHERE discovered_at > NOW() - INTERVAL '24 hours'
		GROUP BY DATE_TRUNC('hour', discovered_at)
		ORDER BY hour DESC
		LIMIT 24
	`)
	if err != nil {
		return nil, fmt.Errorf("query hourly stats: %w", err)
	}
	return stats, nil
}

package recorder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlongs/arb-recorder/internal/arbitrage"
	"github.com/devlongs/arb-recorder/internal/config"
	"github.com/devlongs/arb-recorder/internal/metrics"
	"github.com/devlongs/arb-recorder/internal/output"
	"github.com/devlongs/arb-recorder/internal/store/postgres"
	"github.com/devlongs/arb-recorder/pkg/types"
)

func testLogger() *output.Logger {
	return output.NewLogger(config.LoggingConfig{Level: "disabled", Format: "json"}, false)
}

func testRecord(t *testing.T) *types.OpportunityRecord {
	t.Helper()

	rec, err := arbitrage.Build(arbitrage.Params{
		Type:            types.ArbitrageTypeTriangle,
		Path:            "USDC→SOL→USDT→USDC",
		InputAmount:     decimal.NewFromInt(1000),
		ROIPercent:      decimal.RequireFromString("0.45"),
		RouterMode:      "Complete",
		MinROIThreshold: arbitrage.DefaultMinROIThreshold,
	})
	require.NoError(t, err)
	return rec
}

func mockConnector(t *testing.T) (postgres.Connector, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return func(ctx context.Context) (*sqlx.DB, error) {
		return sqlx.NewDb(db, "sqlmock"), nil
	}, mock
}

func TestRecordSuccess(t *testing.T) {
	connect, mock := mockConnector(t)
	m := metrics.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO arbitrage_opportunities`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()
	mock.ExpectClose()

	logger := testLogger()
	res := New(connect, logger, m).Record(context.Background(), testRecord(t))

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, uint64(1), logger.Stats().Recorded)
	assert.Zero(t, logger.Stats().Failed)
	assert.Equal(t, int64(42), res.ID)
	assert.Equal(t, FailureNone, res.Kind)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Records.WithLabelValues("Triangle")))
	assert.NoError(t, mock.ExpectationsWereMet(), "connection must be closed")
}

func TestRecordConnectFailure(t *testing.T) {
	m := metrics.New()
	connect := func(ctx context.Context) (*sqlx.DB, error) {
		return nil, fmt.Errorf("%w: dial tcp 127.0.0.1:5432: connect: connection refused", postgres.ErrConnect)
	}

	logger := testLogger()
	var res Result
	assert.NotPanics(t, func() {
		res = New(connect, logger, m).Record(context.Background(), testRecord(t))
	})
	assert.Equal(t, uint64(1), logger.Stats().Failed)
	assert.Zero(t, logger.Stats().Recorded)

	assert.False(t, res.OK())
	assert.Zero(t, res.ID)
	assert.Equal(t, FailureConnect, res.Kind)
	assert.ErrorIs(t, res.Err, postgres.ErrConnect)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecordFailures.WithLabelValues("connect")))
}

func TestRecordExecuteFailureClosesConnection(t *testing.T) {
	connect, mock := mockConnector(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO arbitrage_opportunities`).
		WillReturnError(errors.New(`null value in column "start_token" violates not-null constraint`))
	mock.ExpectRollback()
	mock.ExpectClose()

	res := New(connect, testLogger(), nil).Record(context.Background(), testRecord(t))

	assert.False(t, res.OK())
	assert.Zero(t, res.ID)
	assert.Equal(t, FailureExecute, res.Kind)
	assert.NoError(t, mock.ExpectationsWereMet(), "connection must be closed")
}

func TestRecordCommitFailureClosesConnection(t *testing.T) {
	connect, mock := mockConnector(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO arbitrage_opportunities`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectClose()

	res := New(connect, testLogger(), nil).Record(context.Background(), testRecord(t))

	assert.False(t, res.OK())
	assert.Zero(t, res.ID)
	assert.Equal(t, FailureCommit, res.Kind)
	assert.ErrorIs(t, res.Err, postgres.ErrCommit)
	assert.NoError(t, mock.ExpectationsWereMet(), "connection must be closed")
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "none", FailureNone.String())
	assert.Equal(t, "connect", FailureConnect.String())
	assert.Equal(t, "execute", FailureExecute.String())
	assert.Equal(t, "commit", FailureCommit.String())
	assert.Equal(t, "FailureKind(9)", FailureKind(9).String())
	assert.Equal(t, "FailureKind(-1)", FailureKind(-1).String())
}

func TestRecordDurationIncludesClose(t *testing.T) {
	connect, mock := mockConnector(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO arbitrage_opportunities`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()
	mock.ExpectClose()

	m := metrics.New()
	r := New(connect, testLogger(), m)

	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	var calls int
	var closedAtStop error
	r.now = func() time.Time {
		calls++
		if calls == 2 {
			closedAtStop = mock.ExpectationsWereMet()
		}
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}

	res := r.Record(context.Background(), testRecord(t))

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, closedAtStop, "connection must be closed before the duration is taken")
	assert.Equal(t, 250*time.Millisecond, res.Duration)
	assert.Equal(t, 1, testutil.CollectAndCount(m.RecordDuration))
}

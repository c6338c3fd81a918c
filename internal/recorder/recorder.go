package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/devlongs/arb-recorder/internal/metrics"
	"github.com/devlongs/arb-recorder/internal/output"
	"github.com/devlongs/arb-recorder/internal/store/postgres"
	"github.com/devlongs/arb-recorder/pkg/types"
)

// FailureKind says which step of a record attempt failed
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureConnect
	FailureExecute
	FailureCommit
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureConnect:
		return "connect"
	case FailureExecute:
		return "execute"
	case FailureCommit:
		return "commit"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Result is the outcome of one record attempt
type Result struct {
	ID       int64
	Kind     FailureKind
	Err      error
	Duration time.Duration
}

// OK reports whether the opportunity was stored
func (r Result) OK() bool {
	return r.Err == nil
}

// Recorder persists opportunities, one connection per call
type Recorder struct {
	connect postgres.Connector
	logger  *output.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Recorder. m may be nil.
func New(connect postgres.Connector, logger *output.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{
		connect: connect,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Record opens a connection, inserts rec, commits and closes the
// connection again. It never retries; failures come back in the Result.
// Duration spans connect to close.
func (r *Recorder) Record(ctx context.Context, rec *types.OpportunityRecord) Result {
	start := r.now()
	res := r.record(ctx, rec)
	res.Duration = r.now().Sub(start)

	r.observe(rec, res)
	return res
}

func (r *Recorder) record(ctx context.Context, rec *types.OpportunityRecord) Result {
	db, err := r.connect(ctx)
	if err != nil {
		return Result{Kind: FailureConnect, Err: err}
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database connection")
		}
	}()

	id, err := postgres.New(db).InsertOpportunity(ctx, rec)
	if err != nil {
		kind := FailureExecute
		if errors.Is(err, postgres.ErrCommit) {
			kind = FailureCommit
		}
		return Result{Kind: kind, Err: err}
	}

	return Result{ID: id}
}

func (r *Recorder) observe(rec *types.OpportunityRecord, res Result) {
	if !res.OK() {
		r.logger.LogFailure(res.Err, res.Kind.String(), rec)
		if r.metrics != nil {
			r.metrics.ObserveFailure(res.Kind.String(), res.Duration)
		}
		return
	}

	r.logger.LogRecorded(res.ID, rec, res.Duration)
	if r.metrics != nil {
		roi, _ := rec.ROIPercent.Float64()
		r.metrics.ObserveRecorded(rec.ArbitrageType.String(), roi, res.Duration)
	}
}

package output

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devlongs/arb-recorder/internal/config"
	"github.com/devlongs/arb-recorder/pkg/types"
)

// Logger handles structured logging for recorder events
type Logger struct {
	stats *Stats
}

// Stats tracks what happened during this run
type Stats struct {
	Recorded  uint64
	Failed    uint64
	StartTime time.Time
}

// NewLogger configures the global zerolog logger and returns a Logger
func NewLogger(cfg config.LoggingConfig, debug bool) *Logger {
	switch cfg.Format {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	return &Logger{
		stats: &Stats{StartTime: time.Now()},
	}
}

// LogConnecting logs the (redacted) target before a connection attempt
func (l *Logger) LogConnecting(target string) {
	log.Debug().
		Str("database", target).
		Msg("Connecting to database")
}

// LogRecorded logs a successfully stored opportunity
func (l *Logger) LogRecorded(id int64, rec *types.OpportunityRecord, duration time.Duration) {
	l.stats.Recorded++

	log.Info().
		Int64("id", id).
		Str("type", rec.ArbitrageType.String()).
		Str("roi", rec.ROIPercent.String()).
		Str("netProfit", rec.NetProfit.String()).
		Int("hops", rec.HopCount).
		Str("path", rec.PathSummary).
		Dur("duration", duration).
		Msg("Opportunity recorded")
}

// LogFailure logs a failed record attempt
func (l *Logger) LogFailure(err error, kind string, rec *types.OpportunityRecord) {
	l.stats.Failed++

	ev := log.Error().
		Err(err).
		Str("kind", kind)
	if rec != nil {
		ev = ev.Str("path", rec.PathSummary).Str("roi", rec.ROIPercent.String())
	}
	ev.Msg("Failed to record opportunity")
}

// LogBelowThreshold warns that an opportunity is recorded despite missing its threshold
func (l *Logger) LogBelowThreshold(rec *types.OpportunityRecord) {
	log.Warn().
		Str("roi", rec.ROIPercent.String()).
		Str("minRoi", rec.MinROIThreshold.String()).
		Str("path", rec.PathSummary).
		Msg("ROI below threshold, recording anyway")
}

// LogExecutionUpdated logs a change to an opportunity's execution outcome
func (l *Logger) LogExecutionUpdated(u types.ExecutionUpdate) {
	ev := log.Info().
		Int64("id", u.ID).
		Bool("executed", u.Executed)
	if u.Status != nil {
		ev = ev.Str("status", *u.Status)
	}
	if u.TxHash != nil {
		ev = ev.Str("txHash", *u.TxHash)
	}
	if u.ActualProfit.Valid {
		ev = ev.Str("actualProfit", u.ActualProfit.Decimal.String())
	}
	ev.Msg("Execution status updated")
}

// LogStats logs run statistics at debug level
func (l *Logger) LogStats() {
	st := l.Stats()
	log.Debug().
		Uint64("recorded", st.Recorded).
		Uint64("failed", st.Failed).
		Dur("uptime", time.Since(st.StartTime)).
		Msg("Recorder stats")
}

// Stats returns a snapshot of this run's counters
func (l *Logger) Stats() Stats {
	return *l.stats
}

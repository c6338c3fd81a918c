package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devlongs/arb-recorder/internal/config"
	"github.com/devlongs/arb-recorder/internal/metrics"
	"github.com/devlongs/arb-recorder/internal/output"
	"github.com/devlongs/arb-recorder/internal/store/postgres"
)

// ErrRecordFailed is returned by record in --strict mode when the insert failed
var ErrRecordFailed = errors.New("opportunity was not recorded")

// App carries what every command needs once configuration is loaded
type App struct {
	cfgFile string
	debug   bool

	cfg     *config.Config
	logger  *output.Logger
	metrics *metrics.Metrics
	connect postgres.Connector
}

// Option customises the App, mostly for tests
type Option func(*App)

// WithConfig uses cfg instead of loading configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) { a.cfg = cfg }
}

// WithConnector replaces the PostgreSQL connector
func WithConnector(c postgres.Connector) Option {
	return func(a *App) { a.connect = c }
}

// NewRootCmd builds the arbrec command tree. Run without a subcommand it
// behaves like record.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "arbrec",
		Short: "Record arbitrage opportunities in PostgreSQL",
		Long: `arbrec stores arbitrage opportunities found by the pool cache in the
arbitrage_opportunities table and reports on what has been recorded.`,
		Example: `  arbrec --roi 0.45 --path "USDC→SOL→USDT→USDC"
  arbrec query recent -n 20
  arbrec mark 42 --status success --tx 5h3k...`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./arbrec.yaml or $HOME/.arbrec/arbrec.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	bindRecord(root, a)

	root.AddCommand(
		a.newRecordCmd(),
		a.newQueryCmd(),
		a.newMarkCmd(),
		a.newMigrateCmd(),
	)

	return root
}

func (a *App) setup(cmd *cobra.Command, args []string) error {
	if a.cfg == nil {
		cfg, err := config.Load(a.cfgFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	a.logger = output.NewLogger(a.cfg.Logging, a.debug)
	a.metrics = metrics.New()
	if a.connect == nil {
		a.connect = postgres.NewConnector(a.cfg.Database)
	}

	log.Debug().
		Str("command", cmd.CommandPath()).
		Str("database", a.cfg.Database.Redacted()).
		Msg("Configuration loaded")
	return nil
}

// pushMetrics sends the run's metrics to the Pushgateway when one is configured
func (a *App) pushMetrics(ctx context.Context) {
	url := a.cfg.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	if err := a.metrics.Push(ctx, url, a.cfg.Metrics.Job); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}
}

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devlongs/arb-recorder/internal/output"
	"github.com/devlongs/arb-recorder/internal/store/postgres"
)

func (a *App) newQueryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Report on recorded opportunities",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")

	var limit int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent opportunities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *postgres.Store) error {
				recs, err := s.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return output.NewReport(cmd.OutOrStdout(), asJSON).Recent(recs)
			})
		},
	}
	recent.Flags().IntVarP(&limit, "limit", "n", 10, "number of opportunities to show")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show overall statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *postgres.Store) error {
				sum, err := s.Summary(cmd.Context())
				if err != nil {
					return err
				}
				return output.NewReport(cmd.OutOrStdout(), asJSON).Summary(sum)
			})
		},
	}

	roiDist := &cobra.Command{
		Use:   "roi-dist",
		Short: "Show how opportunities are distributed over ROI ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *postgres.Store) error {
				buckets, err := s.ROIDistribution(cmd.Context())
				if err != nil {
					return err
				}
				return output.NewReport(cmd.OutOrStdout(), asJSON).ROIDistribution(buckets)
			})
		},
	}

	hourly := &cobra.Command{
		Use:   "hourly",
		Short: "Show per-hour statistics for the last 24 hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *postgres.Store) error {
				hours, err := s.Hourly(cmd.Context())
				if err != nil {
					return err
				}
				return output.NewReport(cmd.OutOrStdout(), asJSON).Hourly(hours)
			})
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show every field of one opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *postgres.Store) error {
				rec, err := s.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return output.NewReport(cmd.OutOrStdout(), asJSON).Opportunity(rec)
			})
		},
	}

	cmd.AddCommand(recent, stats, roiDist, hourly, show)
	return cmd
}

// withStore opens a connection, runs fn against it and closes it again
func (a *App) withStore(ctx context.Context, fn func(*postgres.Store) error) error {
	a.logger.LogConnecting(a.cfg.Database.Redacted())

	db, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database connection")
		}
	}()

	return fn(postgres.New(db))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid opportunity id %q", s)
	}
	return id, nil
}

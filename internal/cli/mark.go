package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/devlongs/arb-recorder/internal/store/postgres"
	"github.com/devlongs/arb-recorder/pkg/types"
)

func (a *App) newMarkCmd() *cobra.Command {
	var (
		status   string
		txHash   string
		profit   decimal.Decimal
		executed bool
	)

	cmd := &cobra.Command{
		Use:   "mark ID",
		Short: "Store the execution outcome of an opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			u := types.ExecutionUpdate{
				ID:       id,
				Executed: executed,
				Status:   &status,
			}
			if cmd.Flags().Changed("tx") {
				u.TxHash = &txHash
			}
			if cmd.Flags().Changed("profit") {
				u.ActualProfit = decimal.NewNullDecimal(profit)
			}

			err = a.withStore(cmd.Context(), func(s *postgres.Store) error {
				return s.UpdateExecution(cmd.Context(), u)
			})
			if err != nil {
				return err
			}

			a.logger.LogExecutionUpdated(u)
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Opportunity #%d marked %s\n", id, status)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&status, "status", "", "execution status, e.g. success or failed")
	fs.StringVar(&txHash, "tx", "", "transaction hash or signature")
	fs.Var(newDecimalValue(decimal.Zero, &profit), "profit", "actual profit in the start token")
	fs.BoolVar(&executed, "executed", true, "whether the opportunity was executed")
	_ = cmd.MarkFlagRequired("status")

	return cmd
}

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jask/ethsend/internal/service"
	"github.com/jask/ethsend/internal/transfer"
	"github.com/jask/ethsend/internal/wallet"
)

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	var (
		limit     int
		olderThan time.Duration
		reset     bool
	)
	c := &cobra.Command{
		Use:   "history",
		Short: "List journaled transfers, newest first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			a, err := setup(c.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.transfers == nil {
				return errors.New("history is disabled: database.path is empty")
			}
			if reset || olderThan > 0 {
				return maintain(c, &service.MaintenanceService{DB: a.db}, reset, olderThan)
			}
			if limit <= 0 {
				limit = a.cfg.UI.HistoryLimit
			}
			list, err := a.transfers.List(c.Context(), limit)
			if err != nil {
				return fmt.Errorf("list transfers: %w", err)
			}

			tw := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tSTATUS\tAMOUNT\tFROM\tRECIPIENT\tTX")
			for _, t := range list {
				status := t.Status
				if t.FailureKind != nil {
					status += "/" + *t.FailureKind
				}
				from, tx := "-", "-"
				if t.FromAddress != nil {
					from = wallet.ShortAddress(common.HexToAddress(*t.FromAddress))
				}
				if t.TxHash != nil {
					tx = *t.TxHash
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					t.CreatedAt.Local().Format("2006-01-02 15:04:05"), status, transfer.JournalAmount(t), from, t.Recipient, tx)
			}
			return tw.Flush()
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 0, "number of transfers to show (default ui.history_limit)")
	c.Flags().DurationVar(&olderThan, "prune", 0, "delete settled transfers older than this, e.g. 720h")
	c.Flags().BoolVar(&reset, "reset", false, "delete every journaled transfer")
	c.MarkFlagsMutuallyExclusive("prune", "reset")
	return c
}

func maintain(c *cobra.Command, svc *service.MaintenanceService, reset bool, olderThan time.Duration) error {
	if reset {
		if err := svc.Reset(c.Context()); err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), "journal cleared")
		return nil
	}
	n, err := svc.Prune(c.Context(), time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "pruned %d transfers\n", n)
	return nil
}

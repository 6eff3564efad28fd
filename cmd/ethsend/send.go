package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jask/ethsend/internal/transfer"
)

// errTransferNotSent makes the command exit non-zero after the
// notifications have been printed.
var errTransferNotSent = errors.New("transfer not sent")

func newSendCmd(v *viper.Viper) *cobra.Command {
	var form transfer.Form
	c := &cobra.Command{
		Use:   "send --to <address> --amount <ether>",
		Short: "Submit one transfer without the form",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			a, err := setup(c.Context(), v)
			if err != nil {
				return err
			}
			defer a.Close()

			out := c.OutOrStdout()
			a.controller.Notifier = transfer.NotifierFunc(func(n transfer.Notification) {
				printNotification(out, n)
			})
			res := a.controller.Submit(c.Context(), form)
			if res.TransferID != "" {
				row, err := a.transfers.Get(context.WithoutCancel(c.Context()), res.TransferID)
				if err != nil {
					a.log.Error("read journal row", "id", res.TransferID, "err", err)
				} else if row != nil {
					fmt.Fprintf(out, "journaled %s as %s (%s ETH)\n", row.ID, row.Status, transfer.JournalAmount(*row))
				}
			}
			return sendResult(out, res)
		},
	}
	c.Flags().StringVar(&form.Recipient, "to", "", "recipient address")
	c.Flags().StringVar(&form.Amount, "amount", "", "amount in ether")
	return c
}

func sendResult(w io.Writer, res transfer.Result) error {
	switch res.Outcome {
	case transfer.OutcomeSucceeded:
		if res.Receipt != nil && res.Receipt.BlockNumber != nil {
			fmt.Fprintf(w, "included in block %s\n", res.Receipt.BlockNumber)
		}
		return nil
	case transfer.OutcomeInvalid:
		for _, msg := range []string{res.Fields.Recipient, res.Fields.Amount} {
			if msg != "" {
				fmt.Fprintln(w, msg)
			}
		}
		return errTransferNotSent
	case transfer.OutcomeBusy:
		return fmt.Errorf("%w: another transfer is in flight", errTransferNotSent)
	default:
		if res.Failure != nil {
			return fmt.Errorf("%w: %s", errTransferNotSent, res.Failure.Kind)
		}
		return errTransferNotSent
	}
}

func printNotification(w io.Writer, n transfer.Notification) {
	fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Title)
	if n.Body != "" {
		fmt.Fprintf(w, "    %s\n", n.Body)
	}
}

package transfer

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/inconshreveable/log15"

	"github.com/jask/ethsend/internal/database/repository"
	"github.com/jask/ethsend/internal/logging"
	"github.com/jask/ethsend/internal/wallet"
)

// Outcome summarises one Submit call.
type Outcome string

const (
	OutcomeInvalid   Outcome = "invalid"   // required fields missing, nothing attempted
	OutcomeBusy      Outcome = "busy"      // another submission is in flight
	OutcomeHalted    Outcome = "halted"    // a precheck stopped the submission
	OutcomeSucceeded Outcome = "succeeded" // included with a successful receipt
	OutcomeFailed    Outcome = "failed"
)

// Result is what the form needs to render after a submission.
type Result struct {
	Outcome       Outcome
	Fields        FieldErrors
	Notifications []Notification
	Failure       *Failure
	TransferID    string
	TxHash        common.Hash
	Receipt       *types.Receipt
}

// ClearForm reports whether both fields should be reset.
func (r Result) ClearForm() bool { return r.Outcome == OutcomeSucceeded }

// Journal records submissions that reach the wallet.
type Journal interface {
	Insert(ctx context.Context, t repository.Transfer) error
	MarkSubmitted(ctx context.Context, id, from, txHash string) error
	MarkConfirmed(ctx context.Context, id string, block int64) error
	MarkFailed(ctx context.Context, id, kind string) error
}

// Guard flags recipients that resemble, without matching, a known one.
type Guard interface {
	Lookalike(ctx context.Context, recipient string) (match string, ok bool, err error)
}

// Recorder observes finished submissions.
type Recorder interface {
	Observe(outcome string, elapsed time.Duration)
}

// Controller runs the submit contract of the transfer form. Every field but
// Provider is optional; a nil Provider means no wallet is present.
type Controller struct {
	Provider       wallet.Provider
	Notifier       Notifier
	Journal        Journal
	Guard          Guard
	Metrics        Recorder
	Log            log15.Logger
	HaltOnPrecheck bool
	ConfirmTimeout time.Duration

	running sync.Mutex
	busy    atomic.Bool
}

// Loading reports whether a submission is in flight.
func (c *Controller) Loading() bool { return c.busy.Load() }

// Wait blocks until the submission in flight, if any, has finished and
// journaled its outcome.
func (c *Controller) Wait() {
	c.running.Lock()
	defer c.running.Unlock()
}

// Submit validates form and, when it passes, asks the wallet to send the
// transfer and waits for inclusion.
func (c *Controller) Submit(ctx context.Context, form Form) (res Result) {
	form = form.Sanitized()
	if errs := form.Validate(); !errs.Empty() {
		res.Outcome = OutcomeInvalid
		res.Fields = errs
		return res
	}
	if !c.running.TryLock() {
		res.Outcome = OutcomeBusy
		return res
	}
	c.busy.Store(true)
	defer func() {
		c.busy.Store(false)
		c.running.Unlock()
	}()

	start := time.Now()
	defer func() {
		if c.Metrics != nil {
			c.Metrics.Observe(string(res.Outcome), time.Since(start))
		}
	}()

	log := c.logger().New("recipient", form.Recipient, "amount", form.Amount)

	validAddr := wallet.IsAddress(form.Recipient)
	if !validAddr {
		c.notify(&res, Notification{Title: TitleInvalidRecipient, Level: LevelError})
		if c.HaltOnPrecheck {
			return c.halt(log, res, fmt.Errorf("%w: %q", ErrInvalidAddress, form.Recipient))
		}
	} else {
		c.checkLookalike(ctx, log, &res, form.Recipient)
	}

	if c.Provider == nil {
		c.notify(&res, Notification{Title: TitleProviderMissing, Level: LevelError})
		if c.HaltOnPrecheck {
			return c.halt(log, res, wallet.ErrNoProvider)
		}
	}

	value, amountErr := ParseEther(form.Amount)
	if amountErr != nil && c.HaltOnPrecheck {
		c.notify(&res, Notification{
			Title: TitleInvalidAmount,
			Body:  "Enter a positive ether amount with at most 18 decimals.",
			Level: LevelError,
		})
		return c.halt(log, res, amountErr)
	}

	res.TransferID = c.begin(ctx, log, form, value)
	if err := c.send(ctx, log, &res, form, value, validAddr, amountErr); err != nil {
		res.Outcome = OutcomeFailed
		res.Failure = Classify(err)
		log.Warn("transfer failed", "kind", res.Failure.Kind, "err", err)
		c.record(log, res.TransferID, func(ctx context.Context, j Journal) error {
			return j.MarkFailed(ctx, res.TransferID, string(res.Failure.Kind))
		})
		c.notify(&res, Notification{Title: TitleFailed, Body: res.Failure.Kind.Detail(), Level: LevelError})
		return res
	}

	res.Outcome = OutcomeSucceeded
	block := res.Receipt.BlockNumber
	log.Info("transfer confirmed", "hash", res.TxHash, "block", block)
	c.record(log, res.TransferID, func(ctx context.Context, j Journal) error {
		var n int64
		if block != nil {
			n = block.Int64()
		}
		return j.MarkConfirmed(ctx, res.TransferID, n)
	})
	c.notify(&res, Notification{Title: TitleSuccess, Body: "Tx " + res.TxHash.Hex(), Level: LevelSuccess})
	return res
}

func (c *Controller) send(ctx context.Context, log log15.Logger, res *Result, form Form, value *big.Int, validAddr bool, amountErr error) error {
	if c.Provider == nil {
		return wallet.ErrNoProvider
	}
	accounts, err := c.Provider.RequestAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return wallet.ErrNoAccounts
	}
	signer := c.Provider.Signer(accounts[0])
	// Only reachable with prechecks disabled.
	if !validAddr {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, form.Recipient)
	}
	if amountErr != nil {
		return amountErr
	}

	hash, err := signer.SendTransaction(ctx, wallet.TxRequest{To: common.HexToAddress(form.Recipient), Value: value})
	if err != nil {
		return err
	}
	res.TxHash = hash
	log.Info("awaiting confirmation", "from", signer.Address(), "hash", hash)
	c.record(log, res.TransferID, func(ctx context.Context, j Journal) error {
		return j.MarkSubmitted(ctx, res.TransferID, signer.Address().Hex(), hash.Hex())
	})

	waitCtx := ctx
	if c.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.ConfirmTimeout)
		defer cancel()
	}
	receipt, err := signer.WaitMined(waitCtx, hash)
	if err != nil {
		return err
	}
	if receipt == nil {
		return fmt.Errorf("no receipt for %s", hash.Hex())
	}
	res.Receipt = receipt
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
	}
	return nil
}

func (c *Controller) halt(log log15.Logger, res Result, err error) Result {
	res.Outcome = OutcomeHalted
	res.Failure = Classify(err)
	log.Info("transfer halted", "kind", res.Failure.Kind, "err", err)
	return res
}

func (c *Controller) checkLookalike(ctx context.Context, log log15.Logger, res *Result, recipient string) {
	if c.Guard == nil {
		return
	}
	match, ok, err := c.Guard.Lookalike(ctx, recipient)
	if err != nil {
		log.Error("lookalike check", "err", err)
		return
	}
	if ok {
		c.notify(res, Notification{Title: TitleLookalike, Body: "Previously used: " + match, Level: LevelWarning})
	}
}

// begin journals a pending transfer and returns its id, or "" when there is
// no journal or the insert failed.
func (c *Controller) begin(ctx context.Context, log log15.Logger, form Form, value *big.Int) string {
	if c.Journal == nil {
		return ""
	}
	t := repository.Transfer{
		ID:        uuid.NewString(),
		Recipient: form.Recipient,
		Amount:    form.Amount,
		Status:    repository.StatusPending,
	}
	if value != nil {
		t.AmountWei = value.String()
	}
	if err := c.Journal.Insert(context.WithoutCancel(ctx), t); err != nil {
		log.Error("journal insert", "err", err)
		return ""
	}
	return t.ID
}

func (c *Controller) record(log log15.Logger, id string, fn func(context.Context, Journal) error) {
	if c.Journal == nil || id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx, c.Journal); err != nil {
		log.Error("journal update", "id", id, "err", err)
	}
}

func (c *Controller) notify(res *Result, n Notification) {
	res.Notifications = append(res.Notifications, n)
	if c.Notifier != nil {
		c.Notifier.Notify(n)
	}
}

func (c *Controller) logger() log15.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logging.Discard()
}

package transfer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/jask/ethsend/internal/database/repository"
	"github.com/jask/ethsend/internal/wallet"
)

const (
	validRecipient = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	fromAccount    = "0x1111111111111111111111111111111111111111"
)

// fakeProvider records every call so tests can assert nothing reached the
// wallet.
type fakeProvider struct {
	mu          sync.Mutex
	calls       []string
	accountsErr error
	sendErr     error
	waitErr     error
	noReceipt   bool
	status      uint64
	sent        []wallet.TxRequest
	block       chan struct{} // when set, WaitMined waits on it
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{status: types.ReceiptStatusSuccessful}
}

func (p *fakeProvider) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakeProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	p.record("accounts")
	if p.accountsErr != nil {
		return nil, p.accountsErr
	}
	return []common.Address{common.HexToAddress(fromAccount)}, nil
}

func (p *fakeProvider) Signer(account common.Address) wallet.Signer {
	return &fakeSigner{p: p, from: account}
}

type fakeSigner struct {
	p    *fakeProvider
	from common.Address
}

func (s *fakeSigner) Address() common.Address { return s.from }

func (s *fakeSigner) SendTransaction(_ context.Context, req wallet.TxRequest) (common.Hash, error) {
	s.p.record("send")
	if s.p.sendErr != nil {
		return common.Hash{}, s.p.sendErr
	}
	s.p.mu.Lock()
	s.p.sent = append(s.p.sent, req)
	s.p.mu.Unlock()
	return common.HexToHash("0xfeed"), nil
}

func (s *fakeSigner) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	s.p.record("wait")
	if s.p.block != nil {
		select {
		case <-s.p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.p.waitErr != nil {
		return nil, s.p.waitErr
	}
	if s.p.noReceipt {
		return nil, nil
	}
	return &types.Receipt{Status: s.p.status, TxHash: hash, BlockNumber: big.NewInt(7)}, nil
}

type rejection struct{}

func (rejection) Error() string  { return "User rejected the request." }
func (rejection) ErrorCode() int { return wallet.CodeUserRejected }

type memJournal struct {
	mu   sync.Mutex
	rows map[string]*repository.Transfer
}

func newMemJournal() *memJournal { return &memJournal{rows: map[string]*repository.Transfer{}} }

func (j *memJournal) Insert(_ context.Context, t repository.Transfer) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows[t.ID] = &t
	return nil
}

func (j *memJournal) MarkSubmitted(_ context.Context, id, from, hash string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows[id].FromAddress, j.rows[id].TxHash = &from, &hash
	return nil
}

func (j *memJournal) MarkConfirmed(_ context.Context, id string, block int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows[id].Status, j.rows[id].BlockNumber = repository.StatusConfirmed, &block
	return nil
}

func (j *memJournal) MarkFailed(_ context.Context, id, kind string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows[id].Status, j.rows[id].FailureKind = repository.StatusFailed, &kind
	return nil
}

func (j *memJournal) get(id string) repository.Transfer {
	j.mu.Lock()
	defer j.mu.Unlock()
	return *j.rows[id]
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *countingRecorder) Observe(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func titles(ns []Notification) []string {
	var out []string
	for _, n := range ns {
		out = append(out, n.Title)
	}
	return out
}

func TestSubmitRequiredFieldsBlockProvider(t *testing.T) {
	p := newFakeProvider()
	c := &Controller{Provider: p, HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: "  ", Amount: ""})
	require.Equal(t, OutcomeInvalid, res.Outcome)
	require.Equal(t, MsgRecipientRequired, res.Fields.Recipient)
	require.Equal(t, MsgAmountRequired, res.Fields.Amount)
	require.Empty(t, res.Notifications)
	require.Empty(t, p.Calls())
	require.False(t, c.Loading())
}

func TestSubmitSuccess(t *testing.T) {
	p := newFakeProvider()
	j := newMemJournal()
	rec := &countingRecorder{}
	var pushed []Notification
	c := &Controller{
		Provider:       p,
		Journal:        j,
		Metrics:        rec,
		Notifier:       NotifierFunc(func(n Notification) { pushed = append(pushed, n) }),
		HaltOnPrecheck: true,
	}

	res := c.Submit(context.Background(), Form{Recipient: " " + validRecipient + " ", Amount: " 0.25 "})
	require.Equal(t, OutcomeSucceeded, res.Outcome)
	require.True(t, res.ClearForm())
	require.Nil(t, res.Failure)
	require.Equal(t, []string{TitleSuccess}, titles(res.Notifications))
	require.Equal(t, LevelSuccess, res.Notifications[0].Level)
	require.Equal(t, res.Notifications, pushed)
	require.Equal(t, []string{"accounts", "send", "wait"}, p.Calls())
	require.False(t, c.Loading())

	require.Len(t, p.sent, 1)
	require.Equal(t, common.HexToAddress(validRecipient), p.sent[0].To)
	require.Equal(t, "250000000000000000", p.sent[0].Value.String())

	row := j.get(res.TransferID)
	require.Equal(t, repository.StatusConfirmed, row.Status)
	require.Equal(t, "0.25", row.Amount)
	require.Equal(t, "250000000000000000", row.AmountWei)
	require.Equal(t, common.HexToHash("0xfeed").Hex(), *row.TxHash)
	require.Equal(t, int64(7), *row.BlockNumber)
	require.Equal(t, []string{"succeeded"}, rec.outcomes)
}

func TestSubmitInvalidAddressHalts(t *testing.T) {
	p := newFakeProvider()
	c := &Controller{Provider: p, HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: "not-an-address", Amount: "1"})
	require.Equal(t, OutcomeHalted, res.Outcome)
	require.Equal(t, KindInvalidInput, res.Failure.Kind)
	require.Equal(t, []string{TitleInvalidRecipient}, titles(res.Notifications))
	require.Empty(t, p.Calls())
	require.False(t, res.ClearForm())
}

func TestSubmitInvalidAddressWarnsAndContinuesWithoutHalt(t *testing.T) {
	p := newFakeProvider()
	c := &Controller{Provider: p}

	res := c.Submit(context.Background(), Form{Recipient: "not-an-address", Amount: "1"})
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, KindInvalidInput, res.Failure.Kind)
	require.Equal(t, []string{TitleInvalidRecipient, TitleFailed}, titles(res.Notifications))
	// the wallet is still asked for accounts, but nothing is sent
	require.Equal(t, []string{"accounts"}, p.Calls())
}

func TestSubmitMissingProviderHalts(t *testing.T) {
	c := &Controller{HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"})
	require.Equal(t, OutcomeHalted, res.Outcome)
	require.Equal(t, KindProviderMissing, res.Failure.Kind)
	require.Equal(t, []string{TitleProviderMissing}, titles(res.Notifications))
}

func TestSubmitMissingProviderWithoutHaltFailsGenerically(t *testing.T) {
	c := &Controller{}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"})
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, KindProviderMissing, res.Failure.Kind)
	require.Equal(t, []string{TitleProviderMissing, TitleFailed}, titles(res.Notifications))
	require.False(t, c.Loading())
}

func TestSubmitInvalidAmountHalts(t *testing.T) {
	p := newFakeProvider()
	c := &Controller{Provider: p, HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1.2.3"})
	require.Equal(t, OutcomeHalted, res.Outcome)
	require.Equal(t, KindInvalidInput, res.Failure.Kind)
	require.Equal(t, []string{TitleInvalidAmount}, titles(res.Notifications))
	require.Empty(t, p.Calls())
}

func TestSubmitUserRejection(t *testing.T) {
	p := newFakeProvider()
	p.sendErr = rejection{}
	j := newMemJournal()
	c := &Controller{Provider: p, Journal: j, HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"})
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, KindRejected, res.Failure.Kind)
	require.Equal(t, []string{TitleFailed}, titles(res.Notifications))
	require.Equal(t, KindRejected.Detail(), res.Notifications[0].Body)
	require.False(t, res.ClearForm())
	require.False(t, c.Loading())

	row := j.get(res.TransferID)
	require.Equal(t, repository.StatusFailed, row.Status)
	require.Equal(t, "rejected", *row.FailureKind)
	require.Nil(t, row.TxHash)
}

func TestSubmitReverted(t *testing.T) {
	p := newFakeProvider()
	p.status = types.ReceiptStatusFailed
	c := &Controller{Provider: p, HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"})
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, KindReverted, res.Failure.Kind)
	require.NotNil(t, res.Receipt)
}

func TestSubmitMissingReceiptFails(t *testing.T) {
	p := newFakeProvider()
	p.noReceipt = true
	j := newMemJournal()
	c := &Controller{Provider: p, Journal: j, HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"})
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, KindUnknown, res.Failure.Kind)
	require.Nil(t, res.Receipt)
	require.Equal(t, repository.StatusFailed, j.get(res.TransferID).Status)
}

func TestSubmitCanceledWhileWaitingIsJournaled(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	j := newMemJournal()
	c := &Controller{Provider: p, Journal: j, HaltOnPrecheck: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- c.Submit(ctx, Form{Recipient: validRecipient, Amount: "1"}) }()
	require.Eventually(t, func() bool {
		calls := p.Calls()
		return len(calls) > 0 && calls[len(calls)-1] == "wait"
	}, time.Second, time.Millisecond)
	cancel()
	c.Wait()
	require.False(t, c.Loading())

	res := <-done
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, KindCanceled, res.Failure.Kind)
	row := j.get(res.TransferID)
	require.Equal(t, repository.StatusFailed, row.Status)
	require.Equal(t, string(KindCanceled), *row.FailureKind)
}

func TestSubmitConfirmTimeout(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	c := &Controller{Provider: p, HaltOnPrecheck: true, ConfirmTimeout: 20 * time.Millisecond}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"})
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, KindTimeout, res.Failure.Kind)
	require.Equal(t, common.HexToHash("0xfeed"), res.TxHash)
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	c := &Controller{Provider: p, HaltOnPrecheck: true}

	done := make(chan Result, 1)
	go func() { done <- c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"}) }()

	require.Eventually(t, c.Loading, time.Second, time.Millisecond)
	second := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "2"})
	require.Equal(t, OutcomeBusy, second.Outcome)
	require.Empty(t, second.Notifications)

	close(p.block)
	first := <-done
	require.Equal(t, OutcomeSucceeded, first.Outcome)
	require.False(t, c.Loading())
	require.Len(t, p.sent, 1)
}

type stubGuard struct {
	match string
	ok    bool
	err   error
}

func (g stubGuard) Lookalike(context.Context, string) (string, bool, error) { return g.match, g.ok, g.err }

func TestSubmitLookalikeWarningDoesNotBlock(t *testing.T) {
	p := newFakeProvider()
	c := &Controller{Provider: p, Guard: stubGuard{match: "0x5aae…eaed", ok: true}, HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"})
	require.Equal(t, OutcomeSucceeded, res.Outcome)
	require.Equal(t, []string{TitleLookalike, TitleSuccess}, titles(res.Notifications))
	require.Equal(t, LevelWarning, res.Notifications[0].Level)
}

func TestSubmitGuardErrorIsIgnored(t *testing.T) {
	p := newFakeProvider()
	c := &Controller{Provider: p, Guard: stubGuard{err: errors.New("db locked")}, HaltOnPrecheck: true}

	res := c.Submit(context.Background(), Form{Recipient: validRecipient, Amount: "1"})
	require.Equal(t, OutcomeSucceeded, res.Outcome)
	require.Equal(t, []string{TitleSuccess}, titles(res.Notifications))
}

package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/jask/ethsend/internal/wallet"
)

// Kind is the closed set of reasons a transfer can fail.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindProviderMissing   Kind = "provider_missing"
	KindRejected          Kind = "rejected"
	KindUnauthorized      Kind = "unauthorized"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNetwork           Kind = "network"
	KindReverted          Kind = "reverted"
	KindTimeout           Kind = "timeout"
	KindCanceled          Kind = "canceled"
	KindUnknown           Kind = "unknown"
)

var (
	ErrInvalidAddress = errors.New("invalid recipient address")
	ErrReverted       = errors.New("transaction reverted")
)

var kindDetail = map[Kind]string{
	KindInvalidInput:      "Check the recipient address and amount.",
	KindProviderMissing:   "No wallet provider is reachable.",
	KindRejected:          "The request was rejected in the wallet.",
	KindUnauthorized:      "The wallet did not grant account access.",
	KindInsufficientFunds: "Insufficient funds for amount plus gas.",
	KindNetwork:           "Could not reach the wallet provider.",
	KindReverted:          "The transaction was mined but reverted.",
	KindTimeout:           "Timed out waiting for confirmation.",
	KindCanceled:          "The transfer was canceled.",
	KindUnknown:           "Unexpected error.",
}

// Detail is the user-facing line for k.
func (k Kind) Detail() string {
	if d, ok := kindDetail[k]; ok {
		return d
	}
	return kindDetail[KindUnknown]
}

// Failure is a classified transfer error.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Classify maps err onto a Kind. A nil err yields nil.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrZeroAmount):
		return KindInvalidInput
	case errors.Is(err, wallet.ErrNoProvider):
		return KindProviderMissing
	case errors.Is(err, wallet.ErrNoAccounts):
		return KindUnauthorized
	case errors.Is(err, ErrReverted):
		return KindReverted
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	if code, ok := wallet.ErrorCode(err); ok {
		switch code {
		case wallet.CodeUserRejected:
			return KindRejected
		case wallet.CodeUnauthorized:
			return KindUnauthorized
		}
	}
	// geth and most wallets only signal this in the message text
	if strings.Contains(strings.ToLower(err.Error()), "insufficient funds") {
		return KindInsufficientFunds
	}
	var (
		netErr  net.Error
		urlErr  *url.Error
		httpErr rpc.HTTPError
	)
	if errors.As(err, &netErr) || errors.As(err, &urlErr) || errors.As(err, &httpErr) {
		return KindNetwork
	}
	return KindUnknown
}

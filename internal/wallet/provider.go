// Package wallet reaches an external wallet that owns the user's keys. The
// wallet signs and broadcasts; this package only asks it to.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 and JSON-RPC error codes the client cares about.
const (
	CodeUserRejected   = 4001
	CodeUnauthorized   = 4100
	CodeMethodNotFound = -32601
)

var (
	// ErrNoProvider is returned when no wallet provider was injected.
	ErrNoProvider = errors.New("wallet provider not found")
	// ErrNoAccounts is returned when the wallet exposes no accounts.
	ErrNoAccounts = errors.New("wallet exposed no accounts")
)

// Provider is the injected wallet capability.
type Provider interface {
	// RequestAccounts asks the wallet for account access. The wallet may
	// prompt the user.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Signer returns a handle that sends transactions from account.
	Signer(account common.Address) Signer
}

// Signer sends value transfers on behalf of one authorized account.
type Signer interface {
	Address() common.Address
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	// WaitMined blocks until the transaction is included or ctx ends.
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// TxRequest is a native-currency transfer. Gas, fees and nonce are left to
// the wallet.
type TxRequest struct {
	To    common.Address
	Value *big.Int // wei
}

// ErrorCode extracts the JSON-RPC error code carried by err, if any.
func ErrorCode(err error) (int, bool) {
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return rerr.ErrorCode(), true
	}
	return 0, false
}

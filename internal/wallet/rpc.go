package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/inconshreveable/log15"

	"github.com/jask/ethsend/internal/logging"
)

const defaultPollInterval = 2 * time.Second

// RPCProvider talks to a wallet exposing the standard Ethereum JSON-RPC
// methods (eth_requestAccounts, eth_sendTransaction) over HTTP, WebSocket or
// IPC.
type RPCProvider struct {
	client       *rpc.Client
	eth          *ethclient.Client
	pollInterval time.Duration
	log          log15.Logger
}

// Options tunes an RPCProvider.
type Options struct {
	PollInterval time.Duration
	Log          log15.Logger
}

// NewRPCProvider wraps an already dialed client.
func NewRPCProvider(client *rpc.Client, opts Options) *RPCProvider {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	return &RPCProvider{
		client:       client,
		eth:          ethclient.NewClient(client),
		pollInterval: opts.PollInterval,
		log:          opts.Log,
	}
}

// Detect dials url and probes it with eth_chainId. It returns ErrNoProvider
// wrapped with the cause when nothing answers, so callers can treat the
// provider as absent.
func Detect(ctx context.Context, url string, opts Options) (*RPCProvider, error) {
	if url == "" {
		return nil, ErrNoProvider
	}
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrNoProvider, url, err)
	}
	p := NewRPCProvider(client, opts)
	chainID, err := p.eth.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: probe %s: %v", ErrNoProvider, url, err)
	}
	p.log.Info("wallet provider detected", "url", url, "chain_id", chainID)
	return p, nil
}

// Close releases the underlying connection.
func (p *RPCProvider) Close() {
	p.client.Close()
}

// RequestAccounts calls eth_requestAccounts, falling back to eth_accounts for
// providers that predate EIP-1102.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts")
	if code, ok := ErrorCode(err); ok && code == CodeMethodNotFound {
		p.log.Debug("eth_requestAccounts unsupported, using eth_accounts")
		err = p.client.CallContext(ctx, &accounts, "eth_accounts")
	}
	if err != nil {
		return nil, fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return accounts, nil
}

// Signer implements Provider.
func (p *RPCProvider) Signer(account common.Address) Signer {
	return &rpcSigner{p: p, from: account}
}

type rpcSigner struct {
	p    *RPCProvider
	from common.Address
}

type sendTxArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
}

func (s *rpcSigner) Address() common.Address { return s.from }

func (s *rpcSigner) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	var hash common.Hash
	args := sendTxArgs{From: s.from, To: req.To, Value: (*hexutil.Big)(req.Value)}
	if err := s.p.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	s.p.log.Info("transaction submitted", "from", s.from, "to", req.To, "hash", hash)
	return hash, nil
}

func (s *rpcSigner) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.p.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := s.p.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction receipt: %w", err)
		}
		s.p.log.Debug("receipt not yet available", "hash", hash)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

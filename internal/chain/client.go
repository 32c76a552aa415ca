package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// DefaultDialTimeout bounds streaming-connection establishment. On timeout
// the dialer falls back to the HTTP endpoint instead of retrying the stream.
const DefaultDialTimeout = 5 * time.Second

// Client wraps go-ethereum RPC and provides helper methods. A Client is
// constructed once at startup and passed by reference; it holds no global
// state.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	streaming bool

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// DialOptions configures transport selection.
type DialOptions struct {
	RPCURL      string
	WSURL       string
	DialTimeout time.Duration
}

// Dial establishes the chain connection. The streaming (WebSocket) endpoint
// is preferred when configured; if it fails to establish within the dial
// timeout the HTTP endpoint is used instead. Both transports serve the same
// call surface, so callers must not gate correctness on IsStreaming.
func Dial(ctx context.Context, opts DialOptions, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	if opts.WSURL != "" {
		wsCtx, cancel := context.WithTimeout(ctx, timeout)
		rpcClient, err := rpc.DialContext(wsCtx, opts.WSURL)
		cancel()
		if err == nil {
			return newClient(rpcClient, true), nil
		}
		logger.Warn("streaming endpoint unavailable, falling back to http",
			zap.String("ws", opts.WSURL), zap.Error(err))
	}

	if opts.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	rpcClient, err := rpc.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return newClient(rpcClient, false), nil
}

func newClient(rpcClient *rpc.Client, streaming bool) *Client {
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		streaming: streaming,
		tsCache:   make(map[uint64]uint64),
	}
}

// IsStreaming reports whether the connection rides the WebSocket endpoint.
// Informational only; polling works identically over either transport.
func (c *Client) IsStreaming() bool {
	return c.streaming
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.ethClient.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache so a
// history scan resolves each unique block once.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterLogs returns logs in the given range for addresses and topic filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topics [][]common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topics) > 0 {
		query.Topics = topics
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.ethClient.SendTransaction(ctx, tx)
}

// TransactionReceipt returns the receipt for a mined transaction.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.ethClient.TransactionReceipt(ctx, txHash)
}

// PendingNonceAt returns the pending nonce for an account.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.ethClient.PendingNonceAt(ctx, account)
}

// SuggestGasPrice returns the suggested gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.ethClient.SuggestGasPrice(ctx)
}

// Backend exposes the underlying ethclient for abi/bind transactors.
func (c *Client) Backend() *ethclient.Client {
	return c.ethClient
}

package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/metrics"
)

// Client wraps the go-ethereum RPC and eth clients with per-call timeouts,
// bounded retries and an optional rate limit.
type Client struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	cfg     Config
	limiter *rate.Limiter
	metrics *metrics.Metrics // nil if metrics disabled
	log     *zap.SugaredLogger
}

var _ chainclient.ChainClient = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithMetrics enables metrics collection for the client.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger logs retried calls at debug level.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New dials url. HTTP endpoints connect lazily, so this does not touch the network.
func New(ctx context.Context, url string, cfg Config, opts ...Option) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return newClient(c, cfg, opts...), nil
}

// Dialer adapts New to chainclient.Dialer.
func Dialer(cfg Config, opts ...Option) chainclient.Dialer {
	return func(ctx context.Context, url string) (chainclient.ChainClient, error) {
		return New(ctx, url, cfg, opts...)
	}
}

func newClient(c *rpc.Client, cfg Config, opts ...Option) *Client {
	client := &Client{
		rpc: c,
		eth: ethclient.NewClient(c),
		cfg: cfg,
		log: zap.NewNop().Sugar(),
	}
	if cfg.RateLimit > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return call(ctx, c, "eth_blockNumber", c.eth.BlockNumber)
}

func (c *Client) HeaderByNumber(ctx context.Context, number uint64) (types.BlockHeader, error) {
	h, err := call(ctx, c, "eth_getBlockByNumber", func(ctx context.Context) (*gethtypes.Header, error) {
		return c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	})
	if err != nil {
		return types.BlockHeader{}, fmt.Errorf("header by number %d: %w", number, err)
	}
	return mapHeader(h), nil
}

func (c *Client) HeaderByHash(ctx context.Context, hash common.Hash) (types.BlockHeader, error) {
	h, err := call(ctx, c, "eth_getBlockByHash", func(ctx context.Context) (*gethtypes.Header, error) {
		return c.eth.HeaderByHash(ctx, hash)
	})
	if err != nil {
		return types.BlockHeader{}, fmt.Errorf("header by hash %s: %w", hash, err)
	}
	return mapHeader(h), nil
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	return call(ctx, c, "eth_getLogs", func(ctx context.Context) ([]gethtypes.Log, error) {
		return c.eth.FilterLogs(ctx, q)
	})
}

// FullHeaderByNumber returns the complete go-ethereum header, which proof
// generation RLP-encodes.
func (c *Client) FullHeaderByNumber(ctx context.Context, number uint64) (*gethtypes.Header, error) {
	h, err := call(ctx, c, "eth_getBlockByNumber", func(ctx context.Context) (*gethtypes.Header, error) {
		return c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	})
	if err != nil {
		return nil, fmt.Errorf("header by number %d: %w", number, err)
	}
	return h, nil
}

// ReportedBlockHash returns the hash field the node serves for number,
// without recomputing it from the header.
func (c *Client) ReportedBlockHash(ctx context.Context, number uint64) (common.Hash, error) {
	hash, err := call(ctx, c, "eth_getBlockByNumber", func(ctx context.Context) (common.Hash, error) {
		var block *struct {
			Hash common.Hash `json:"hash"`
		}
		tag := hexutil.EncodeBig(new(big.Int).SetUint64(number))
		if err := c.rpc.CallContext(ctx, &block, "eth_getBlockByNumber", tag, false); err != nil {
			return common.Hash{}, err
		}
		if block == nil {
			return common.Hash{}, ethereum.NotFound
		}
		return block.Hash, nil
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("block hash %d: %w", number, err)
	}
	return hash, nil
}

// GetProof runs eth_getProof for account and slots at number.
func (c *Client) GetProof(ctx context.Context, account common.Address, slots []string, number uint64) (*gethclient.AccountResult, error) {
	return call(ctx, c, "eth_getProof", func(ctx context.Context) (*gethclient.AccountResult, error) {
		return gethclient.New(c.rpc).GetProof(ctx, account, slots, new(big.Int).SetUint64(number))
	})
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	c.rpc.Close()
}

// call runs fn with a per-attempt timeout, retrying up to cfg.MaxRetries times.
// ethereum.NotFound is final and returned as is; other failures come back as
// *types.TransportError once retries are exhausted.
func call[T any](ctx context.Context, c *Client, method string, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.IncRPCRetry(method)
			c.log.Debugw("retrying rpc call", "method", method, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(c.cfg.RetryBackoff):
			case <-ctx.Done():
				return zero, &types.TransportError{Method: method, Err: ctx.Err()}
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return zero, &types.TransportError{Method: method, Err: err}
			}
		}

		res, err := doCall(ctx, c, method, fn)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, ethereum.NotFound) {
			return zero, err
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	return zero, &types.TransportError{
		Method: method,
		Err:    fmt.Errorf("after %d attempts: %w", c.cfg.MaxRetries+1, lastErr),
	}
}

func doCall[T any](ctx context.Context, c *Client, method string, fn func(context.Context) (T, error)) (T, error) {
	c.metrics.IncRPCInFlight()
	defer c.metrics.DecRPCInFlight()

	callCtx := ctx
	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := fn(callCtx)
	c.metrics.RecordRPCCall(method, err, time.Since(start).Seconds())
	return res, err
}

func mapHeader(h *gethtypes.Header) types.BlockHeader {
	return types.BlockHeader{
		Number:    h.Number.Uint64(),
		Hash:      h.Hash(),
		StateRoot: h.Root,
		Time:      h.Time,
	}
}

package ratelimit

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"

	"github.com/thesandboxgame/ownership-gatherer/internal/adapter"
	"github.com/thesandboxgame/ownership-gatherer/internal/metrics"
)

// Config bounds the request rate sent to a JSON-RPC provider
type Config struct {
	// RequestsPerSecond is the sustained rate. Zero or less disables limiting.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once, at least 1
	Burst int
}

// rateLimitedEthClient makes every call wait for a token of a shared bucket,
// so concurrent owner lookups stay under the provider's quota
type rateLimitedEthClient struct {
	inner   adapter.EthClient
	limiter *rate.Limiter
}

// NewEthClient wraps client with a token-bucket limiter. The client is
// returned unchanged when limiting is disabled.
func NewEthClient(client adapter.EthClient, cfg Config) adapter.EthClient {
	if cfg.RequestsPerSecond <= 0 {
		return client
	}
	burst := max(cfg.Burst, 1)
	return &rateLimitedEthClient{
		inner:   client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// wait consumes exactly one token, giving it back when ctx ends first
func (c *rateLimitedEthClient) wait(ctx context.Context, method string) error {
	r := c.limiter.Reserve()
	if !r.OK() {
		return errors.New("rate limiter cannot grant a token")
	}

	if delay := r.Delay(); delay > 0 {
		metrics.RPCRateLimitWaits.Inc()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}

	metrics.RPCRequests.WithLabelValues(method).Inc()
	return nil
}

func (c *rateLimitedEthClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if err := c.wait(ctx, "eth_getLogs"); err != nil {
		return nil, err
	}
	return c.inner.FilterLogs(ctx, query)
}

func (c *rateLimitedEthClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.wait(ctx, "eth_getBlockByNumber"); err != nil {
		return nil, err
	}
	return c.inner.HeaderByNumber(ctx, number)
}

func (c *rateLimitedEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.wait(ctx, "eth_call"); err != nil {
		return nil, err
	}
	return c.inner.CallContract(ctx, msg, blockNumber)
}

func (c *rateLimitedEthClient) Close() {
	c.inner.Close()
}

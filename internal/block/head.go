package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/thesandboxgame/ownership-gatherer/internal/adapter"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
	"github.com/thesandboxgame/ownership-gatherer/internal/metrics"
)

// Head is the cached chain head
type Head struct {
	Number    uint64
	FetchedAt time.Time
}

// BlockHeadProvider answers the chain-head query used to bound a scan.
// Repeated queries within the TTL are served from cache so the presale scans
// of one run share a single RPC round trip.
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head_provider.go -package=mocks -mock_names=BlockHeadProvider=MockBlockHeadProvider,BlockFetcher=MockBlockFetcher
type BlockHeadProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)
}

// BlockFetcher fetches the latest block number from the chain
type BlockFetcher interface {
	FetchLatestBlock(ctx context.Context) (uint64, error)
}

// Config holds configuration for the BlockHeadProvider
type Config struct {
	// TTL is how long to cache the block number
	TTL time.Duration

	// StaleWindow is how long to use stale data if fetching fails
	StaleWindow time.Duration

	// MaxRetries is the number of retries after a failed fetch
	MaxRetries uint64

	// RetryInterval is the initial backoff between retries
	RetryInterval time.Duration
}

type blockHeadProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu   sync.RWMutex
	head *Head
}

// NewBlockHeadProvider creates a new BlockHeadProvider with caching
func NewBlockHeadProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) BlockHeadProvider {
	if config.RetryInterval == 0 {
		config.RetryInterval = 500 * time.Millisecond
	}
	return &blockHeadProvider{
		fetcher: fetcher,
		config:  config,
		clock:   clock,
	}
}

// GetLatestBlock returns the latest block number, using cache if valid
func (p *blockHeadProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()

	if cached != nil && now.Sub(cached.FetchedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Using cached block number", zap.Uint64("block_number", cached.Number))
		return cached.Number, nil
	}

	logger.DebugCtx(ctx, "Fetching latest block number from chain provider")
	blockNumber, err := p.fetchWithRetry(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.FetchedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Using stale block number",
				zap.Uint64("block_number", cached.Number),
				zap.Error(err))
			return cached.Number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	p.head = &Head{
		Number:    blockNumber,
		FetchedAt: now,
	}
	p.mu.Unlock()

	metrics.ChainHead.Set(float64(blockNumber))
	return blockNumber, nil
}

func (p *blockHeadProvider) fetchWithRetry(ctx context.Context) (uint64, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.RetryInterval

	attempt := 0
	return backoff.RetryWithData(func() (uint64, error) {
		attempt++
		number, err := p.fetcher.FetchLatestBlock(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, backoff.Permanent(err)
			}
			logger.DebugCtx(ctx, "Latest block fetch failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return 0, err
		}
		return number, nil
	}, backoff.WithContext(backoff.WithMaxRetries(b, p.config.MaxRetries), ctx))
}

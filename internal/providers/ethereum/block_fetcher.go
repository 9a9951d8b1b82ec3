package ethereum

import (
	"context"
	"fmt"

	"github.com/thesandboxgame/ownership-gatherer/internal/adapter"
	"github.com/thesandboxgame/ownership-gatherer/internal/block"
)

// ethereumBlockFetcher implements block.BlockFetcher for EVM chains
type ethereumBlockFetcher struct {
	client adapter.EthClient
}

func NewBlockFetcher(client adapter.EthClient) block.BlockFetcher {
	return &ethereumBlockFetcher{client: client}
}

// FetchLatestBlock fetches the latest block number
func (f *ethereumBlockFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	header, err := f.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	if header == nil || header.Number == nil {
		return 0, fmt.Errorf("failed to get latest block: empty header")
	}
	return header.Number.Uint64(), nil
}

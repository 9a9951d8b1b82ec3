package gathering

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/thesandboxgame/ownership-gatherer/internal/aggregator"
	"github.com/thesandboxgame/ownership-gatherer/internal/block"
	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
	"github.com/thesandboxgame/ownership-gatherer/internal/providers/ethereum"
	"github.com/thesandboxgame/ownership-gatherer/internal/scanner"
	"github.com/thesandboxgame/ownership-gatherer/internal/snapshot"
	"github.com/thesandboxgame/ownership-gatherer/internal/store"
)

// OwnerSnapshotConfig holds the contracts and tuning of an owner snapshot run
type OwnerSnapshotConfig struct {
	LandContract   common.Address
	LandStartBlock uint64

	AssetContract   common.Address
	AssetStartBlock uint64

	Scanner scanner.Config
}

// OwnerSnapshot rebuilds LAND and asset holdings by replaying transfers
type OwnerSnapshot struct {
	config    OwnerSnapshotConfig
	client    ethereum.Client
	heads     block.BlockHeadProvider
	publisher publisher
}

// NewOwnerSnapshot creates an owner snapshot job. st may be nil.
func NewOwnerSnapshot(config OwnerSnapshotConfig, network string, client ethereum.Client, heads block.BlockHeadProvider, writer *snapshot.Writer, st store.Store) *OwnerSnapshot {
	return &OwnerSnapshot{
		config: config,
		client: client,
		heads:  heads,
		publisher: publisher{
			network: network,
			writer:  writer,
			store:   st,
		},
	}
}

// Run replays every LAND and asset transfer up to the chain head and writes
// the owners snapshot
func (j *OwnerSnapshot) Run(ctx context.Context) (*Result, error) {
	head, err := j.heads.GetLatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}
	logger.InfoCtx(ctx, "Starting owner snapshot", zap.Uint64("head", head))

	ledger := aggregator.NewLedger()

	landTransfers, err := scanner.New[domain.LandTransferEvent]("land-transfers",
		func(ctx context.Context, r domain.BlockRange) ([]domain.LandTransferEvent, error) {
			return j.client.FetchLandTransfers(ctx, j.config.LandContract, r)
		},
		j.heads.GetLatestBlock, j.config.Scanner,
	).ScanRange(ctx, j.config.LandStartBlock, head)
	if err != nil {
		return nil, fmt.Errorf("failed to scan land transfers: %w", err)
	}
	for _, e := range landTransfers {
		ledger.ApplyLandTransfer(e)
	}
	logger.InfoCtx(ctx, "Replayed land transfers", zap.Int("events", len(landTransfers)))

	assetTransfers, err := scanner.New[domain.AssetTransferEvent]("asset-transfers",
		func(ctx context.Context, r domain.BlockRange) ([]domain.AssetTransferEvent, error) {
			return j.client.FetchAssetTransfers(ctx, j.config.AssetContract, r)
		},
		j.heads.GetLatestBlock, j.config.Scanner,
	).ScanRange(ctx, j.config.AssetStartBlock, head)
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset transfers: %w", err)
	}
	for _, e := range assetTransfers {
		if err := ledger.ApplyAssetTransfer(e); err != nil {
			return nil, fmt.Errorf("failed to replay asset transfer in tx %s: %w", e.TxHash.Hex(), err)
		}
	}
	logger.InfoCtx(ctx, "Replayed asset transfers", zap.Int("events", len(assetTransfers)))

	records, err := ledger.Records()
	if err != nil {
		return nil, fmt.Errorf("failed to build holdings: %w", err)
	}

	agg := aggregator.New()
	if err := agg.Aggregate(records); err != nil {
		return nil, err
	}

	path, err := j.publisher.publish(ctx, OWNERS_SNAPSHOT, head, agg)
	if err != nil {
		return nil, err
	}

	total := len(landTransfers) + len(assetTransfers)
	logger.InfoCtx(ctx, "Finished owner snapshot",
		zap.Int("events", total),
		zap.Int("owners", agg.Owners()),
		zap.String("path", path))

	return &Result{Head: head, Events: total, Owners: agg.Owners(), Path: path}, nil
}

package gathering

import (
	"context"
	"errors"
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

// Presale is a LAND sale contract whose LandQuadPurchased events are gathered
type Presale struct {
	Name        string
	Address     common.Address
	DeployBlock uint64
}

// LandMigrationConfig holds the contracts and tuning of a land migration run
type LandMigrationConfig struct {
	Presales []Presale

	// LandContracts are asked for ownerOf in order, the current contract first
	LandContracts []common.Address

	Scanner   scanner.Config
	BatchSize int
}

// LandMigration gathers every quad sold by the presales and who owns it now
type LandMigration struct {
	config    LandMigrationConfig
	client    ethereum.Client
	heads     block.BlockHeadProvider
	publisher publisher
}

// NewLandMigration creates a land migration job. st may be nil.
func NewLandMigration(config LandMigrationConfig, network string, client ethereum.Client, heads block.BlockHeadProvider, writer *snapshot.Writer, st store.Store) *LandMigration {
	return &LandMigration{
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

// Run scans the presales one after another up to a single chain head,
// resolves the owner of each purchased quad and writes the landOwners snapshot
func (j *LandMigration) Run(ctx context.Context) (*Result, error) {
	if len(j.config.Presales) == 0 {
		return nil, errors.New("no presale contracts configured")
	}
	if len(j.config.LandContracts) == 0 {
		return nil, errors.New("no land contracts configured")
	}

	head, err := j.heads.GetLatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}
	logger.InfoCtx(ctx, "Starting land migration",
		zap.Uint64("head", head),
		zap.Int("presales", len(j.config.Presales)))

	agg := aggregator.New()
	total := 0
	for _, presale := range j.config.Presales {
		events, err := j.gatherPresale(ctx, presale, head)
		if err != nil {
			return nil, err
		}
		total += len(events)

		records, err := aggregator.ResolveLandOwners(ctx, j.client, j.config.LandContracts, events, j.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("presale %s: %w", presale.Name, err)
		}
		if err := agg.Aggregate(records); err != nil {
			return nil, fmt.Errorf("presale %s: %w", presale.Name, err)
		}

		logger.InfoCtx(ctx, "Gathered presale",
			zap.String("presale", presale.Name),
			zap.Int("events", len(events)),
			zap.Int("owners", agg.Owners()))
	}

	path, err := j.publisher.publish(ctx, LAND_OWNERS_SNAPSHOT, head, agg)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Finished land migration",
		zap.Int("events", total),
		zap.Int("owners", agg.Owners()),
		zap.String("path", path))

	return &Result{Head: head, Events: total, Owners: agg.Owners(), Path: path}, nil
}

func (j *LandMigration) gatherPresale(ctx context.Context, presale Presale, head uint64) ([]domain.LandQuadPurchasedEvent, error) {
	fetch := func(ctx context.Context, r domain.BlockRange) ([]domain.LandQuadPurchasedEvent, error) {
		return j.client.FetchLandQuadPurchased(ctx, presale.Address, r)
	}

	s := scanner.New[domain.LandQuadPurchasedEvent]("presale:"+presale.Name, fetch, j.heads.GetLatestBlock, j.config.Scanner)
	events, err := s.ScanRange(ctx, presale.DeployBlock, head)
	if err != nil {
		return nil, fmt.Errorf("failed to scan presale %s: %w", presale.Name, err)
	}
	return events, nil
}

package aggregator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
	"github.com/thesandboxgame/ownership-gatherer/internal/landgrid"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
	"github.com/thesandboxgame/ownership-gatherer/internal/metrics"
)

// OwnerResolver looks up the current owner of a token across candidate
// contracts, returning domain.ZeroAddress when none knows it
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, candidates []common.Address, tokenID *big.Int) (common.Address, error)
}

// ResolveLandOwners resolves the current owner of every purchased quad.
// Lookups run batchSize at a time and each batch is awaited before the next
// one starts. The first failing lookup ends the pass. Records come back in
// event order; quads nobody owns are attributed to domain.ZeroAddress.
func ResolveLandOwners(ctx context.Context, resolver OwnerResolver, candidates []common.Address, events []domain.LandQuadPurchasedEvent, batchSize int) ([]domain.HoldingRecord, error) {
	if batchSize <= 0 {
		batchSize = domain.DEFAULT_OWNER_BATCH_SIZE
	}

	pool := pond.NewResultPool[domain.HoldingRecord](batchSize)
	defer pool.StopAndWait()

	records := make([]domain.HoldingRecord, 0, len(events))
	for start := 0; start < len(events); start += batchSize {
		end := min(start+batchSize, len(events))

		group := pool.NewGroup()
		for _, event := range events[start:end] {
			group.SubmitErr(func() (domain.HoldingRecord, error) {
				return resolveLandOwner(ctx, resolver, candidates, event)
			})
		}

		batch, err := group.Wait()
		metrics.OwnerBatches.Inc()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve land owners of batch [%d,%d): %w", start, end, err)
		}
		records = append(records, batch...)

		logger.DebugCtx(ctx, "Resolved land owner batch",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(events)))
	}

	return records, nil
}

func resolveLandOwner(ctx context.Context, resolver OwnerResolver, candidates []common.Address, event domain.LandQuadPurchasedEvent) (domain.HoldingRecord, error) {
	coordinate, err := landgrid.FromTokenID(event.TopCornerID)
	if err != nil {
		return domain.HoldingRecord{}, fmt.Errorf("quad in tx %s: %w", event.TxHash.Hex(), err)
	}

	owner, err := resolver.ResolveOwner(ctx, candidates, event.TopCornerID)
	if err != nil {
		return domain.HoldingRecord{}, err
	}

	return domain.HoldingRecord{
		Owner: owner,
		Land: &domain.Land{
			TokenID:     event.TopCornerID.String(),
			CoordinateX: coordinate.X,
			CoordinateY: coordinate.Y,
			Size:        event.Size,
		},
	}, nil
}

package gathering

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/thesandboxgame/ownership-gatherer/internal/aggregator"
	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
	"github.com/thesandboxgame/ownership-gatherer/internal/metrics"
	"github.com/thesandboxgame/ownership-gatherer/internal/snapshot"
	"github.com/thesandboxgame/ownership-gatherer/internal/store"
	"github.com/thesandboxgame/ownership-gatherer/internal/store/schema"
)

const (
	LAND_OWNERS_SNAPSHOT = "landOwners"
	OWNERS_SNAPSHOT      = "owners"
)

// Result summarizes a finished gathering run
type Result struct {
	// Head is the block every scan of the run stopped at
	Head uint64
	// Events is the number of decoded events the run consumed
	Events int
	// Owners is the number of distinct owners in the snapshot
	Owners int
	// Path is where the snapshot document was written
	Path string
}

// publisher writes a finished snapshot to disk and, when a store is
// configured, records it together with the job's block cursor. The cursor
// never moves backwards and a head that was already stored is not stored again.
type publisher struct {
	network string
	writer  *snapshot.Writer
	store   store.Store
}

// cursorJob scopes a job's block cursor to the network it gathers from
func (p *publisher) cursorJob(name string) string {
	return p.network + ":" + name
}

func (p *publisher) publish(ctx context.Context, name string, head uint64, agg *aggregator.Aggregator) (string, error) {
	job := p.cursorJob(name)
	if p.store != nil {
		cursor, err := p.store.GetBlockCursor(ctx, job)
		if err != nil {
			return "", fmt.Errorf("failed to get %s cursor: %w", job, err)
		}
		if head < cursor {
			return "", fmt.Errorf("%w: %s at block %d, head %d", domain.ErrCursorAhead, job, cursor, head)
		}
	}

	document, err := p.writer.Write(name, agg.Holdings())
	if err != nil {
		return "", fmt.Errorf("failed to write %s snapshot: %w", name, err)
	}
	metrics.SnapshotOwners.WithLabelValues(name).Set(float64(agg.Owners()))

	if p.store == nil {
		return p.writer.Path(name), nil
	}

	latest, err := p.store.LatestSnapshot(ctx, p.network, name)
	if err != nil {
		return "", fmt.Errorf("failed to get latest %s snapshot: %w", name, err)
	}
	// A snapshot of the same head reflects the same chain state
	if latest != nil && latest.BlockNumber == head {
		logger.InfoCtx(ctx, "Snapshot already stored",
			zap.String("snapshot", name),
			zap.String("id", latest.ID),
			zap.Uint64("block", head))
		return p.writer.Path(name), nil
	}

	err = p.store.SaveSnapshot(ctx, &schema.Snapshot{
		Network:     p.network,
		Name:        name,
		BlockNumber: head,
		Owners:      agg.Owners(),
		Document:    datatypes.JSON(document),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store %s snapshot: %w", name, err)
	}

	if err := p.store.SetBlockCursor(ctx, job, head); err != nil {
		return "", fmt.Errorf("failed to update %s cursor: %w", job, err)
	}

	logger.InfoCtx(ctx, "Stored snapshot",
		zap.String("snapshot", name),
		zap.String("job", job),
		zap.Uint64("block", head))

	return p.writer.Path(name), nil
}

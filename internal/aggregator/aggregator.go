// Package aggregator folds interpreted land and asset records into per-owner
// holdings. An Aggregator is not safe for concurrent use: one pass builds one
// snapshot.
package aggregator

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
)

// ErrEmptyRecord is returned by Aggregate for a record carrying neither a land nor an asset
var ErrEmptyRecord = errors.New("holding record has neither land nor asset")

type Aggregator struct {
	holdings domain.OwnerHoldings
	// lands indexes the token ids already held per owner
	lands map[string]map[string]struct{}
}

// New returns an empty Aggregator
func New() *Aggregator {
	return &Aggregator{
		holdings: make(domain.OwnerHoldings),
		lands:    make(map[string]map[string]struct{}),
	}
}

func (a *Aggregator) record(owner common.Address) (string, *domain.OwnerRecord) {
	key := domain.NormalizeAddress(owner)
	rec, ok := a.holdings[key]
	if !ok {
		rec = &domain.OwnerRecord{
			Lands:  []domain.Land{},
			Assets: []domain.AssetHolding{},
		}
		a.holdings[key] = rec
		a.lands[key] = make(map[string]struct{})
	}
	return key, rec
}

// AddLand adds land to owner. A token id the owner already holds is ignored,
// so overlapping scans do not duplicate parcels.
func (a *Aggregator) AddLand(owner common.Address, land domain.Land) bool {
	key, rec := a.record(owner)
	if _, seen := a.lands[key][land.TokenID]; seen {
		return false
	}
	a.lands[key][land.TokenID] = struct{}{}
	rec.Lands = append(rec.Lands, land)
	return true
}

// AddAsset appends holding to owner, preserving insertion order
func (a *Aggregator) AddAsset(owner common.Address, holding domain.AssetHolding) {
	_, rec := a.record(owner)
	rec.Assets = append(rec.Assets, holding)
}

// Aggregate folds records in order
func (a *Aggregator) Aggregate(records []domain.HoldingRecord) error {
	for i, r := range records {
		switch {
		case r.Land != nil && r.Asset != nil:
			return fmt.Errorf("record %d for %s: both land and asset set", i, r.Owner.Hex())
		case r.Land != nil:
			a.AddLand(r.Owner, *r.Land)
		case r.Asset != nil:
			a.AddAsset(r.Owner, *r.Asset)
		default:
			return fmt.Errorf("record %d for %s: %w", i, r.Owner.Hex(), ErrEmptyRecord)
		}
	}
	return nil
}

// Holdings returns the accumulated snapshot. The caller owns the result;
// further additions mutate it.
func (a *Aggregator) Holdings() domain.OwnerHoldings {
	return a.holdings
}

// Owners returns the number of distinct owners
func (a *Aggregator) Owners() int {
	return len(a.holdings)
}

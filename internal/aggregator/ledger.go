package aggregator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
	"github.com/thesandboxgame/ownership-gatherer/internal/landgrid"
	"github.com/thesandboxgame/ownership-gatherer/internal/tokenid"
)

// ErrNegativeBalance is returned when a transfer moves more than the sender holds
var ErrNegativeBalance = errors.New("transfer exceeds sender balance")

type assetBalances struct {
	owners map[common.Address]*big.Int
	order  []common.Address
	supply *big.Int
}

// Ledger replays transfer events in chain order and reports the final
// holdings. Records come out in first-seen order so two replays of the same
// events produce the same snapshot.
type Ledger struct {
	lands     map[string]common.Address
	landIDs   map[string]*big.Int
	landOrder []string

	assets     map[string]*assetBalances
	assetIDs   map[string]*big.Int
	assetOrder []string
}

// NewLedger returns an empty Ledger
func NewLedger() *Ledger {
	return &Ledger{
		lands:    make(map[string]common.Address),
		landIDs:  make(map[string]*big.Int),
		assets:   make(map[string]*assetBalances),
		assetIDs: make(map[string]*big.Int),
	}
}

// ApplyLandTransfer moves a LAND token to its new owner
func (l *Ledger) ApplyLandTransfer(e domain.LandTransferEvent) {
	key := e.TokenID.String()
	if _, ok := l.lands[key]; !ok {
		l.landOrder = append(l.landOrder, key)
		l.landIDs[key] = e.TokenID
	}
	l.lands[key] = e.To
}

// ApplyAssetTransfer moves value units of an asset. Mints (from the zero
// address) grow the supply and burns (to the zero address) shrink it.
func (l *Ledger) ApplyAssetTransfer(e domain.AssetTransferEvent) error {
	if e.Value == nil || e.Value.Sign() == 0 {
		return nil
	}

	key := e.TokenID.String()
	asset, ok := l.assets[key]
	if !ok {
		asset = &assetBalances{
			owners: make(map[common.Address]*big.Int),
			supply: new(big.Int),
		}
		l.assets[key] = asset
		l.assetIDs[key] = e.TokenID
		l.assetOrder = append(l.assetOrder, key)
	}

	if e.From == domain.ZeroAddress {
		asset.supply.Add(asset.supply, e.Value)
	} else {
		balance := asset.balance(e.From)
		if balance.Cmp(e.Value) < 0 {
			return fmt.Errorf("%w: %s holds %s of %s, sent %s in tx %s",
				ErrNegativeBalance, e.From.Hex(), balance, key, e.Value, e.TxHash.Hex())
		}
		balance.Sub(balance, e.Value)
	}

	if e.To == domain.ZeroAddress {
		asset.supply.Sub(asset.supply, e.Value)
	} else {
		balance := asset.balance(e.To)
		balance.Add(balance, e.Value)
	}

	return nil
}

func (a *assetBalances) balance(owner common.Address) *big.Int {
	b, ok := a.owners[owner]
	if !ok {
		b = new(big.Int)
		a.owners[owner] = b
		a.order = append(a.order, owner)
	}
	return b
}

// Records returns one record per held LAND and per non-zero asset balance.
// Tokens held by the zero address are burned and left out.
func (l *Ledger) Records() ([]domain.HoldingRecord, error) {
	records := make([]domain.HoldingRecord, 0, len(l.landOrder))

	for _, key := range l.landOrder {
		owner := l.lands[key]
		if owner == domain.ZeroAddress {
			continue
		}
		coordinate, err := landgrid.FromTokenID(l.landIDs[key])
		if err != nil {
			return nil, fmt.Errorf("land %s: %w", key, err)
		}
		records = append(records, domain.HoldingRecord{
			Owner: owner,
			Land: &domain.Land{
				TokenID:     key,
				CoordinateX: coordinate.X,
				CoordinateY: coordinate.Y,
				Size:        1,
			},
		})
	}

	for _, key := range l.assetOrder {
		asset := l.assets[key]
		token, err := DescribeAsset(l.assetIDs[key], asset.supply)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", key, err)
		}

		for _, owner := range asset.order {
			balance := asset.owners[owner]
			if balance.Sign() == 0 {
				continue
			}
			records = append(records, domain.HoldingRecord{
				Owner: owner,
				Asset: &domain.AssetHolding{
					ID:       key,
					Quantity: balance.String(),
					Token:    token,
				},
			})
		}
	}

	return records, nil
}

// DescribeAsset decodes a packed asset id into its snapshot view. The id
// and uriID are hex encoded, the remaining numeric fields are plain numbers.
func DescribeAsset(id, supply *big.Int) (*domain.AssetToken, error) {
	d, err := tokenid.DecodeBig(id)
	if err != nil {
		return nil, err
	}

	token := &domain.AssetToken{
		ID:             hexutil.EncodeBig(id),
		Creator:        domain.NormalizeAddress(d.Creator),
		IsNFT:          d.IsNFT,
		NFTIndex:       d.NFTIndex,
		URIID:          d.URIID.Hex(),
		PackID:         d.PackID,
		PackIndex:      d.PackIndex,
		PackNumFTTypes: d.PackNumFTTypes,
		Supply:         "0",
	}
	if supply != nil {
		token.Supply = supply.String()
	}
	return token, nil
}

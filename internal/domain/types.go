package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainPolygonMainnet  Chain = "eip155:137"
	ChainPolygonAmoy     Chain = "eip155:80002"
)

var chainNetworks = map[Chain]string{
	ChainEthereumMainnet: "mainnet",
	ChainEthereumSepolia: "sepolia",
	ChainPolygonMainnet:  "polygon",
	ChainPolygonAmoy:     "amoy",
}

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	_, ok := chainNetworks[chain]
	return ok
}

// Network returns the short network name used to label snapshot files
func (c Chain) Network() string {
	if name, ok := chainNetworks[c]; ok {
		return name
	}
	return strings.ReplaceAll(string(c), ":", "-")
}

// BlockRange is an inclusive block interval handed to a single fetch call
type BlockRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Size returns the number of blocks covered by the range
func (r BlockRange) Size() uint64 {
	return r.To - r.From + 1
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.From, r.To)
}

// EventSchema identifies the versioned shape of a decoded event record
type EventSchema string

const (
	// SchemaLandQuadPurchasedV1 is the first presale event version:
	// LandQuadPurchased(address indexed buyer, address indexed to, uint256 indexed topCornerId, uint256 size, uint256 price)
	SchemaLandQuadPurchasedV1 EventSchema = "land_quad_purchased/v1"
	// SchemaLandQuadPurchasedV2 adds the payment token and amount paid (referral presales)
	SchemaLandQuadPurchasedV2 EventSchema = "land_quad_purchased/v2"
	// SchemaLandTransferV1 is the ERC-721 Transfer event of the LAND contract
	SchemaLandTransferV1 EventSchema = "land_transfer/v1"
	// SchemaAssetTransferSingleV1 is the ERC-1155 TransferSingle event
	SchemaAssetTransferSingleV1 EventSchema = "asset_transfer_single/v1"
	// SchemaAssetTransferBatchV1 is one (id, value) pair of an ERC-1155 TransferBatch event
	SchemaAssetTransferBatchV1 EventSchema = "asset_transfer_batch/v1"
)

// EventMeta is the provenance shared by every decoded record
type EventMeta struct {
	Schema      EventSchema    `json:"schema"`
	Contract    common.Address `json:"contract"`
	BlockNumber uint64         `json:"block_number"`
	TxHash      common.Hash    `json:"tx_hash"`
	LogIndex    uint           `json:"log_index"`
}

// LandQuadPurchasedEvent is a quad sold by a LAND presale contract
type LandQuadPurchasedEvent struct {
	EventMeta
	Buyer       common.Address  `json:"buyer"`
	To          common.Address  `json:"to"`
	TopCornerID *big.Int        `json:"top_corner_id"`
	Size        uint64          `json:"size"`
	Price       *big.Int        `json:"price"`
	Token       *common.Address `json:"token,omitempty"`       // v2 only
	AmountPaid  *big.Int        `json:"amount_paid,omitempty"` // v2 only
}

// LandTransferEvent is an ERC-721 transfer of a single LAND token
type LandTransferEvent struct {
	EventMeta
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	TokenID *big.Int       `json:"token_id"`
}

// AssetTransferEvent is one (id, value) movement of an ERC-1155 asset
type AssetTransferEvent struct {
	EventMeta
	Operator common.Address `json:"operator"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	TokenID  *big.Int       `json:"token_id"`
	Value    *big.Int       `json:"value"`
}

// Land is a parcel (or quad, identified by its top-left corner) in a snapshot
type Land struct {
	TokenID     string `json:"tokenId"`
	CoordinateX uint64 `json:"coordinateX"`
	CoordinateY uint64 `json:"coordinateY"`
	Size        uint64 `json:"size"`
}

// AssetToken is the decoded view of a packed asset id
type AssetToken struct {
	ID             string `json:"id"`
	Creator        string `json:"creator"`
	IsNFT          bool   `json:"isNFT"`
	NFTIndex       uint32 `json:"nftIndex"`
	URIID          string `json:"uriID"`
	PackID         uint64 `json:"packId"`
	PackIndex      uint16 `json:"packIndex"`
	PackNumFTTypes uint16 `json:"packNumFTTypes"`
	Supply         string `json:"supply"`
}

// AssetHolding is a quantity of one asset held by an owner
type AssetHolding struct {
	ID       string      `json:"id"`
	Quantity string      `json:"quantity"`
	Token    *AssetToken `json:"token,omitempty"`
}

// OwnerRecord is everything one owner holds in a snapshot
type OwnerRecord struct {
	Lands  []Land         `json:"lands"`
	Assets []AssetHolding `json:"assets"`
}

// OwnerHoldings maps a lower-cased owner address to its holdings
type OwnerHoldings map[string]*OwnerRecord

// HoldingRecord is a single interpreted record folded by the aggregator.
// Exactly one of Land or Asset is set.
type HoldingRecord struct {
	Owner common.Address
	Land  *Land
	Asset *AssetHolding
}

// NormalizeAddress returns the lower-cased 0x-prefixed hex form used as owner key
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

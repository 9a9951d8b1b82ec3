package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
)

// Event signatures
var (
	// LandQuadPurchased(address indexed buyer, address indexed to, uint256 indexed topCornerId, uint256 size, uint256 price)
	landQuadPurchasedV1Signature = crypto.Keccak256Hash([]byte("LandQuadPurchased(address,address,uint256,uint256,uint256)"))

	// LandQuadPurchased(address indexed buyer, address indexed to, uint256 indexed topCornerId, uint256 size, uint256 price, address token, uint256 amountPaid)
	landQuadPurchasedV2Signature = crypto.Keccak256Hash([]byte("LandQuadPurchased(address,address,uint256,uint256,uint256,address,uint256)"))

	// ERC721 Transfer(address indexed from, address indexed to, uint256 indexed tokenId)
	transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	// ERC1155 TransferSingle(address indexed operator, address indexed from, address indexed to, uint256 id, uint256 value)
	transferSingleEventSignature = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))

	// ERC1155 TransferBatch(address indexed operator, address indexed from, address indexed to, uint256[] ids, uint256[] values)
	transferBatchEventSignature = crypto.Keccak256Hash([]byte("TransferBatch(address,address,address,uint256[],uint256[])"))
)

const (
	landQuadPurchasedV1ABI = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"buyer","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":true,"name":"topCornerId","type":"uint256"},{"indexed":false,"name":"size","type":"uint256"},{"indexed":false,"name":"price","type":"uint256"}],"name":"LandQuadPurchased","type":"event"}]`
	landQuadPurchasedV2ABI = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"buyer","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":true,"name":"topCornerId","type":"uint256"},{"indexed":false,"name":"size","type":"uint256"},{"indexed":false,"name":"price","type":"uint256"},{"indexed":false,"name":"token","type":"address"},{"indexed":false,"name":"amountPaid","type":"uint256"}],"name":"LandQuadPurchased","type":"event"}]`
	transferBatchABI       = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"operator","type":"address"},{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"ids","type":"uint256[]"},{"indexed":false,"name":"values","type":"uint256[]"}],"name":"TransferBatch","type":"event"}]`
	ownerOfABI             = `[{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}]`
)

var (
	landQuadPurchasedV1 = mustParseABI(landQuadPurchasedV1ABI)
	landQuadPurchasedV2 = mustParseABI(landQuadPurchasedV2ABI)
	transferBatch       = mustParseABI(transferBatchABI)
	ownerOf             = mustParseABI(ownerOfABI)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}

func eventMeta(schema domain.EventSchema, vLog types.Log) domain.EventMeta {
	return domain.EventMeta{
		Schema:      schema,
		Contract:    vLog.Address,
		BlockNumber: vLog.BlockNumber,
		TxHash:      vLog.TxHash,
		LogIndex:    vLog.Index,
	}
}

func invalidLog(vLog types.Log, format string, args ...any) error {
	return fmt.Errorf("%w: tx %s log %d: %s", domain.ErrInvalidEventLog, vLog.TxHash.Hex(), vLog.Index, fmt.Sprintf(format, args...))
}

// parseLandQuadPurchased decodes either version of the presale event, keyed on topic0
func parseLandQuadPurchased(vLog types.Log) (*domain.LandQuadPurchasedEvent, error) {
	if len(vLog.Topics) == 0 {
		return nil, invalidLog(vLog, "no topics")
	}

	var (
		schema domain.EventSchema
		parsed abi.ABI
	)
	switch vLog.Topics[0] {
	case landQuadPurchasedV1Signature:
		schema, parsed = domain.SchemaLandQuadPurchasedV1, landQuadPurchasedV1
	case landQuadPurchasedV2Signature:
		schema, parsed = domain.SchemaLandQuadPurchasedV2, landQuadPurchasedV2
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEventSignature, vLog.Topics[0].Hex())
	}

	if len(vLog.Topics) != 4 {
		return nil, invalidLog(vLog, "LandQuadPurchased: expected 4 topics, got %d", len(vLog.Topics))
	}

	values := make(map[string]any)
	if err := parsed.UnpackIntoMap(values, "LandQuadPurchased", vLog.Data); err != nil {
		return nil, invalidLog(vLog, "LandQuadPurchased: %v", err)
	}

	size, ok := values["size"].(*big.Int)
	if !ok || !size.IsUint64() {
		return nil, invalidLog(vLog, "LandQuadPurchased: invalid size")
	}
	price, _ := values["price"].(*big.Int)

	event := &domain.LandQuadPurchasedEvent{
		EventMeta:   eventMeta(schema, vLog),
		Buyer:       common.BytesToAddress(vLog.Topics[1].Bytes()),
		To:          common.BytesToAddress(vLog.Topics[2].Bytes()),
		TopCornerID: new(big.Int).SetBytes(vLog.Topics[3].Bytes()),
		Size:        size.Uint64(),
		Price:       price,
	}

	if schema == domain.SchemaLandQuadPurchasedV2 {
		token, _ := values["token"].(common.Address)
		event.Token = &token
		event.AmountPaid, _ = values["amountPaid"].(*big.Int)
	}

	return event, nil
}

// parseLandTransfer decodes an ERC721 Transfer. ERC20 transfers sharing the
// signature carry 3 topics and are rejected.
func parseLandTransfer(vLog types.Log) (*domain.LandTransferEvent, error) {
	if len(vLog.Topics) == 0 || vLog.Topics[0] != transferEventSignature {
		return nil, unknownSignature(vLog)
	}
	if len(vLog.Topics) != 4 {
		return nil, invalidLog(vLog, "Transfer: expected 4 topics, got %d", len(vLog.Topics))
	}

	return &domain.LandTransferEvent{
		EventMeta: eventMeta(domain.SchemaLandTransferV1, vLog),
		From:      common.BytesToAddress(vLog.Topics[1].Bytes()),
		To:        common.BytesToAddress(vLog.Topics[2].Bytes()),
		TokenID:   new(big.Int).SetBytes(vLog.Topics[3].Bytes()),
	}, nil
}

// parseAssetTransfer decodes an ERC1155 TransferSingle or TransferBatch into
// one record per (id, value) pair
func parseAssetTransfer(vLog types.Log) ([]domain.AssetTransferEvent, error) {
	if len(vLog.Topics) == 0 {
		return nil, invalidLog(vLog, "no topics")
	}

	switch vLog.Topics[0] {
	case transferSingleEventSignature:
		if len(vLog.Topics) != 4 {
			return nil, invalidLog(vLog, "TransferSingle: expected 4 topics, got %d", len(vLog.Topics))
		}
		if len(vLog.Data) < 64 {
			return nil, invalidLog(vLog, "TransferSingle: insufficient data")
		}

		event := assetTransfer(domain.SchemaAssetTransferSingleV1, vLog)
		event.TokenID = new(big.Int).SetBytes(vLog.Data[0:32])
		event.Value = new(big.Int).SetBytes(vLog.Data[32:64])
		return []domain.AssetTransferEvent{event}, nil

	case transferBatchEventSignature:
		if len(vLog.Topics) != 4 {
			return nil, invalidLog(vLog, "TransferBatch: expected 4 topics, got %d", len(vLog.Topics))
		}

		values := make(map[string]any)
		if err := transferBatch.UnpackIntoMap(values, "TransferBatch", vLog.Data); err != nil {
			return nil, invalidLog(vLog, "TransferBatch: %v", err)
		}
		ids, okIDs := values["ids"].([]*big.Int)
		amounts, okValues := values["values"].([]*big.Int)
		if !okIDs || !okValues || len(ids) != len(amounts) {
			return nil, invalidLog(vLog, "TransferBatch: mismatched ids and values")
		}

		events := make([]domain.AssetTransferEvent, 0, len(ids))
		for i := range ids {
			event := assetTransfer(domain.SchemaAssetTransferBatchV1, vLog)
			event.TokenID = ids[i]
			event.Value = amounts[i]
			events = append(events, event)
		}
		return events, nil

	default:
		return nil, unknownSignature(vLog)
	}
}

func assetTransfer(schema domain.EventSchema, vLog types.Log) domain.AssetTransferEvent {
	return domain.AssetTransferEvent{
		EventMeta: eventMeta(schema, vLog),
		Operator:  common.BytesToAddress(vLog.Topics[1].Bytes()),
		From:      common.BytesToAddress(vLog.Topics[2].Bytes()),
		To:        common.BytesToAddress(vLog.Topics[3].Bytes()),
	}
}

func unknownSignature(vLog types.Log) error {
	if len(vLog.Topics) == 0 {
		return invalidLog(vLog, "no topics")
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownEventSignature, vLog.Topics[0].Hex())
}

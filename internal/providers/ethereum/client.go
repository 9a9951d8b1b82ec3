package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/thesandboxgame/ownership-gatherer/internal/adapter"
	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
	"github.com/thesandboxgame/ownership-gatherer/internal/metrics"
)

var (
	// ErrTooManyResults marks a log query the provider refused because of its result limits
	ErrTooManyResults = errors.New("too many results")

	// ErrOwnerNotFound is returned by OwnerOf when the contract does not know the token
	ErrOwnerNotFound = errors.New("owner not found")
)

// Client reads LAND and asset contract state through a JSON-RPC provider.
// Fetch methods return every decoded record of one block range or an error,
// never a partial result.
//
//go:generate mockgen -source=client.go -destination=../../mocks/ethereum_client.go -package=mocks -mock_names=Client=MockEthereumClient
type Client interface {
	// FetchLandQuadPurchased returns the LandQuadPurchased events (both versions) emitted by a presale contract
	FetchLandQuadPurchased(ctx context.Context, contract common.Address, r domain.BlockRange) ([]domain.LandQuadPurchasedEvent, error)

	// FetchLandTransfers returns the ERC721 Transfer events of a LAND contract
	FetchLandTransfers(ctx context.Context, contract common.Address, r domain.BlockRange) ([]domain.LandTransferEvent, error)

	// FetchAssetTransfers returns the ERC1155 transfers of an asset contract, one record per (id, value)
	FetchAssetTransfers(ctx context.Context, contract common.Address, r domain.BlockRange) ([]domain.AssetTransferEvent, error)

	// OwnerOf calls ownerOf on a single ERC721 contract
	OwnerOf(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error)

	// ResolveOwner tries ownerOf on each candidate in order and returns the
	// first owner found, or domain.ZeroAddress when every candidate misses
	ResolveOwner(ctx context.Context, candidates []common.Address, tokenID *big.Int) (common.Address, error)

	// Close closes the connection
	Close()
}

// ClientConfig tunes contract calls
type ClientConfig struct {
	// CallTimeout bounds a single contract call or log query
	CallTimeout time.Duration

	// MaxRetries is the number of retries of a contract call after a transport error
	MaxRetries uint64

	// RetryInterval is the initial backoff between retries
	RetryInterval time.Duration
}

type ethereumClient struct {
	chainID domain.Chain
	client  adapter.EthClient
	config  ClientConfig
}

func NewClient(chainID domain.Chain, client adapter.EthClient, config ClientConfig) Client {
	if config.CallTimeout == 0 {
		config.CallTimeout = time.Minute
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = 500 * time.Millisecond
	}
	return &ethereumClient{chainID: chainID, client: client, config: config}
}

// filterLogs runs a single log query over r. Range sizing is left to the caller.
func (c *ethereumClient) filterLogs(ctx context.Context, contract common.Address, topics []common.Hash, r domain.BlockRange) ([]types.Log, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	logs, err := c.client.FilterLogs(timeoutCtx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.From),
		ToBlock:   new(big.Int).SetUint64(r.To),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{topics},
	})
	if err != nil {
		if isTooManyResultsError(err) {
			return nil, fmt.Errorf("failed to filter logs %s: %w: %w", r, ErrTooManyResults, err)
		}
		return nil, fmt.Errorf("failed to filter logs %s: %w", r, err)
	}

	// Removed logs only show up on subscriptions, skip them anyway
	kept := logs[:0]
	for _, vLog := range logs {
		if !vLog.Removed {
			kept = append(kept, vLog)
		}
	}
	return kept, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum") ||
		strings.Contains(errStr, "block range is too wide")
}

// FetchLandQuadPurchased returns the presale events of contract within r
func (c *ethereumClient) FetchLandQuadPurchased(ctx context.Context, contract common.Address, r domain.BlockRange) ([]domain.LandQuadPurchasedEvent, error) {
	logs, err := c.filterLogs(ctx, contract, []common.Hash{landQuadPurchasedV1Signature, landQuadPurchasedV2Signature}, r)
	if err != nil {
		return nil, err
	}

	events := make([]domain.LandQuadPurchasedEvent, 0, len(logs))
	for _, vLog := range logs {
		event, err := parseLandQuadPurchased(vLog)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		events = append(events, *event)
	}
	return events, nil
}

// FetchLandTransfers returns the ERC721 transfers of contract within r
func (c *ethereumClient) FetchLandTransfers(ctx context.Context, contract common.Address, r domain.BlockRange) ([]domain.LandTransferEvent, error) {
	logs, err := c.filterLogs(ctx, contract, []common.Hash{transferEventSignature}, r)
	if err != nil {
		return nil, err
	}

	events := make([]domain.LandTransferEvent, 0, len(logs))
	for _, vLog := range logs {
		if len(vLog.Topics) == 3 {
			logger.DebugCtx(ctx, "Skipping ERC20 transfer event",
				zap.String("contract", vLog.Address.Hex()),
				zap.String("txHash", vLog.TxHash.Hex()))
			continue
		}
		event, err := parseLandTransfer(vLog)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		events = append(events, *event)
	}
	return events, nil
}

// FetchAssetTransfers returns the ERC1155 transfers of contract within r
func (c *ethereumClient) FetchAssetTransfers(ctx context.Context, contract common.Address, r domain.BlockRange) ([]domain.AssetTransferEvent, error) {
	logs, err := c.filterLogs(ctx, contract, []common.Hash{transferSingleEventSignature, transferBatchEventSignature}, r)
	if err != nil {
		return nil, err
	}

	events := make([]domain.AssetTransferEvent, 0, len(logs))
	for _, vLog := range logs {
		parsed, err := parseAssetTransfer(vLog)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		events = append(events, parsed...)
	}
	return events, nil
}

// OwnerOf fetches the current owner of an ERC721 token. A revert, an empty
// response or the zero address all yield ErrOwnerNotFound.
func (c *ethereumClient) OwnerOf(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error) {
	data, err := ownerOf.Pack("ownerOf", tokenID)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack data: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	result, err := c.client.CallContract(timeoutCtx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
	if err != nil {
		if isRevertError(err) {
			return common.Address{}, fmt.Errorf("%w: %s on %s: %v", ErrOwnerNotFound, tokenID, contract.Hex(), err)
		}
		return common.Address{}, fmt.Errorf("failed to call contract: %w", err)
	}
	if len(result) == 0 {
		return common.Address{}, fmt.Errorf("%w: %s on %s: empty response", ErrOwnerNotFound, tokenID, contract.Hex())
	}

	var owner common.Address
	if err := ownerOf.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack result: %w", err)
	}
	if owner == domain.ZeroAddress {
		return common.Address{}, fmt.Errorf("%w: %s on %s: zero owner", ErrOwnerNotFound, tokenID, contract.Hex())
	}

	return owner, nil
}

// isRevertError checks if the call reached the contract and was reverted
func isRevertError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "execution reverted") ||
		strings.Contains(errStr, "invalid opcode")
}

// ResolveOwner walks candidates in order. Misses move on to the next
// contract, transport errors are retried and then returned.
func (c *ethereumClient) ResolveOwner(ctx context.Context, candidates []common.Address, tokenID *big.Int) (common.Address, error) {
	for _, contract := range candidates {
		owner, err := c.ownerOfWithRetry(ctx, contract, tokenID)
		if err == nil {
			metrics.OwnerLookups.WithLabelValues("found").Inc()
			return owner, nil
		}
		if errors.Is(err, ErrOwnerNotFound) {
			metrics.OwnerLookups.WithLabelValues("miss").Inc()
			logger.DebugCtx(ctx, "Owner not found on candidate contract",
				zap.String("contract", contract.Hex()),
				zap.String("tokenID", tokenID.String()))
			continue
		}

		metrics.OwnerLookups.WithLabelValues("error").Inc()
		return common.Address{}, fmt.Errorf("failed to resolve owner of %s: %w", tokenID, err)
	}

	return domain.ZeroAddress, nil
}

func (c *ethereumClient) ownerOfWithRetry(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryInterval

	return backoff.RetryWithData(func() (common.Address, error) {
		owner, err := c.OwnerOf(ctx, contract, tokenID)
		if err != nil && (errors.Is(err, ErrOwnerNotFound) || ctx.Err() != nil) {
			return common.Address{}, backoff.Permanent(err)
		}
		return owner, err
	}, backoff.WithContext(backoff.WithMaxRetries(b, c.config.MaxRetries), ctx))
}

// Close closes the connection
func (c *ethereumClient) Close() {
	c.client.Close()
}

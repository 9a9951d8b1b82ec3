package ethereum

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
	"github.com/thesandboxgame/ownership-gatherer/internal/mocks"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

var (
	presale   = common.HexToAddress("0x9c6d8a2F9AF0e1A0DE6bC4De1F6fB3A9B8E3b2C1")
	landV2    = common.HexToAddress("0x5CC5B05a8A13E3fBDB0BB9FcCd98D38e50F90c38")
	landV1    = common.HexToAddress("0x50f5474724e0Ee42D9a4e711ccFB275809Fd6d4a")
	buyer     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
	sandToken = common.HexToAddress("0x3845badAde8e6dFF049820680d1F14bD3903a5d0")
)

type testClientMocks struct {
	ctrl      *gomock.Controller
	ethClient *mocks.MockEthClient
	client    Client
}

func setupTest(t *testing.T) *testClientMocks {
	ctrl := gomock.NewController(t)
	ethClient := mocks.NewMockEthClient(ctrl)

	return &testClientMocks{
		ctrl:      ctrl,
		ethClient: ethClient,
		client: NewClient(domain.ChainEthereumMainnet, ethClient, ClientConfig{
			CallTimeout:   time.Second,
			MaxRetries:    2,
			RetryInterval: time.Millisecond,
		}),
	}
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func landQuadPurchasedV1Log(t *testing.T, topCorner, size, price int64, block uint64, index uint) types.Log {
	data, err := landQuadPurchasedV1.Events["LandQuadPurchased"].Inputs.NonIndexed().Pack(big.NewInt(size), big.NewInt(price))
	require.NoError(t, err)
	return types.Log{
		Address:     presale,
		Topics:      []common.Hash{landQuadPurchasedV1Signature, addressTopic(buyer), addressTopic(recipient), common.BigToHash(big.NewInt(topCorner))},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.HexToHash("0xaa"),
		Index:       index,
	}
}

func landQuadPurchasedV2Log(t *testing.T, topCorner, size, price, amountPaid int64, block uint64, index uint) types.Log {
	data, err := landQuadPurchasedV2.Events["LandQuadPurchased"].Inputs.NonIndexed().Pack(
		big.NewInt(size), big.NewInt(price), sandToken, big.NewInt(amountPaid))
	require.NoError(t, err)
	return types.Log{
		Address:     presale,
		Topics:      []common.Hash{landQuadPurchasedV2Signature, addressTopic(buyer), addressTopic(recipient), common.BigToHash(big.NewInt(topCorner))},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.HexToHash("0xbb"),
		Index:       index,
	}
}

func TestFetchLandQuadPurchased_DecodesBothVersions(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	ctx := context.Background()
	r := domain.BlockRange{From: 100, To: 199}

	tm.ethClient.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			assert.Equal(t, uint64(100), q.FromBlock.Uint64())
			assert.Equal(t, uint64(199), q.ToBlock.Uint64())
			assert.Equal(t, []common.Address{presale}, q.Addresses)
			require.Len(t, q.Topics, 1)
			assert.ElementsMatch(t, []common.Hash{landQuadPurchasedV1Signature, landQuadPurchasedV2Signature}, q.Topics[0])
			return []types.Log{
				landQuadPurchasedV1Log(t, 4908, 3, 1000, 120, 0),
				landQuadPurchasedV2Log(t, 10000, 6, 2000, 1800, 150, 4),
			}, nil
		})

	events, err := tm.client.FetchLandQuadPurchased(ctx, presale, r)
	require.NoError(t, err)
	require.Len(t, events, 2)

	v1 := events[0]
	assert.Equal(t, domain.SchemaLandQuadPurchasedV1, v1.Schema)
	assert.Equal(t, buyer, v1.Buyer)
	assert.Equal(t, recipient, v1.To)
	assert.Equal(t, int64(4908), v1.TopCornerID.Int64())
	assert.Equal(t, uint64(3), v1.Size)
	assert.Equal(t, int64(1000), v1.Price.Int64())
	assert.Nil(t, v1.Token)
	assert.Nil(t, v1.AmountPaid)
	assert.Equal(t, uint64(120), v1.BlockNumber)

	v2 := events[1]
	assert.Equal(t, domain.SchemaLandQuadPurchasedV2, v2.Schema)
	assert.Equal(t, int64(10000), v2.TopCornerID.Int64())
	assert.Equal(t, uint64(6), v2.Size)
	require.NotNil(t, v2.Token)
	assert.Equal(t, sandToken, *v2.Token)
	assert.Equal(t, int64(1800), v2.AmountPaid.Int64())
	assert.Equal(t, uint(4), v2.LogIndex)
}

func TestFetchLandQuadPurchased_ProviderError(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	tm.ethClient.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("query returned more than 10000 results"))

	events, err := tm.client.FetchLandQuadPurchased(context.Background(), presale, domain.BlockRange{From: 0, To: 99_999})
	assert.Nil(t, events)
	assert.ErrorIs(t, err, ErrTooManyResults)

	var permanent *backoff.PermanentError
	assert.False(t, errors.As(err, &permanent), "provider errors must stay retryable")
}

func TestFetchLandQuadPurchased_MalformedLogIsPermanent(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	bad := landQuadPurchasedV1Log(t, 1, 1, 1, 10, 0)
	bad.Data = bad.Data[:16]
	tm.ethClient.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).Return([]types.Log{bad}, nil)

	_, err := tm.client.FetchLandQuadPurchased(context.Background(), presale, domain.BlockRange{From: 0, To: 99})

	var permanent *backoff.PermanentError
	require.True(t, errors.As(err, &permanent))
	assert.ErrorIs(t, err, domain.ErrInvalidEventLog)
}

func TestFetchLandTransfers(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	erc721 := types.Log{
		Address:     landV2,
		Topics:      []common.Hash{transferEventSignature, addressTopic(domain.ZeroAddress), addressTopic(recipient), common.BigToHash(big.NewInt(4908))},
		BlockNumber: 42,
		Index:       1,
	}
	erc20 := types.Log{
		Address: landV2,
		Topics:  []common.Hash{transferEventSignature, addressTopic(buyer), addressTopic(recipient)},
		Data:    common.LeftPadBytes(big.NewInt(5).Bytes(), 32),
	}
	removed := erc721
	removed.Removed = true

	tm.ethClient.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).Return([]types.Log{erc721, erc20, removed}, nil)

	events, err := tm.client.FetchLandTransfers(context.Background(), landV2, domain.BlockRange{From: 0, To: 100})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.SchemaLandTransferV1, events[0].Schema)
	assert.Equal(t, domain.ZeroAddress, events[0].From)
	assert.Equal(t, recipient, events[0].To)
	assert.Equal(t, int64(4908), events[0].TokenID.Int64())
}

func TestFetchAssetTransfers_ExpandsBatches(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	single := types.Log{
		Address: landV1,
		Topics:  []common.Hash{transferSingleEventSignature, addressTopic(buyer), addressTopic(domain.ZeroAddress), addressTopic(recipient)},
		Data: append(
			common.LeftPadBytes(big.NewInt(77).Bytes(), 32),
			common.LeftPadBytes(big.NewInt(10).Bytes(), 32)...),
		BlockNumber: 5,
	}

	batchData, err := transferBatch.Events["TransferBatch"].Inputs.NonIndexed().Pack(
		[]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)},
		[]*big.Int{big.NewInt(100), big.NewInt(200), big.NewInt(300)})
	require.NoError(t, err)
	batch := types.Log{
		Address:     landV1,
		Topics:      []common.Hash{transferBatchEventSignature, addressTopic(buyer), addressTopic(recipient), addressTopic(buyer)},
		Data:        batchData,
		BlockNumber: 6,
		Index:       3,
	}

	tm.ethClient.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).Return([]types.Log{single, batch}, nil)

	events, err := tm.client.FetchAssetTransfers(context.Background(), landV1, domain.BlockRange{From: 0, To: 10})
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, domain.SchemaAssetTransferSingleV1, events[0].Schema)
	assert.Equal(t, int64(77), events[0].TokenID.Int64())
	assert.Equal(t, int64(10), events[0].Value.Int64())
	assert.Equal(t, recipient, events[0].To)

	for i, e := range events[1:] {
		assert.Equal(t, domain.SchemaAssetTransferBatchV1, e.Schema)
		assert.Equal(t, int64(i+1), e.TokenID.Int64())
		assert.Equal(t, int64((i+1)*100), e.Value.Int64())
		assert.Equal(t, recipient, e.From)
		assert.Equal(t, buyer, e.To)
		assert.Equal(t, uint(3), e.LogIndex)
	}
}

func ownerResult(t *testing.T, owner common.Address) []byte {
	out, err := ownerOf.Methods["ownerOf"].Outputs.Pack(owner)
	require.NoError(t, err)
	return out
}

func callTo(contract common.Address) gomock.Matcher {
	return callMatcher{contract: contract}
}

type callMatcher struct {
	contract common.Address
}

func (m callMatcher) Matches(x interface{}) bool {
	msg, ok := x.(ethereum.CallMsg)
	return ok && msg.To != nil && *msg.To == m.contract
}

func (m callMatcher) String() string {
	return "call to " + m.contract.Hex()
}

func TestResolveOwner_FallsBackToNextCandidate(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	gomock.InOrder(
		tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV2), nil).
			Return(nil, errors.New("execution reverted: token does not exist")),
		tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV1), nil).
			Return(ownerResult(t, buyer), nil),
	)

	owner, err := tm.client.ResolveOwner(context.Background(), []common.Address{landV2, landV1}, big.NewInt(4908))
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)
}

func TestResolveOwner_FirstCandidateWins(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV2), nil).Return(ownerResult(t, recipient), nil)

	owner, err := tm.client.ResolveOwner(context.Background(), []common.Address{landV2, landV1}, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, recipient, owner)
}

func TestResolveOwner_AllMissYieldsZeroAddress(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV2), nil).
		Return(ownerResult(t, domain.ZeroAddress), nil)
	tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV1), nil).
		Return([]byte{}, nil)

	owner, err := tm.client.ResolveOwner(context.Background(), []common.Address{landV2, landV1}, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, domain.ZeroAddress, owner)
}

func TestResolveOwner_RetriesTransportErrors(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	gomock.InOrder(
		tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV2), nil).
			Return(nil, errors.New("503 service unavailable")),
		tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV2), nil).
			Return(ownerResult(t, buyer), nil),
	)

	owner, err := tm.client.ResolveOwner(context.Background(), []common.Address{landV2, landV1}, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)
}

func TestResolveOwner_TransportErrorAfterRetries(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	transportErr := errors.New("dial tcp: connection refused")
	// 1 attempt + MaxRetries(2)
	tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV2), nil).
		Return(nil, transportErr).Times(3)

	_, err := tm.client.ResolveOwner(context.Background(), []common.Address{landV2, landV1}, big.NewInt(1))
	assert.ErrorIs(t, err, transportErr)
	assert.NotErrorIs(t, err, ErrOwnerNotFound)
}

func TestOwnerOf_Revert(t *testing.T) {
	tm := setupTest(t)
	defer tm.ctrl.Finish()

	tm.ethClient.EXPECT().CallContract(gomock.Any(), callTo(landV1), nil).
		Return(nil, errors.New("execution reverted"))

	_, err := tm.client.OwnerOf(context.Background(), landV1, big.NewInt(3))
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestBlockFetcher_FetchLatestBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ethClient := mocks.NewMockEthClient(ctrl)
	fetcher := NewBlockFetcher(ethClient)
	ctx := context.Background()

	ethClient.EXPECT().HeaderByNumber(ctx, nil).Return(&types.Header{Number: big.NewInt(19_000_000)}, nil)
	number, err := fetcher.FetchLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(19_000_000), number)

	ethClient.EXPECT().HeaderByNumber(ctx, nil).Return(nil, errors.New("network error"))
	_, err = fetcher.FetchLatestBlock(ctx)
	assert.ErrorContains(t, err, "failed to get latest block")
}

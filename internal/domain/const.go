package domain

import "github.com/ethereum/go-ethereum/common"

const (
	// ETHEREUM_ZERO_ADDRESS is the sentinel owner used when no candidate
	// contract reports an owner for a token
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// DEFAULT_INITIAL_RANGE_SIZE is the first block range a scan tries
	DEFAULT_INITIAL_RANGE_SIZE = 100_000

	// DEFAULT_OWNER_BATCH_SIZE bounds concurrent ownerOf lookups
	DEFAULT_OWNER_BATCH_SIZE = 50
)

// ZeroAddress is ETHEREUM_ZERO_ADDRESS as a typed address
var ZeroAddress = common.Address{}

// Package tokenid decodes and encodes the bit-packed 256-bit asset ids.
//
// Layout, most significant bit first:
//
//	255..96  creator address (160 bits)
//	     95  isNFT flag
//	 94..63  nftIndex (32 bits)
//	 62..23  packId (40 bits)
//	 22..11  packNumFTTypes (12 bits)
//	 10..0   packIndex (11 bits)
//
// uriId is the id masked with uriIDMask and is left unshifted. Its mask
// overlaps the creator and pack windows on purpose; it is an advisory
// metadata pointer for fungible assets only.
package tokenid

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	creatorShift        = 256 - 160
	nftIndexShift       = 256 - 160 - 1 - 32
	packIDShift         = 256 - 160 - 1 - 32 - 40
	packNumFTTypesShift = 256 - 160 - 1 - 32 - 40 - 12

	maxPackID         = 1<<40 - 1
	maxPackNumFTTypes = 1<<12 - 1
	maxPackIndex      = 1<<11 - 1
)

var (
	isNFTMask          = uint256.MustFromHex("0x800000000000000000000000")
	nftIndexMask       = uint256.MustFromHex("0x7FFFFFFF8000000000000000")
	uriIDMask          = uint256.MustFromHex("0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF000000007FFFFFFFFFFFF800")
	packIDMask         = uint256.MustFromHex("0x7FFFFFFFFF800000")
	packNumFTTypesMask = uint256.MustFromHex("0x7FF800")
	packIndexMask      = uint256.MustFromHex("0x7FF")
)

var (
	// ErrOutOfRange is returned for ids that are negative or wider than 256 bits
	ErrOutOfRange = errors.New("token id out of uint256 range")

	// ErrFieldOverflow is returned when a field does not fit its bit window
	ErrFieldOverflow = errors.New("token id field overflows its bit window")
)

// Fields are the independently encodable parts of a packed id
type Fields struct {
	Creator        common.Address
	IsNFT          bool
	NFTIndex       uint32
	PackID         uint64
	PackNumFTTypes uint16
	PackIndex      uint16
}

// Descriptor is a decoded packed id
type Descriptor struct {
	Fields
	URIID *uint256.Int
}

// Decode splits a packed id into its fields. Every 256-bit value decodes.
func Decode(id *uint256.Int) Descriptor {
	var d Descriptor

	d.Creator = common.Address(new(uint256.Int).Rsh(id, creatorShift).Bytes20())
	d.IsNFT = !new(uint256.Int).And(id, isNFTMask).IsZero()
	d.NFTIndex = uint32(extract(id, nftIndexMask, nftIndexShift))
	d.URIID = new(uint256.Int).And(id, uriIDMask)
	d.PackID = extract(id, packIDMask, packIDShift)
	d.PackNumFTTypes = uint16(extract(id, packNumFTTypesMask, packNumFTTypesShift))
	d.PackIndex = uint16(extract(id, packIndexMask, 0))

	return d
}

// DecodeBig decodes an id held in a big.Int, as returned by event logs
func DecodeBig(id *big.Int) (Descriptor, error) {
	v, err := FromBig(id)
	if err != nil {
		return Descriptor{}, err
	}
	return Decode(v), nil
}

// FromBig converts a big.Int into a uint256, rejecting values that would truncate
func FromBig(id *big.Int) (*uint256.Int, error) {
	if id == nil || id.Sign() < 0 {
		return nil, fmt.Errorf("%w: %v", ErrOutOfRange, id)
	}
	v, overflow := uint256.FromBig(id)
	if overflow {
		return nil, fmt.Errorf("%w: %d bits", ErrOutOfRange, id.BitLen())
	}
	return v, nil
}

// Encode packs the fields back into a 256-bit id
func Encode(f Fields) (*uint256.Int, error) {
	if f.PackID > maxPackID {
		return nil, fmt.Errorf("%w: packId %d", ErrFieldOverflow, f.PackID)
	}
	if f.PackNumFTTypes > maxPackNumFTTypes {
		return nil, fmt.Errorf("%w: packNumFTTypes %d", ErrFieldOverflow, f.PackNumFTTypes)
	}
	if f.PackIndex > maxPackIndex {
		return nil, fmt.Errorf("%w: packIndex %d", ErrFieldOverflow, f.PackIndex)
	}

	id := new(uint256.Int).SetBytes20(f.Creator.Bytes())
	id.Lsh(id, creatorShift)

	if f.IsNFT {
		id.Or(id, isNFTMask)
	}
	id.Or(id, place(uint64(f.NFTIndex), nftIndexShift))
	id.Or(id, place(f.PackID, packIDShift))
	id.Or(id, place(uint64(f.PackNumFTTypes), packNumFTTypesShift))
	id.Or(id, place(uint64(f.PackIndex), 0))

	return id, nil
}

// MustEncode is Encode for literals known to fit
func MustEncode(f Fields) *uint256.Int {
	id, err := Encode(f)
	if err != nil {
		panic(err)
	}
	return id
}

func extract(id, mask *uint256.Int, shift uint) uint64 {
	v := new(uint256.Int).And(id, mask)
	return v.Rsh(v, shift).Uint64()
}

func place(v uint64, shift uint) *uint256.Int {
	out := uint256.NewInt(v)
	return out.Lsh(out, shift)
}

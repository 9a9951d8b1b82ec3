// Package landgrid converts between linear LAND token ids and map coordinates.
package landgrid

import (
	"errors"
	"fmt"
	"math/big"
)

// GridSize is the width (and height) of the LAND map
const GridSize uint64 = 408

// ErrIDTooLarge is returned when a token id does not fit the 64-bit grid domain
var ErrIDTooLarge = errors.New("land id does not fit in 64 bits")

// Coordinate is a cell of the LAND map; X and Y are in [0, grid size)
type Coordinate struct {
	X uint64 `json:"x"`
	Y uint64 `json:"y"`
}

// ToCoordinate converts a land id into its coordinate on the default grid
func ToCoordinate(id uint64) Coordinate {
	return ToCoordinateWithGrid(id, GridSize)
}

// ToCoordinateWithGrid converts a land id into its coordinate on a grid of the given width.
// A zero width selects GridSize.
func ToCoordinateWithGrid(id, gridSize uint64) Coordinate {
	if gridSize == 0 {
		gridSize = GridSize
	}
	return Coordinate{X: id % gridSize, Y: id / gridSize}
}

// ToID converts a coordinate on the default grid back to its land id
func ToID(c Coordinate) uint64 {
	return ToIDWithGrid(c, GridSize)
}

// ToIDWithGrid converts a coordinate back to its land id. A zero width selects GridSize.
func ToIDWithGrid(c Coordinate, gridSize uint64) uint64 {
	if gridSize == 0 {
		gridSize = GridSize
	}
	return c.X + c.Y*gridSize
}

// FromTokenID converts an on-chain uint256 land id into its coordinate
func FromTokenID(id *big.Int) (Coordinate, error) {
	if id == nil || id.Sign() < 0 || !id.IsUint64() {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrIDTooLarge, id)
	}
	return ToCoordinate(id.Uint64()), nil
}

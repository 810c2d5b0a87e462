package matrix

import (
	"fmt"
	"math/rand"
)

// Mask marks matrix positions as hidden. A masked position reads as zero
// through Matrix.At, and mask-aware operations (dropout forward/backward)
// skip it entirely. Mask-agnostic operations see the zero and treat the
// position like any other.
type Mask struct {
	rows    int
	columns int
	depth   int
	masked  []bool
}

// NewMask creates an all-clear mask with the given dimensions.
func NewMask(rows, columns, depth int) (*Mask, error) {
	if rows <= 0 || columns <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: mask dimensions %dx%dx%d must be positive", ErrConfig, rows, columns, depth)
	}
	return &Mask{
		rows:    rows,
		columns: columns,
		depth:   depth,
		masked:  make([]bool, rows*columns*depth),
	}, nil
}

// NewBernoulliMask creates a mask where each position is masked
// independently with the given probability. Used for dropout.
func NewBernoulliMask(rows, columns, depth int, probability float64, rng *rand.Rand) (*Mask, error) {
	if probability < 0 || probability >= 1 {
		return nil, fmt.Errorf("%w: mask probability %v outside [0,1)", ErrConfig, probability)
	}
	mask, err := NewMask(rows, columns, depth)
	if err != nil {
		return nil, err
	}
	for i := range mask.masked {
		mask.masked[i] = rng.Float64() < probability
	}
	return mask, nil
}

func (k *Mask) index(row, column, depth int) int {
	return (depth*k.rows+row)*k.columns + column
}

// SetMasked marks or clears one position.
func (k *Mask) SetMasked(row, column, depth int, masked bool) {
	k.masked[k.index(row, column, depth)] = masked
}

// IsMasked reports whether one position is masked.
func (k *Mask) IsMasked(row, column, depth int) bool {
	return k.masked[k.index(row, column, depth)]
}

// Copy returns a deep copy of the mask.
func (k *Mask) Copy() *Mask {
	c := &Mask{rows: k.rows, columns: k.columns, depth: k.depth, masked: make([]bool, len(k.masked))}
	copy(c.masked, k.masked)
	return c
}

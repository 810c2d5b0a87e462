package matop

import (
	"fmt"
	"math"

	"github.com/weft-ml/weft/internal/matrix"
)

// Position is an input coordinate recorded by a pooling forward pass and
// consulted by its gradient dual.
type Position struct {
	Row    int
	Column int
}

// poolShape holds the geometry shared by the pooling operations and their
// gradient duals.
type poolShape struct {
	inRows        int
	inColumns     int
	depth         int
	outRows       int
	outColumns    int
	filterRows    int
	filterColumns int
	stride        int
	dilation      int
}

func newPoolShape(inRows, inColumns, depth, filterRows, filterColumns, stride, dilation int) (poolShape, error) {
	if err := checkDims(inRows, inColumns, depth); err != nil {
		return poolShape{}, err
	}
	outRows, err := OutputSize(inRows, filterRows, stride, dilation)
	if err != nil {
		return poolShape{}, err
	}
	outColumns, err := OutputSize(inColumns, filterColumns, stride, dilation)
	if err != nil {
		return poolShape{}, err
	}
	return poolShape{
		inRows:        inRows,
		inColumns:     inColumns,
		depth:         depth,
		outRows:       outRows,
		outColumns:    outColumns,
		filterRows:    filterRows,
		filterColumns: filterColumns,
		stride:        stride,
		dilation:      dilation,
	}, nil
}

// OutRows returns the output row count from the shape law.
func (s poolShape) OutRows() int { return s.outRows }

// OutColumns returns the output column count from the shape law.
func (s poolShape) OutColumns() int { return s.outColumns }

// OutDepth returns the output depth, which pooling preserves.
func (s poolShape) OutDepth() int { return s.depth }

// WinnerCount returns the number of recorded positions per sample.
func (s poolShape) WinnerCount() int { return s.outRows * s.outColumns * s.depth }

func (s poolShape) winnerIndex(r, c, d int) int {
	return (d*s.outRows+r)*s.outColumns + c
}

func (s poolShape) checkForward(input, result *matrix.Matrix, winners []Position) error {
	if err := checkShape(input, s.inRows, s.inColumns, s.depth, "pool input"); err != nil {
		return err
	}
	if err := checkShape(result, s.outRows, s.outColumns, s.depth, "pool result"); err != nil {
		return err
	}
	if winners != nil && len(winners) != s.WinnerCount() {
		return fmt.Errorf("%w: %d winner slots for %d output cells", matrix.ErrShape, len(winners), s.WinnerCount())
	}
	return nil
}

func (s poolShape) checkBackward(outputGrad, result *matrix.Matrix, winners []Position) error {
	if err := checkShape(outputGrad, s.outRows, s.outColumns, s.depth, "pool output gradient"); err != nil {
		return err
	}
	if err := checkShape(result, s.inRows, s.inColumns, s.depth, "pool input gradient"); err != nil {
		return err
	}
	if winners != nil && len(winners) != s.WinnerCount() {
		return fmt.Errorf("%w: %d winner slots for %d output cells", matrix.ErrShape, len(winners), s.WinnerCount())
	}
	return nil
}

// MaxPool selects the maximal element of each filter window, recording the
// winning coordinate (ties break toward the first window position
// encountered) so the gradient dual can route the entire output gradient
// to exactly that element.
type MaxPool struct {
	poolShape
}

// NewMaxPool creates a max pooling functor, validating the shape law.
func NewMaxPool(inRows, inColumns, depth, filterRows, filterColumns, stride, dilation int) (*MaxPool, error) {
	shape, err := newPoolShape(inRows, inColumns, depth, filterRows, filterColumns, stride, dilation)
	if err != nil {
		return nil, err
	}
	return &MaxPool{poolShape: shape}, nil
}

// Apply pools input into result and records the winning coordinate of each
// output cell into winners (length WinnerCount).
func (op *MaxPool) Apply(input, result *matrix.Matrix, winners []Position) error {
	if err := op.checkForward(input, result, winners); err != nil {
		return err
	}
	if winners == nil {
		return fmt.Errorf("%w: max pool requires a winner buffer", matrix.ErrConfig)
	}
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.outRows; r++ {
			for c := 0; c < op.outColumns; c++ {
				best := math.Inf(-1)
				var win Position
				for fr := 0; fr < op.filterRows; fr++ {
					for fc := 0; fc < op.filterColumns; fc++ {
						inR := r*op.stride + fr*op.dilation
						inC := c*op.stride + fc*op.dilation
						if v := input.At(inR, inC, d); v > best {
							best = v
							win = Position{Row: inR, Column: inC}
						}
					}
				}
				result.Set(r, c, d, best)
				winners[op.winnerIndex(r, c, d)] = win
			}
		}
	}
	return nil
}

// Gradient returns the shape-dual gradient functor.
func (op *MaxPool) Gradient() *MaxPoolGradient {
	return &MaxPoolGradient{poolShape: op.poolShape}
}

// MaxPoolGradient routes each output gradient to the input coordinate the
// forward pass recorded; every other input position stays zero.
type MaxPoolGradient struct {
	poolShape
}

// Apply scatters outputGrad into result (the input shape) through the
// recorded winners. result is zeroed first.
func (op *MaxPoolGradient) Apply(outputGrad, result *matrix.Matrix, winners []Position) error {
	if err := op.checkBackward(outputGrad, result, winners); err != nil {
		return err
	}
	if winners == nil {
		return fmt.Errorf("%w: max pool gradient requires the recorded winners", matrix.ErrConfig)
	}
	result.Zero()
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.outRows; r++ {
			for c := 0; c < op.outColumns; c++ {
				win := winners[op.winnerIndex(r, c, d)]
				result.AddAt(win.Row, win.Column, d, outputGrad.At(r, c, d))
			}
		}
	}
	return nil
}

// AveragePool averages each filter window; its gradient dual distributes
// the output gradient evenly over the window.
type AveragePool struct {
	poolShape
}

// NewAveragePool creates an average pooling functor, validating the shape
// law.
func NewAveragePool(inRows, inColumns, depth, filterRows, filterColumns, stride, dilation int) (*AveragePool, error) {
	shape, err := newPoolShape(inRows, inColumns, depth, filterRows, filterColumns, stride, dilation)
	if err != nil {
		return nil, err
	}
	return &AveragePool{poolShape: shape}, nil
}

// Apply pools input into result.
func (op *AveragePool) Apply(input, result *matrix.Matrix) error {
	if err := op.checkForward(input, result, nil); err != nil {
		return err
	}
	window := float64(op.filterRows * op.filterColumns)
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.outRows; r++ {
			for c := 0; c < op.outColumns; c++ {
				sum := 0.0
				for fr := 0; fr < op.filterRows; fr++ {
					for fc := 0; fc < op.filterColumns; fc++ {
						sum += input.At(r*op.stride+fr*op.dilation, c*op.stride+fc*op.dilation, d)
					}
				}
				result.Set(r, c, d, sum/window)
			}
		}
	}
	return nil
}

// Gradient returns the shape-dual gradient functor.
func (op *AveragePool) Gradient() *AveragePoolGradient {
	return &AveragePoolGradient{poolShape: op.poolShape}
}

// AveragePoolGradient distributes each output gradient evenly over its
// filter window.
type AveragePoolGradient struct {
	poolShape
}

// Apply scatters outputGrad/windowSize into every window position of
// result (the input shape). result is zeroed first.
func (op *AveragePoolGradient) Apply(outputGrad, result *matrix.Matrix) error {
	if err := op.checkBackward(outputGrad, result, nil); err != nil {
		return err
	}
	result.Zero()
	window := float64(op.filterRows * op.filterColumns)
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.outRows; r++ {
			for c := 0; c < op.outColumns; c++ {
				share := outputGrad.At(r, c, d) / window
				for fr := 0; fr < op.filterRows; fr++ {
					for fc := 0; fc < op.filterColumns; fc++ {
						result.AddAt(r*op.stride+fr*op.dilation, c*op.stride+fc*op.dilation, d, share)
					}
				}
			}
		}
	}
	return nil
}

// CyclicPool selects a single window position for every output cell,
// cycling through the window across successive Apply calls. Like max
// pooling it records the selected coordinates so the gradient dual can
// route the output gradient to exactly those elements.
type CyclicPool struct {
	poolShape
	cycle int
}

// NewCyclicPool creates a cyclic pooling functor, validating the shape
// law.
func NewCyclicPool(inRows, inColumns, depth, filterRows, filterColumns, stride, dilation int) (*CyclicPool, error) {
	shape, err := newPoolShape(inRows, inColumns, depth, filterRows, filterColumns, stride, dilation)
	if err != nil {
		return nil, err
	}
	return &CyclicPool{poolShape: shape}, nil
}

// Apply pools input into result using the current cycle position and
// records the selected coordinates into winners. The cycle is advanced by
// Advance, once per training step, so concurrent per-sample Apply calls
// within one step all read the same position.
func (op *CyclicPool) Apply(input, result *matrix.Matrix, winners []Position) error {
	if err := op.checkForward(input, result, winners); err != nil {
		return err
	}
	if winners == nil {
		return fmt.Errorf("%w: cyclic pool requires a winner buffer", matrix.ErrConfig)
	}
	fr := op.cycle / op.filterColumns
	fc := op.cycle % op.filterColumns
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.outRows; r++ {
			for c := 0; c < op.outColumns; c++ {
				inR := r*op.stride + fr*op.dilation
				inC := c*op.stride + fc*op.dilation
				result.Set(r, c, d, input.At(inR, inC, d))
				winners[op.winnerIndex(r, c, d)] = Position{Row: inR, Column: inC}
			}
		}
	}
	return nil
}

// Advance moves the cycle to the next window position, wrapping at the
// window size.
func (op *CyclicPool) Advance() {
	op.cycle = (op.cycle + 1) % (op.filterRows * op.filterColumns)
}

// Gradient returns the shape-dual gradient functor; it reuses the max
// pool routing since both consult recorded winners.
func (op *CyclicPool) Gradient() *MaxPoolGradient {
	return &MaxPoolGradient{poolShape: op.poolShape}
}

// Reset rewinds the cycle to the first window position.
func (op *CyclicPool) Reset() {
	op.cycle = 0
}

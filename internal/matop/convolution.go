package matop

import (
	"fmt"

	"github.com/weft-ml/weft/internal/matrix"
)

// OutputSize applies the convolution shape law:
//
//	out = (in − effectiveFilter) / stride + 1
//	effectiveFilter = filter + (filter−1)·(dilation−1)
//
// It fails when the division does not come out exact or the effective
// filter exceeds the input.
func OutputSize(in, filter, stride, dilation int) (int, error) {
	if filter <= 0 || stride <= 0 || dilation <= 0 {
		return 0, fmt.Errorf("%w: filter %d, stride %d, dilation %d must be positive", matrix.ErrConfig, filter, stride, dilation)
	}
	effective := filter + (filter-1)*(dilation-1)
	if effective > in {
		return 0, fmt.Errorf("%w: effective filter %d exceeds input %d", matrix.ErrShape, effective, in)
	}
	if (in-effective)%stride != 0 {
		return 0, fmt.Errorf("%w: input %d minus effective filter %d not divisible by stride %d", matrix.ErrShape, in, effective, stride)
	}
	return (in-effective)/stride + 1, nil
}

// Convolution slides a filter bank over the input. It covers both true
// convolution (filter rotated 180°) and cross-correlation (filter as-is),
// with stride, dilation and an optional depth-separable mode.
//
// Filter layout: a filterRows × filterColumns matrix whose depth holds one
// slice per (filter, input depth) pair: filter f, input depth di at depth
// index f·inDepth + di. In depth-separable mode the filter count must equal
// the input depth and each filter convolves only its own input slice, so
// the filter depth is just the filter count.
type Convolution struct {
	inRows         int
	inColumns      int
	inDepth        int
	outRows        int
	outColumns     int
	filterRows     int
	filterColumns  int
	filters        int
	stride         int
	dilation       int
	depthSeparable bool
	crossCorrelate bool
}

// NewConvolution validates the configuration eagerly and freezes the
// iteration shape. Zero filters and a depth-separable filter count not
// matching the input depth are configuration errors; a stride that does
// not divide the input span is a shape error.
func NewConvolution(inRows, inColumns, inDepth, filterRows, filterColumns, filters, stride, dilation int, depthSeparable, crossCorrelate bool) (*Convolution, error) {
	if err := checkDims(inRows, inColumns, inDepth); err != nil {
		return nil, err
	}
	if filters <= 0 {
		return nil, fmt.Errorf("%w: filter count %d must be positive", matrix.ErrConfig, filters)
	}
	if depthSeparable && filters != inDepth {
		return nil, fmt.Errorf("%w: depth-separable mode needs filter count %d equal to input depth %d", matrix.ErrConfig, filters, inDepth)
	}
	outRows, err := OutputSize(inRows, filterRows, stride, dilation)
	if err != nil {
		return nil, err
	}
	outColumns, err := OutputSize(inColumns, filterColumns, stride, dilation)
	if err != nil {
		return nil, err
	}
	return &Convolution{
		inRows:         inRows,
		inColumns:      inColumns,
		inDepth:        inDepth,
		outRows:        outRows,
		outColumns:     outColumns,
		filterRows:     filterRows,
		filterColumns:  filterColumns,
		filters:        filters,
		stride:         stride,
		dilation:       dilation,
		depthSeparable: depthSeparable,
		crossCorrelate: crossCorrelate,
	}, nil
}

// OutRows returns the output row count from the shape law.
func (op *Convolution) OutRows() int { return op.outRows }

// OutColumns returns the output column count from the shape law.
func (op *Convolution) OutColumns() int { return op.outColumns }

// OutDepth returns the output depth (one slice per filter).
func (op *Convolution) OutDepth() int { return op.filters }

// FilterDepth returns the depth the filter matrix must have.
func (op *Convolution) FilterDepth() int {
	if op.depthSeparable {
		return op.filters
	}
	return op.filters * op.inDepth
}

// filterAt reads the filter slice for (filter f, input depth di),
// rotating 180° unless cross-correlating.
func (op *Convolution) filterAt(filter *matrix.Matrix, fr, fc, f, di int) float64 {
	fd := f
	if !op.depthSeparable {
		fd = f*op.inDepth + di
	}
	if op.crossCorrelate {
		return filter.At(fr, fc, fd)
	}
	return filter.At(op.filterRows-1-fr, op.filterColumns-1-fc, fd)
}

func (op *Convolution) check(input, filter *matrix.Matrix) error {
	if err := checkShape(input, op.inRows, op.inColumns, op.inDepth, "convolution input"); err != nil {
		return err
	}
	return checkShape(filter, op.filterRows, op.filterColumns, op.FilterDepth(), "convolution filter")
}

// inputDepths returns the input depth range contributing to output
// filter f.
func (op *Convolution) inputDepths(f int) (lo, hi int) {
	if op.depthSeparable {
		return f, f + 1
	}
	return 0, op.inDepth
}

// Apply writes the convolved input into result
// (outRows × outColumns × filters).
func (op *Convolution) Apply(input, filter, result *matrix.Matrix) error {
	if err := op.check(input, filter); err != nil {
		return err
	}
	if err := checkShape(result, op.outRows, op.outColumns, op.filters, "convolution result"); err != nil {
		return err
	}
	for f := 0; f < op.filters; f++ {
		lo, hi := op.inputDepths(f)
		for r := 0; r < op.outRows; r++ {
			for c := 0; c < op.outColumns; c++ {
				sum := 0.0
				for fr := 0; fr < op.filterRows; fr++ {
					for fc := 0; fc < op.filterColumns; fc++ {
						inR := r*op.stride + fr*op.dilation
						inC := c*op.stride + fc*op.dilation
						for di := lo; di < hi; di++ {
							sum += input.At(inR, inC, di) * op.filterAt(filter, fr, fc, f, di)
						}
					}
				}
				result.Set(r, c, f, sum)
			}
		}
	}
	return nil
}

// InputGradient scatters the output gradient back through the filter into
// result (the input shape). result is zeroed first.
func (op *Convolution) InputGradient(outputGrad, filter, result *matrix.Matrix) error {
	if err := checkShape(outputGrad, op.outRows, op.outColumns, op.filters, "convolution output gradient"); err != nil {
		return err
	}
	if err := checkShape(filter, op.filterRows, op.filterColumns, op.FilterDepth(), "convolution filter"); err != nil {
		return err
	}
	if err := checkShape(result, op.inRows, op.inColumns, op.inDepth, "convolution input gradient"); err != nil {
		return err
	}
	result.Zero()
	for f := 0; f < op.filters; f++ {
		lo, hi := op.inputDepths(f)
		for r := 0; r < op.outRows; r++ {
			for c := 0; c < op.outColumns; c++ {
				g := outputGrad.At(r, c, f)
				for fr := 0; fr < op.filterRows; fr++ {
					for fc := 0; fc < op.filterColumns; fc++ {
						inR := r*op.stride + fr*op.dilation
						inC := c*op.stride + fc*op.dilation
						for di := lo; di < hi; di++ {
							result.AddAt(inR, inC, di, g*op.filterAt(filter, fr, fc, f, di))
						}
					}
				}
			}
		}
	}
	return nil
}

// FilterGradient accumulates the output gradient against the input into
// result (the filter shape). result is zeroed first.
func (op *Convolution) FilterGradient(outputGrad, input, result *matrix.Matrix) error {
	if err := checkShape(outputGrad, op.outRows, op.outColumns, op.filters, "convolution output gradient"); err != nil {
		return err
	}
	if err := checkShape(input, op.inRows, op.inColumns, op.inDepth, "convolution input"); err != nil {
		return err
	}
	if err := checkShape(result, op.filterRows, op.filterColumns, op.FilterDepth(), "convolution filter gradient"); err != nil {
		return err
	}
	result.Zero()
	for f := 0; f < op.filters; f++ {
		lo, hi := op.inputDepths(f)
		for r := 0; r < op.outRows; r++ {
			for c := 0; c < op.outColumns; c++ {
				g := outputGrad.At(r, c, f)
				for fr := 0; fr < op.filterRows; fr++ {
					for fc := 0; fc < op.filterColumns; fc++ {
						inR := r*op.stride + fr*op.dilation
						inC := c*op.stride + fc*op.dilation
						storeR, storeC := fr, fc
						if !op.crossCorrelate {
							storeR, storeC = op.filterRows-1-fr, op.filterColumns-1-fc
						}
						for di := lo; di < hi; di++ {
							fd := f
							if !op.depthSeparable {
								fd = f*op.inDepth + di
							}
							result.AddAt(storeR, storeC, fd, g*input.At(inR, inC, di))
						}
					}
				}
			}
		}
	}
	return nil
}

package matrix

import (
	"fmt"
	"math"
)

// UnaryFunctionType names an elementwise function from the built-in catalog.
type UnaryFunctionType int

// Catalog of elementwise unary functions. Softmax is listed here for
// completeness but needs cross-element context, so it is implemented as a
// whole-matrix operation (Matrix.Softmax, matop.SoftmaxGradient) rather
// than a pure elementwise map.
const (
	Abs UnaryFunctionType = iota
	Cos
	Sin
	Exp
	Log
	Sqrt
	Square
	Negate
	Sigmoid
	Tanh
	ReLU
	LeakyReLU
	Gaussian
	Softmax
)

var unaryNames = map[UnaryFunctionType]string{
	Abs:       "ABS",
	Cos:       "COS",
	Sin:       "SIN",
	Exp:       "EXP",
	Log:       "LOG",
	Sqrt:      "SQRT",
	Square:    "SQUARE",
	Negate:    "NEGATE",
	Sigmoid:   "SIGMOID",
	Tanh:      "TANH",
	ReLU:      "RELU",
	LeakyReLU: "LEAKY_RELU",
	Gaussian:  "GAUSSIAN",
	Softmax:   "SOFTMAX",
}

func (t UnaryFunctionType) String() string {
	if name, ok := unaryNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNARY(%d)", int(t))
}

// UnaryFunction pairs an elementwise function with its derivative. The
// derivative is evaluated at the forward input value.
type UnaryFunction struct {
	Type       UnaryFunctionType
	Fn         func(x float64) float64
	Derivative func(x float64) float64
}

const leakySlope = 0.01

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// UnaryFunctionFor returns the catalog entry for a function type.
// Softmax has no elementwise form and is rejected here.
func UnaryFunctionFor(t UnaryFunctionType) (UnaryFunction, error) {
	switch t {
	case Abs:
		return UnaryFunction{t, math.Abs, func(x float64) float64 {
			if x < 0 {
				return -1
			}
			return 1
		}}, nil
	case Cos:
		return UnaryFunction{t, math.Cos, func(x float64) float64 { return -math.Sin(x) }}, nil
	case Sin:
		return UnaryFunction{t, math.Sin, math.Cos}, nil
	case Exp:
		return UnaryFunction{t, math.Exp, math.Exp}, nil
	case Log:
		return UnaryFunction{t, math.Log, func(x float64) float64 { return 1 / x }}, nil
	case Sqrt:
		return UnaryFunction{t, math.Sqrt, func(x float64) float64 { return 1 / (2 * math.Sqrt(x)) }}, nil
	case Square:
		return UnaryFunction{t, func(x float64) float64 { return x * x }, func(x float64) float64 { return 2 * x }}, nil
	case Negate:
		return UnaryFunction{t, func(x float64) float64 { return -x }, func(float64) float64 { return -1 }}, nil
	case Sigmoid:
		return UnaryFunction{t, sigmoid, func(x float64) float64 {
			s := sigmoid(x)
			return s * (1 - s)
		}}, nil
	case Tanh:
		return UnaryFunction{t, math.Tanh, func(x float64) float64 {
			h := math.Tanh(x)
			return 1 - h*h
		}}, nil
	case ReLU:
		return UnaryFunction{t, func(x float64) float64 {
			if x > 0 {
				return x
			}
			return 0
		}, func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		}}, nil
	case LeakyReLU:
		return UnaryFunction{t, func(x float64) float64 {
			if x > 0 {
				return x
			}
			return leakySlope * x
		}, func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return leakySlope
		}}, nil
	case Gaussian:
		return UnaryFunction{t, func(x float64) float64 {
			return math.Exp(-x * x / 2)
		}, func(x float64) float64 {
			return -x * math.Exp(-x*x/2)
		}}, nil
	default:
		return UnaryFunction{}, fmt.Errorf("%w: no elementwise form for %v", ErrConfig, t)
	}
}

// BinaryFunctionType names an elementwise two-argument function.
type BinaryFunctionType int

// Catalog of elementwise binary functions.
const (
	Pow BinaryFunctionType = iota
	MaxOf
	MinOf
)

var binaryNames = map[BinaryFunctionType]string{
	Pow:   "POW",
	MaxOf: "MAX",
	MinOf: "MIN",
}

func (t BinaryFunctionType) String() string {
	if name, ok := binaryNames[t]; ok {
		return name
	}
	return fmt.Sprintf("BINARY(%d)", int(t))
}

// BinaryFunction pairs an elementwise two-argument function with its
// partial derivatives, both evaluated at the forward inputs.
type BinaryFunction struct {
	Type        BinaryFunctionType
	Fn          func(a, b float64) float64
	DerivativeA func(a, b float64) float64
	DerivativeB func(a, b float64) float64
}

// BinaryFunctionFor returns the catalog entry for a function type.
func BinaryFunctionFor(t BinaryFunctionType) (BinaryFunction, error) {
	switch t {
	case Pow:
		return BinaryFunction{t,
			math.Pow,
			func(a, b float64) float64 { return b * math.Pow(a, b-1) },
			func(a, b float64) float64 { return math.Pow(a, b) * math.Log(a) },
		}, nil
	case MaxOf:
		return BinaryFunction{t,
			math.Max,
			func(a, b float64) float64 {
				if a >= b {
					return 1
				}
				return 0
			},
			func(a, b float64) float64 {
				if b > a {
					return 1
				}
				return 0
			},
		}, nil
	case MinOf:
		return BinaryFunction{t,
			math.Min,
			func(a, b float64) float64 {
				if a <= b {
					return 1
				}
				return 0
			},
			func(a, b float64) float64 {
				if b < a {
					return 1
				}
				return 0
			},
		}, nil
	default:
		return BinaryFunction{}, fmt.Errorf("%w: unknown binary function %v", ErrConfig, t)
	}
}

// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package matrix

import (
	"math/rand"

	"github.com/weft-ml/weft/internal/matrix"
)

// Matrix is a dense rows x columns x depth float64 matrix.
type Matrix = matrix.Matrix

// Mask marks matrix positions as excluded; masked positions read as zero.
type Mask = matrix.Mask

// Sentinel errors returned by matrix operations.
var (
	ErrShape  = matrix.ErrShape
	ErrConfig = matrix.ErrConfig
)

// New creates a zero-filled matrix.
func New(rows, columns, depth int) (*Matrix, error) {
	return matrix.New(rows, columns, depth)
}

// MustNew creates a zero-filled matrix, panicking on invalid dimensions.
// For tests and static shapes.
func MustNew(rows, columns, depth int) *Matrix {
	return matrix.MustNew(rows, columns, depth)
}

// FromSlice creates a matrix from row-major values, one depth slice after
// another.
func FromSlice(values []float64, rows, columns, depth int) (*Matrix, error) {
	return matrix.FromSlice(values, rows, columns, depth)
}

// Scalar creates a 1x1x1 matrix that broadcasts against any shape.
func Scalar(value float64) *Matrix {
	return matrix.Scalar(value)
}

// Full creates a matrix with every element set to value.
func Full(rows, columns, depth int, value float64) (*Matrix, error) {
	return matrix.Full(rows, columns, depth, value)
}

// Randn creates a matrix of standard normal draws from rng.
func Randn(rows, columns, depth int, rng *rand.Rand) (*Matrix, error) {
	return matrix.Randn(rows, columns, depth, rng)
}

// OneHot creates a size x 1 x 1 column vector with a one at index. It
// fails when index is outside [0, size).
func OneHot(size, index int) (*Matrix, error) {
	return matrix.OneHot(size, index)
}

// NewMask creates an all-clear mask.
func NewMask(rows, columns, depth int) (*Mask, error) {
	return matrix.NewMask(rows, columns, depth)
}

// NewBernoulliMask creates a mask where each position is independently
// masked with the given probability.
func NewBernoulliMask(rows, columns, depth int, probability float64, rng *rand.Rand) (*Mask, error) {
	return matrix.NewBernoulliMask(rows, columns, depth, probability, rng)
}

// UnaryFunctionType names an elementwise function from the built-in
// catalog.
type UnaryFunctionType = matrix.UnaryFunctionType

// Elementwise unary function catalog.
const (
	Abs       = matrix.Abs
	Cos       = matrix.Cos
	Sin       = matrix.Sin
	Exp       = matrix.Exp
	Log       = matrix.Log
	Sqrt      = matrix.Sqrt
	Square    = matrix.Square
	Negate    = matrix.Negate
	Sigmoid   = matrix.Sigmoid
	Tanh      = matrix.Tanh
	ReLU      = matrix.ReLU
	LeakyReLU = matrix.LeakyReLU
	Gaussian  = matrix.Gaussian
	Softmax   = matrix.Softmax
)

// BinaryFunctionType names an elementwise two-argument function.
type BinaryFunctionType = matrix.BinaryFunctionType

// Elementwise binary function catalog.
const (
	Pow   = matrix.Pow
	MaxOf = matrix.MaxOf
	MinOf = matrix.MinOf
)

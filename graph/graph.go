// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph exposes the reverse-mode automatic differentiation graph:
// build a procedure once from inputs, parameters and expressions, then
// drive forward and backward passes over mini-batches for many training
// steps.
//
// Example usage:
//
//	b := graph.NewBuilder()
//	x, _ := b.Input("x", 4, 1, 1)
//	w := b.Parameter(weights, true, true)
//	h, _ := b.Dot(w, x)
//	y, _ := b.Unary(h, matrix.Sigmoid)
//	proc, _ := b.Build([]*graph.Node{x}, y)
//
//	outputs, _ := proc.Forward(batch)
//	_ = proc.Backward(lossGradients(outputs, targets))
//	proc.Reset()
package graph

import (
	"github.com/weft-ml/weft/internal/graph"
	"github.com/weft-ml/weft/internal/parallel"
)

// Node holds per-sample values and gradient accumulators.
type Node = graph.Node

// Expression is one recorded operation over nodes.
type Expression = graph.Expression

// Procedure is a built graph driven over mini-batches.
type Procedure = graph.Procedure

// Builder assembles a procedure's expression graph.
type Builder = graph.Builder

// Kind identifies an expression's operation.
type Kind = graph.Kind

// Expression kinds.
const (
	KindAdd              = graph.KindAdd
	KindSubtract         = graph.KindSubtract
	KindMultiply         = graph.KindMultiply
	KindDivide           = graph.KindDivide
	KindDot              = graph.KindDot
	KindUnary            = graph.KindUnary
	KindBinary           = graph.KindBinary
	KindSoftmax          = graph.KindSoftmax
	KindJoin             = graph.KindJoin
	KindUnjoin           = graph.KindUnjoin
	KindConvolution      = graph.KindConvolution
	KindCrossCorrelation = graph.KindCrossCorrelation
	KindMaxPool          = graph.KindMaxPool
	KindAveragePool      = graph.KindAveragePool
	KindCyclicPool       = graph.KindCyclicPool
	KindDropout          = graph.KindDropout
)

// Sentinel errors returned by graph operations.
var (
	ErrMissingValue = graph.ErrMissingValue
	ErrBuild        = graph.ErrBuild
)

// ParallelConfig controls how samples fan out across workers.
type ParallelConfig = parallel.Config

// DefaultParallelConfig enables one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return graph.NewBuilder()
}

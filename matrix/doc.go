// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package matrix provides the dense three-dimensional float64 matrix the
// rest of the framework computes with: rows by columns by depth, with
// scalar broadcast, optional element masking and the elementwise function
// catalog.
//
// Example usage:
//
//	a, _ := matrix.FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
//	b := matrix.Scalar(0.5)
//	sum, _ := a.Add(b)
//	fmt.Println(sum.At(0, 0, 0)) // 1.5
package matrix

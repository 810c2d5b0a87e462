// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint saves and restores trained parameters keyed by the
// handles their procedure assigned to them.
package checkpoint

import (
	"io"

	"github.com/weft-ml/weft/internal/checkpoint"
	"github.com/weft-ml/weft/matrix"
)

// Sentinel errors for checkpoint failure categories.
var (
	ErrFormat   = checkpoint.ErrFormat
	ErrChecksum = checkpoint.ErrChecksum
)

// Save writes the parameter matrices, ordered by handle, to w.
func Save(w io.Writer, params map[int]*matrix.Matrix) error {
	return checkpoint.Save(w, params)
}

// Load reads parameter matrices keyed by handle from r, verifying the
// checksum before decoding any matrix.
func Load(r io.Reader) (map[int]*matrix.Matrix, error) {
	return checkpoint.Load(r)
}

// SaveFile writes a checkpoint to path.
func SaveFile(path string, params map[int]*matrix.Matrix) error {
	return checkpoint.SaveFile(path, params)
}

// LoadFile reads a checkpoint from path.
func LoadFile(path string) (map[int]*matrix.Matrix, error) {
	return checkpoint.LoadFile(path)
}

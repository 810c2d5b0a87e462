// Package checkpoint persists trained parameters keyed by their integer
// handles. The format is self-describing and checksummed, so a reload
// restores every parameter to the handle it was registered under and
// corruption is detected before any matrix is rebuilt.
package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/weft-ml/weft/internal/matrix"
)

// Sentinel errors for checkpoint failure categories.
var (
	// ErrFormat indicates data that is not a checkpoint or uses an
	// unsupported version.
	ErrFormat = errors.New("checkpoint: invalid format")

	// ErrChecksum indicates the payload does not match its checksum.
	ErrChecksum = errors.New("checkpoint: checksum mismatch")
)

const (
	magic   = "WFTC"
	version = uint32(1)
)

// Save writes the parameter matrices, ordered by handle, to w.
func Save(w io.Writer, params map[int]*matrix.Matrix) error {
	handles := make([]int, 0, len(params))
	for h := range params {
		if h < 0 {
			return fmt.Errorf("%w: negative handle %d", ErrFormat, h)
		}
		handles = append(handles, h)
	}
	sort.Ints(handles)

	var payload bytes.Buffer
	for _, h := range handles {
		m := params[h]
		header := []uint32{uint32(h), uint32(m.Rows()), uint32(m.Columns()), uint32(m.Depth())}
		if err := binary.Write(&payload, binary.LittleEndian, header); err != nil {
			return err
		}
		for d := 0; d < m.Depth(); d++ {
			for r := 0; r < m.Rows(); r++ {
				for c := 0; c < m.Columns(); c++ {
					if err := binary.Write(&payload, binary.LittleEndian, m.RawAt(r, c, d)); err != nil {
						return err
					}
				}
			}
		}
	}

	if _, err := w.Write([]byte(magic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(handles))); err != nil {
		return err
	}
	sum := sha256.Sum256(payload.Bytes())
	if _, err := w.Write(sum[:]); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// Load reads parameter matrices keyed by handle from r, verifying the
// checksum before decoding any matrix.
func Load(r io.Reader) (map[int]*matrix.Matrix, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if string(head) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, head)
	}
	var v, count uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, v)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	var stored [sha256.Size]byte
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if sha256.Sum256(payload) != stored {
		return nil, ErrChecksum
	}

	params := make(map[int]*matrix.Matrix, count)
	buf := bytes.NewReader(payload)
	for i := uint32(0); i < count; i++ {
		var header [4]uint32
		if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
			return nil, fmt.Errorf("%w: truncated record %d", ErrFormat, i)
		}
		handle := int(header[0])
		rows, columns, depth := int(header[1]), int(header[2]), int(header[3])
		m, err := matrix.New(rows, columns, depth)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrFormat, i, err)
		}
		for d := 0; d < depth; d++ {
			for r := 0; r < rows; r++ {
				for c := 0; c < columns; c++ {
					var bits uint64
					if err := binary.Read(buf, binary.LittleEndian, &bits); err != nil {
						return nil, fmt.Errorf("%w: truncated record %d", ErrFormat, i)
					}
					m.Set(r, c, d, math.Float64frombits(bits))
				}
			}
		}
		if _, dup := params[handle]; dup {
			return nil, fmt.Errorf("%w: duplicate handle %d", ErrFormat, handle)
		}
		params[handle] = m
	}
	return params, nil
}

// SaveFile writes a checkpoint to path.
func SaveFile(path string, params map[int]*matrix.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(f, params); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a checkpoint from path.
func LoadFile(path string) (map[int]*matrix.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

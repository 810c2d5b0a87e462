package checkpoint

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/internal/graph"
	"github.com/weft-ml/weft/internal/matrix"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	a, err := matrix.FromSlice([]float64{1.5, -2.25, 3.125, 0}, 2, 2, 1)
	require.NoError(t, err)
	b, err := matrix.FromSlice([]float64{7, 8, 9}, 3, 1, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, map[int]*matrix.Matrix{0: a, 1: b}))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, -2.25, loaded[0].At(0, 1, 0))
	assert.Equal(t, 9.0, loaded[1].At(2, 0, 0))
	assert.Equal(t, 3, loaded[1].Rows())
}

func TestSaveLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.wftc")
	m, err := matrix.FromSlice([]float64{4.5}, 1, 1, 1)
	require.NoError(t, err)

	require.NoError(t, SaveFile(path, map[int]*matrix.Matrix{3: m}))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Contains(t, loaded, 3)
	assert.Equal(t, 4.5, loaded[3].At(0, 0, 0))
}

func TestLoad_BadMagic(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("NOPE followed by junk")))
	require.ErrorIs(t, err, ErrFormat)
}

func TestLoad_CorruptedPayload(t *testing.T) {
	m, err := matrix.FromSlice([]float64{1, 2}, 2, 1, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, map[int]*matrix.Matrix{0: m}))

	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF

	_, err = Load(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrChecksum)
}

func TestSave_NegativeHandle(t *testing.T) {
	m, err := matrix.FromSlice([]float64{1}, 1, 1, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.ErrorIs(t, Save(&buf, map[int]*matrix.Matrix{-1: m}), ErrFormat)
}

// Checkpoints restore a procedure's parameters through their handles,
// independent of matrix identity.
func TestRoundTrip_ProcedureParameters(t *testing.T) {
	build := func() *graph.Procedure {
		b := graph.NewBuilder()
		x, err := b.Input("x", 2, 1, 1)
		require.NoError(t, err)
		wm, err := matrix.FromSlice([]float64{0.5, -1, 2, 0.25}, 2, 2, 1)
		require.NoError(t, err)
		w := b.Parameter(wm, true, true)
		out, err := b.Dot(w, x)
		require.NoError(t, err)
		proc, err := b.Build([]*graph.Node{x}, out)
		require.NoError(t, err)
		return proc
	}

	trained := build()
	params := make(map[int]*matrix.Matrix)
	for _, p := range trained.Parameters() {
		params[p.Handle()] = p.Matrix(0)
	}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, params))
	restored, err := Load(&buf)
	require.NoError(t, err)

	fresh := build()
	for _, p := range fresh.Parameters() {
		require.NoError(t, p.SetMatrix(0, restored[p.Handle()]))
	}

	input, err := matrix.FromSlice([]float64{1, 2}, 2, 1, 1)
	require.NoError(t, err)
	outputs, err := fresh.Forward([]*matrix.Matrix{input})
	require.NoError(t, err)

	assert.InDelta(t, 0.5*1+(-1)*2, outputs[0].At(0, 0, 0), 1e-12)
	assert.InDelta(t, 2*1+0.25*2, outputs[0].At(1, 0, 0), 1e-12)
}

package filter

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/poiesic/gleaner/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatL2_Search(t *testing.T) {
	idx := NewFlatL2(2)
	require.NoError(t, idx.Add(
		[]float32{0, 0},
		[]float32{3, 4},
		[]float32{1, 0},
		[]float32{0, 1},
	))
	assert.Equal(t, 4, idx.Len())

	hits, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)

	want := []Neighbor{
		{ID: 0, Distance: 0},
		{ID: 2, Distance: 1},
		{ID: 3, Distance: 1},
	}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatL2_KBeyondSize(t *testing.T) {
	idx := NewFlatL2(1)
	require.NoError(t, idx.Add([]float32{5}, []float32{1}))

	hits, err := idx.Search([]float32{0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].ID)
	assert.Equal(t, float32(25), hits[1].Distance)
}

func TestFlatL2_Empty(t *testing.T) {
	idx := NewFlatL2(3)
	hits, err := idx.Search([]float32{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Add([]float32{1, 2, 3}))
	hits, err = idx.Search([]float32{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatL2_DimensionMismatch(t *testing.T) {
	idx := NewFlatL2(2)

	err := idx.Add([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.ErrorIs(t, err, core.ErrInternal)
	assert.Zero(t, idx.Len(), "a rejected batch must not be partially stored")

	require.NoError(t, idx.Add([]float32{1, 2}))
	_, err = idx.Search([]float32{1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, float32(0), SquaredL2([]float32{1, 2}, []float32{1, 2}))
	assert.Equal(t, float32(25), SquaredL2([]float32{0, 0}, []float32{3, 4}))
	assert.Equal(t, float32(2), SquaredL2([]float32{1, 0}, []float32{0, 1}))
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{"unit vector remains unchanged", []float32{1, 0, 0}, []float32{1, 0, 0}},
		{"scale non-unit vector", []float32{3, 4}, []float32{0.6, 0.8}},
		{"negative values", []float32{-1, 1}, []float32{-1 / float32(math.Sqrt(2)), 1 / float32(math.Sqrt(2))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Len(t, result, len(tt.expected))
			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "element %d", i)
			}
		})
	}
}

func TestNormalizeVector_ZeroAndEmpty(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 0}, NormalizeVector([]float32{0, 0, 0}))
	assert.Empty(t, NormalizeVector([]float32{}))
}

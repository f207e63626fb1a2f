// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filter

import (
	"fmt"
	"slices"
)

// Neighbor is one search hit: the position of a stored vector and its
// distance to the query.
type Neighbor struct {
	ID       int
	Distance float32
}

// Index is a nearest-neighbor structure over fixed-dimension vectors.
// IDs are assigned in insertion order starting at zero.
type Index interface {
	// Add stores vectors. Every vector must match the index dimension.
	Add(vectors ...[]float32) error

	// Search returns up to k neighbors of query, nearest first.
	Search(query []float32, k int) ([]Neighbor, error)

	// Len returns the number of stored vectors.
	Len() int
}

// IndexFactory builds an empty index of the given dimension.
type IndexFactory func(dim int) Index

// FlatL2 is an exact index that scans every vector and ranks by squared
// Euclidean distance.
type FlatL2 struct {
	dim     int
	vectors [][]float32
}

var _ Index = (*FlatL2)(nil)

// NewFlatL2 creates an empty exact index.
func NewFlatL2(dim int) Index {
	return &FlatL2{dim: dim}
}

func (f *FlatL2) checkDim(v []float32) error {
	if len(v) != f.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), f.dim)
	}
	return nil
}

// Add implements Index.
func (f *FlatL2) Add(vectors ...[]float32) error {
	for _, v := range vectors {
		if err := f.checkDim(v); err != nil {
			return err
		}
	}
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Search implements Index. Ties keep insertion order.
func (f *FlatL2) Search(query []float32, k int) ([]Neighbor, error) {
	if err := f.checkDim(query); err != nil {
		return nil, err
	}
	if k <= 0 || len(f.vectors) == 0 {
		return []Neighbor{}, nil
	}

	hits := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Neighbor{ID: i, Distance: SquaredL2(query, v)}
	}
	slices.SortStableFunc(hits, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	return hits[:min(k, len(hits))], nil
}

// Len implements Index.
func (f *FlatL2) Len() int {
	return len(f.vectors)
}

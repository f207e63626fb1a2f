package filter

import (
	"errors"
	"fmt"

	"github.com/poiesic/gleaner/core"
)

var (
	// ErrEmbedderRequired is returned when a filter is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrDimensionMismatch is returned when a vector does not match the
	// index dimension.
	ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch", core.ErrInternal)

	// ErrInvalidChunkBounds is returned for a chunker whose bounds are unusable.
	ErrInvalidChunkBounds = errors.New("chunk bounds must satisfy 0 < min <= max")
)

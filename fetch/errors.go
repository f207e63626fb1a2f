package fetch

import (
	"errors"
	"fmt"

	"github.com/poiesic/gleaner/core"
)

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = fmt.Errorf("%w: max attempts must be greater than 0", core.ErrInternal)

	// ErrEmptyContent indicates a tier produced a page with no readable text.
	// The tier is treated as failed and the next one is tried.
	ErrEmptyContent = errors.New("no readable content")

	// ErrNoTiers is returned when a fetcher is built without tiers.
	ErrNoTiers = fmt.Errorf("%w: no fetch tiers configured", core.ErrInternal)

	// ErrTimeout marks a fetch abandoned at its deadline.
	ErrTimeout = errors.New("timeout")
)

package pipeline

import (
	"errors"
	"fmt"

	"github.com/poiesic/gleaner/core"
)

var (
	// ErrDiscovererRequired is returned when a discoverer is not provided.
	ErrDiscovererRequired = errors.New("discoverer required")

	// ErrFetcherRequired is returned when a fetcher is not provided.
	ErrFetcherRequired = errors.New("fetcher required")

	// ErrFilterRequired is returned when a semantic filter is not provided.
	ErrFilterRequired = errors.New("semantic filter required")

	// ErrSourceSelection is returned unless exactly one of topic and URLs is set.
	ErrSourceSelection = errors.New("exactly one of topic or urls must be set")

	// ErrSummarizerRequired is returned when a summary is requested from a
	// pipeline built without a summarizer.
	ErrSummarizerRequired = fmt.Errorf("%w: summarizer not configured", core.ErrValidation)

	// ErrNoContent is returned when no source produced any text.
	ErrNoContent = errors.New("no source produced content")
)

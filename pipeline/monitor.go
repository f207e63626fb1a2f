package pipeline

import "github.com/poiesic/gleaner/core"

// Monitor provides hooks to observe a pipeline run.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(runID string, req Request)
	AfterDiscovery(urls []string)
	AfterFetch(batch *core.BatchFetchResult)
	AfterFilter(passages []core.RelevantPassage)
	Finish(report *Report)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Request)            {}
func (n *noopMonitor) AfterDiscovery(_ []string)            {}
func (n *noopMonitor) AfterFetch(_ *core.BatchFetchResult)  {}
func (n *noopMonitor) AfterFilter(_ []core.RelevantPassage) {}
func (n *noopMonitor) Finish(_ *Report)                     {}

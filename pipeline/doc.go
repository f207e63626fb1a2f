// Package pipeline runs a complete gleaning request: discover sources for a
// topic (or take the caller's URLs), fetch them all, optionally narrow the
// combined text to the passages relevant to a query and optionally
// summarize the result.
//
// A run degrades rather than fails: it succeeds as long as at least one
// source produced text, and every per-source or per-stage error is carried
// in the report.
//
// # Example
//
//	p, err := pipeline.NewPipeline(discoverer, fetcher, semanticFilter,
//	    pipeline.WithSummarizer(provider.Summarizer()))
//	res := p.Run(ctx, pipeline.Request{Topic: "chip exports", Query: "tariffs", Summarize: true})
//	report := res.Result.(*pipeline.Report)
//
// Use RunWithMonitor to observe each stage.
package pipeline

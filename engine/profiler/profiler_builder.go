package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are logged.
//
// Parameters:
//   - interval: the logging interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = interval
	}
}

// WithResources adds the resource table to every report.
func WithResources(m resource.Manager) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.resources = m
	}
}

// WithPipelines adds the pipeline table to every report.
func WithPipelines(m pipeline.Manager) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.pipelines = m
	}
}

// WithLogger overrides the profiler logger.
func WithLogger(logger log.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logger = logger
	}
}

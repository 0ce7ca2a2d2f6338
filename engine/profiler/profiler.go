// Package profiler reports frame rate, memory and renderer statistics at a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/frame"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
)

// Profiler tracks frame rate, frame outcomes and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	rebuilds       int
	degraded       int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	resources resource.Manager
	pipelines pipeline.Manager
	logger    log.Logger

	now func() time.Time
}

// Sample is the summary of one reporting interval.
type Sample struct {
	FPS       float64
	Frames    int
	Rebuilds  int
	Degraded  int
	HeapMB    float64
	AllocRate float64
	GCCount   uint32
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         log.New("profiler"),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with that frame's report. When the update interval has
// elapsed it logs frame rate and memory statistics at Info, followed by the resource and pipeline
// tables when those managers are attached.
//
// Parameters:
//   - report: the report of the frame just rendered
//
// Returns:
//   - *Sample: the interval summary if stats were logged this tick, nil otherwise
func (p *Profiler) Tick(report frame.Report) *Sample {
	p.frameCount++
	if report.Rebuilt {
		p.rebuilds++
	}
	if report.Degraded {
		p.degraded++
	}

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return nil
	}

	runtime.ReadMemStats(&p.memStats)
	s := &Sample{
		FPS:      float64(p.frameCount) / elapsed.Seconds(),
		Frames:   p.frameCount,
		Rebuilds: p.rebuilds,
		Degraded: p.degraded,
		HeapMB:   float64(p.memStats.Alloc) / 1024 / 1024,
		GCCount:  p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRate = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	var lastPauseUs, maxPauseUs uint64
	if s.GCCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.logger.Infof("FPS: %.2f | rebuilds: %d | degraded: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs)",
		s.FPS, s.Rebuilds, s.Degraded, s.HeapMB, s.AllocRate, s.GCCount, lastPauseUs, maxPauseUs)
	if p.resources != nil {
		p.logger.Infof("resources\n%s", ResourceStatsTable(p.resources.Stats()))
	}
	if p.pipelines != nil {
		p.logger.Infof("pipelines\n%s", PipelineStatsTable(p.pipelines.Stats()))
	}

	p.frameCount = 0
	p.rebuilds = 0
	p.degraded = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return s
}

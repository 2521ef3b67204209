package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// Profiler tracks frame rate, ray tracing sample throughput and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	log            *slog.Logger
	now            func() time.Time
	frameCount     int
	samples        int
	lastTotal      int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// Report is one interval's worth of profiling statistics.
type Report struct {
	FPS           float64
	SamplesPerSec float64
	HeapMB        float64
	AllocRateMB   float64
	GCCount       uint32
	LastPauseUs   uint64
	MaxPauseUs    uint64
	SysMB         float64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	p := &Profiler{
		log:            common.ComponentLogger("Profiler"),
		now:            time.Now,
		updateInterval: time.Second,
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame. totalSamples is the renderer's running sample count for
// the current view; a count lower than the previous one means the view was reset and the count
// restarted from zero.
//
// Parameters:
//   - totalSamples: samples accumulated so far for the current view
//
// Returns:
//   - *Report: the statistics logged this tick, or nil if the interval has not elapsed
func (p *Profiler) Tick(totalSamples int) *Report {
	p.frameCount++
	if totalSamples >= p.lastTotal {
		p.samples += totalSamples - p.lastTotal
	} else {
		p.samples += totalSamples
	}
	p.lastTotal = totalSamples

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return nil
	}

	runtime.ReadMemStats(&p.memStats)
	seconds := elapsed.Seconds()
	rep := &Report{
		FPS:           float64(p.frameCount) / seconds,
		SamplesPerSec: float64(p.samples) / seconds,
		HeapMB:        float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:   float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds,
		GCCount:       p.memStats.NumGC,
		SysMB:         float64(p.memStats.Sys) / 1024 / 1024,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	if gc := rep.GCCount; gc > 0 {
		rep.LastPauseUs = p.memStats.PauseNs[(gc-1)%256] / 1000
		startIdx := p.lastGCCount
		if gc-startIdx > 256 {
			startIdx = gc - 256
		}
		for i := startIdx; i < gc; i++ {
			rep.MaxPauseUs = max(rep.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.log.Info("frame stats",
		"fps", rep.FPS,
		"samples_per_sec", rep.SamplesPerSec,
		"heap_mb", rep.HeapMB,
		"alloc_rate_mb", rep.AllocRateMB,
		"gc", rep.GCCount,
		"gc_last_us", rep.LastPauseUs,
		"gc_max_us", rep.MaxPauseUs,
		"sys_mb", rep.SysMB)

	p.frameCount = 0
	p.samples = 0
	p.lastTime = currentTime
	p.lastGCCount = rep.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return rep
}

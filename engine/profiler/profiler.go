package profiler

import (
	"log"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Profiler tracks frame rate, per-pass CPU timings, and memory statistics for
// performance monitoring. Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	passTotals map[string]time.Duration
	passCounts map[string]int
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		frameCount:     0,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		passTotals:     make(map[string]time.Duration),
		passCounts:     make(map[string]int),
	}
}

// Sample records one timed section of a frame under the given name. Samples
// with the same name are averaged over the update interval and logged by Tick.
//
// Parameters:
//   - name: the section name (e.g. "shadow", "forward")
//   - d: the elapsed CPU time for the section
func (p *Profiler) Sample(name string, d time.Duration) {
	p.passTotals[name] += d
	p.passCounts[name]++
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, per-pass mean CPU times, heap usage, allocation
// rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed >= p.updateInterval {
		fps := float64(p.frameCount) / elapsed.Seconds()

		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024

		// Calculate allocation rate (MB/sec)
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		// Calculate GC pause stats (last pause and max recent pause)
		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			// Find max pause since last tick
			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				pause := p.memStats.PauseNs[i%256] / 1000
				if pause > maxPauseUs {
					maxPauseUs = pause
				}
			}
		}

		log.Printf("[Profiler] FPS: %.2f |%s Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
			fps, p.passSummary(), allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

		p.frameCount = 0
		p.lastTime = currentTime
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
		clear(p.passTotals)
		clear(p.passCounts)
		return true
	}

	return false
}

// passSummary formats the mean duration of each sampled section, sorted by
// name for stable log output. Returns an empty string when nothing was sampled.
func (p *Profiler) passSummary() string {
	if len(p.passTotals) == 0 {
		return ""
	}
	names := make([]string, 0, len(p.passTotals))
	for name := range p.passTotals {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		mean := p.passTotals[name] / time.Duration(p.passCounts[name])
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(mean.Round(time.Microsecond).String())
		b.WriteString(" |")
	}
	return b.String()
}

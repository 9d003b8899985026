// Package profiler tracks frame pacing, heap behavior, and acceleration
// structure build times for the engine loop.
package profiler

import (
	"runtime"
	"time"

	"github.com/Hurleyworks/Cook/log"
)

var logger = log.New("profiler")

// buildWindow is the number of recent builds the moving average covers.
const buildWindow = 32

// Profiler tracks frame rate, memory statistics, and acceleration structure
// build times. Outputs stats to the log at a configurable interval. All
// methods are meant to be called from the frame goroutine.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	buildCount  uint64
	buildTimes  [buildWindow]time.Duration
	buildCursor int
	buildFilled int
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// RecordBuild logs the duration of one acceleration structure build into the
// moving average window.
//
// Parameters:
//   - d: the wall time the build took
func (p *Profiler) RecordBuild(d time.Duration) {
	p.buildCount++
	p.buildTimes[p.buildCursor] = d
	p.buildCursor = (p.buildCursor + 1) % buildWindow
	if p.buildFilled < buildWindow {
		p.buildFilled++
	}
}

// BuildCount returns the total number of recorded builds.
//
// Returns:
//   - uint64: builds recorded since creation
func (p *Profiler) BuildCount() uint64 {
	return p.buildCount
}

// AverageBuildTime returns the mean duration over the recent build window.
//
// Returns:
//   - time.Duration: the moving average, 0 when no build was recorded
func (p *Profiler) AverageBuildTime() time.Duration {
	if p.buildFilled == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < p.buildFilled; i++ {
		total += p.buildTimes[i]
	}
	return total / time.Duration(p.buildFilled)
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times,
// total memory, and acceleration structure build stats.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: bytes of live heap objects.
	// TotalAlloc: cumulative heap bytes, tracks churn.
	// Sys: memory obtained from the OS, the process footprint.
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

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

	logger.Infof("FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB | Builds: %d (avg %.2f ms)",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB,
		p.buildCount, float64(p.AverageBuildTime().Microseconds())/1000)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Package profiler logs frame rate, rig and memory statistics once per interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-spine/common"
)

// Frame is what the render loop reports about one frame.
type Frame struct {
	// Rigs is the number of rigs registered when the frame was drawn.
	Rigs int
	// Loading is how many of them still had atlas pages without a texture.
	Loading int
	// Failed is how many rig renders returned an error.
	Failed int
}

// Profiler accumulates frames and logs one summary per interval through common.Logger.
// It is used from the render goroutine only.
type Profiler struct {
	interval time.Duration
	now      func() time.Time

	windowStart time.Time
	frames      int
	failed      int
	last        Frame

	mem       runtime.MemStats
	gcSeen    uint32
	allocSeen uint64
}

// NewProfiler creates a profiler that reports once per second.
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler() *Profiler {
	p := &Profiler{interval: time.Second, now: time.Now}
	p.windowStart = p.now()
	return p
}

// Tick records a rendered frame and logs a summary when the interval has passed.
//
// Parameters:
//   - f: the frame statistics
//
// Returns:
//   - bool: true if a summary was logged
func (p *Profiler) Tick(f Frame) bool {
	p.frames++
	p.failed += f.Failed
	p.last = f

	now := p.now()
	elapsed := now.Sub(p.windowStart)
	if elapsed < p.interval {
		return false
	}

	runtime.ReadMemStats(&p.mem)
	lastPause, maxPause := p.gcPauses()
	seconds := elapsed.Seconds()
	common.Logger().Info("profiler",
		"fps", float64(p.frames)/seconds,
		"rigs", p.last.Rigs,
		"loading", p.last.Loading,
		"render_errors", p.failed,
		"heap_mb", mb(p.mem.Alloc),
		"alloc_rate_mb_s", mb(p.mem.TotalAlloc-p.allocSeen)/seconds,
		"gc", p.mem.NumGC,
		"gc_last_pause_us", lastPause,
		"gc_max_pause_us", maxPause,
		"sys_mb", mb(p.mem.Sys),
	)

	p.windowStart = now
	p.frames, p.failed = 0, 0
	p.gcSeen = p.mem.NumGC
	p.allocSeen = p.mem.TotalAlloc
	return true
}

// gcPauses returns the latest GC pause and the longest pause since the previous summary, in microseconds.
// PauseNs is a ring of the last 256 pauses.
func (p *Profiler) gcPauses() (last, longest uint64) {
	n := p.mem.NumGC
	if n == 0 {
		return 0, 0
	}
	last = p.mem.PauseNs[(n-1)%256] / 1000
	from := p.gcSeen
	if n-from > 256 {
		from = n - 256
	}
	for i := from; i < n; i++ {
		longest = max(longest, p.mem.PauseNs[i%256]/1000)
	}
	return last, longest
}

func mb(bytes uint64) float64 {
	return float64(bytes) / (1 << 20)
}

// Package benchmark measures barcode decoding throughput.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"
)

// Timer measures one named span.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts a timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64 // Currently allocated bytes
	TotalAllocBytes uint64 // Total allocated bytes (cumulative)
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		NumGC:           m.NumGC,
	}
}

// Case is a named operation measured over several iterations.
type Case struct {
	Name string
	Func func(ctx context.Context) error
}

// Result holds the outcome of running one Case.
type Result struct {
	Name string
	// Iterations counts the iterations that completed successfully.
	Iterations int
	Duration   time.Duration
	// AllocBytes is the number of bytes allocated during the run.
	AllocBytes uint64
	NumGC      uint32
	Error      error
}

// PerOp returns the average duration of one iteration.
func (r Result) PerOp() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// OpsPerSec returns the completed iterations per second.
func (r Result) OpsPerSec() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Iterations) / r.Duration.Seconds()
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR after %d iterations - %v", r.Name, r.Iterations, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, %.1f ops/s, alloc: %d KB/op",
		r.Name, r.Iterations, r.PerOp(), r.Duration.Round(time.Microsecond), r.OpsPerSec(),
		r.allocPerOp()/1024)
}

func (r Result) allocPerOp() uint64 {
	if r.Iterations == 0 {
		return 0
	}
	return r.AllocBytes / uint64(r.Iterations)
}

// Suite runs a list of cases.
type Suite struct {
	mu      sync.Mutex
	cases   []Case
	results []Result
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add appends a case to the suite.
func (s *Suite) Add(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = append(s.cases, Case{Name: name, Func: fn})
}

// Names returns the case names in the order they were added.
func (s *Suite) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.cases))
	for i, c := range s.cases {
		names[i] = c.Name
	}
	return names
}

// Run runs the named case for the given number of iterations.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	s.mu.Lock()
	var found *Case
	for i := range s.cases {
		if s.cases[i].Name == name {
			found = &s.cases[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
	}
	return runCase(ctx, *found, iterations)
}

// RunAll runs every case in order and keeps the results. It stops early
// when ctx is cancelled.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	cases := append([]Case(nil), s.cases...)
	s.mu.Unlock()

	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			break
		}
		results = append(results, runCase(ctx, c, iterations))
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	return results
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

// PrintResults writes the last results to w.
func (s *Suite) PrintResults(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func runCase(ctx context.Context, c Case, iterations int) Result {
	runtime.GC()
	before := GetMemoryStats()
	timer := NewTimer(c.Name)

	res := Result{Name: c.Name}
	for range iterations {
		if err := ctx.Err(); err != nil {
			res.Error = err
			break
		}
		if err := c.Func(ctx); err != nil {
			res.Error = err
			break
		}
		res.Iterations++
	}

	res.Duration = timer.Stop()
	after := GetMemoryStats()
	res.AllocBytes = after.TotalAllocBytes - before.TotalAllocBytes
	res.NumGC = after.NumGC - before.NumGC
	return res
}

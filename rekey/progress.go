// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package rekey

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single self-overwriting status line while
// records are rekeyed. It is safe for concurrent use.
type ProgressTracker struct {
	mu sync.Mutex

	w       io.Writer
	total   int
	every   int
	done    int
	skipped int
	printed int
	started time.Time
	running bool
}

// NewProgressTracker reports to w every reportInterval records out of total.
// A nil w discards output.
func NewProgressTracker(w io.Writer, total, reportInterval int) *ProgressTracker {
	if w == nil {
		w = io.Discard
	}
	return &ProgressTracker{w: w, total: total, every: max(reportInterval, 1)}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = time.Now()
	p.running = true
	p.done, p.skipped, p.printed = 0, 0, 0
}

// Update sets the number of records handled so far.
func (p *ProgressTracker) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.advance(done)
	}
}

// Increment adds delta handled records.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.advance(p.done + delta)
	}
}

// Skip counts records that were handled but left unchanged. They are
// included in the handled total only through Update or Increment.
func (p *ProgressTracker) Skip(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.skipped += n
	}
}

// Finish prints the final line, counting every record as handled.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.done = p.total
	p.print()
	fmt.Fprintln(p.w)
}

// Elapsed returns the time since Start, or zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return 0
	}
	return time.Since(p.started)
}

func (p *ProgressTracker) advance(done int) {
	p.done = min(done, p.total)
	if p.done-p.printed >= p.every {
		p.print()
		p.printed = p.done
	}
}

func (p *ProgressTracker) print() {
	pct := 0.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	rate := 0.0
	if secs := time.Since(p.started).Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}
	fmt.Fprintf(p.w, "\rRekeyed %d/%d (%.1f%%), %d skipped, %.1f records/s",
		p.done, p.total, pct, p.skipped, rate)
}

// Package metrics counts command runs and channel sends per name, keeps a
// JSON snapshot under the data directory and mirrors the counters as
// Prometheus series.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	snapshotFile = "runtime_metrics.json"

	// latencyWindow is how many recent command latencies feed the p95.
	latencyWindow = 512
)

// Outcome is how a single command run ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeError    Outcome = "error"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeCooldown Outcome = "cooldown"
)

// Classify maps a command reply and the run context's error onto an Outcome.
// Replies are "Error: ..." for failed fetches and "CooldownError: ..." for
// throttled senders.
func Classify(reply string, runErr error) Outcome {
	reply = strings.TrimSpace(reply)
	switch {
	case errors.Is(runErr, context.DeadlineExceeded):
		return OutcomeTimeout
	case strings.HasPrefix(reply, "CooldownError:"):
		return OutcomeCooldown
	case strings.HasPrefix(reply, "Error:"):
		if mentionsTimeout(reply) {
			return OutcomeTimeout
		}
		return OutcomeError
	case runErr != nil:
		return OutcomeError
	}
	return OutcomeOK
}

func mentionsTimeout(reply string) bool {
	lower := strings.ToLower(reply)
	for _, marker := range []string{"deadline exceeded", "timeout", "timed out"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// CommandCounts tallies the runs of one command by outcome.
type CommandCounts struct {
	Runs      int64 `json:"runs"`
	Errors    int64 `json:"errors"`
	Timeouts  int64 `json:"timeouts"`
	Cooldowns int64 `json:"cooldowns"`
}

func (c *CommandCounts) add(o Outcome) {
	c.Runs++
	switch o {
	case OutcomeError:
		c.Errors++
	case OutcomeTimeout:
		c.Timeouts++
	case OutcomeCooldown:
		c.Cooldowns++
	}
}

// Failed is the number of runs that ended in an error or a timeout.
// Cooldown rejections are not failures.
func (c CommandCounts) Failed() int64 { return c.Errors + c.Timeouts }

// FailureRatio returns Failed/Runs, 0 when nothing ran.
func (c CommandCounts) FailureRatio() float64 {
	if c.Runs == 0 {
		return 0
	}
	return float64(c.Failed()) / float64(c.Runs)
}

// SendCounts tallies outbound deliveries on one channel.
type SendCounts struct {
	Attempts int64 `json:"attempts"`
	Failures int64 `json:"failures"`
}

// FailureRatio returns Failures/Attempts, 0 when nothing was sent.
func (s SendCounts) FailureRatio() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Attempts)
}

// Latency summarises command durations. P95Ms covers the most recent runs only.
type Latency struct {
	Samples int64 `json:"samples"`
	TotalMs int64 `json:"total_ms"`
	MaxMs   int64 `json:"max_ms"`
	P95Ms   int64 `json:"p95_ms"`
}

// MeanMs returns the average duration in milliseconds.
func (l Latency) MeanMs() float64 {
	if l.Samples == 0 {
		return 0
	}
	return float64(l.TotalMs) / float64(l.Samples)
}

// Snapshot is the persisted state of a Recorder.
type Snapshot struct {
	UpdatedAt time.Time                `json:"updated_at"`
	Commands  map[string]CommandCounts `json:"commands,omitempty"`
	Sends     map[string]SendCounts    `json:"sends,omitempty"`
	Latency   Latency                  `json:"latency"`
}

// HasData reports whether anything was recorded.
func (s Snapshot) HasData() bool {
	return len(s.Commands) > 0 || len(s.Sends) > 0
}

// Totals sums the counts of every command.
func (s Snapshot) Totals() CommandCounts {
	var total CommandCounts
	for _, c := range s.Commands {
		total.Runs += c.Runs
		total.Errors += c.Errors
		total.Timeouts += c.Timeouts
		total.Cooldowns += c.Cooldowns
	}
	return total
}

// SendTotals sums the send counts of every channel.
func (s Snapshot) SendTotals() SendCounts {
	var total SendCounts
	for _, c := range s.Sends {
		total.Attempts += c.Attempts
		total.Failures += c.Failures
	}
	return total
}

// CommandNames lists the recorded commands, busiest first, ties by name.
func (s Snapshot) CommandNames() []string {
	names := make([]string, 0, len(s.Commands))
	for name := range s.Commands {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if d := s.Commands[b].Runs - s.Commands[a].Runs; d != 0 {
			if d > 0 {
				return 1
			}
			return -1
		}
		return strings.Compare(a, b)
	})
	return names
}

// ChannelNames lists the channels with recorded sends, sorted.
func (s Snapshot) ChannelNames() []string {
	names := make([]string, 0, len(s.Sends))
	for name := range s.Sends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Commands = make(map[string]CommandCounts, len(s.Commands))
	for k, v := range s.Commands {
		out.Commands[k] = v
	}
	out.Sends = make(map[string]SendCounts, len(s.Sends))
	for k, v := range s.Sends {
		out.Sends[k] = v
	}
	return out
}

// Recorder collects command and send counts. A nil *Recorder ignores
// everything, and one built with an empty data directory never touches disk.
type Recorder struct {
	path string
	prom *exporter
	now  func() time.Time

	mu     sync.Mutex
	snap   Snapshot
	recent []int64 // ring of the last latencyWindow durations in ms
	next   int
}

// NewRecorder returns a recorder persisting to
// <dataDir>/state/runtime_metrics.json. Counts already stored there are
// carried forward so totals survive restarts.
func NewRecorder(dataDir string) *Recorder {
	r := &Recorder{
		path: snapshotPath(dataDir),
		prom: newExporter(),
		now:  time.Now,
	}
	if r.path != "" {
		if prev, err := ReadSnapshot(dataDir); err == nil {
			r.snap = prev
		}
	}
	return r
}

// Snapshot returns a copy of the current counts.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.clone()
}

// ObserveCommand records one run of the named command and persists the result.
func (r *Recorder) ObserveCommand(name string, d time.Duration, reply string, runErr error) (Snapshot, error) {
	if r == nil {
		return Snapshot{}, nil
	}
	outcome := Classify(reply, runErr)
	ms := max(d.Milliseconds(), 0)

	r.mu.Lock()
	if r.snap.Commands == nil {
		r.snap.Commands = map[string]CommandCounts{}
	}
	counts := r.snap.Commands[name]
	counts.add(outcome)
	r.snap.Commands[name] = counts

	r.snap.Latency.Samples++
	r.snap.Latency.TotalMs += ms
	r.snap.Latency.MaxMs = max(r.snap.Latency.MaxMs, ms)
	r.pushLatency(ms)
	r.snap.Latency.P95Ms = r.p95()
	r.snap.UpdatedAt = r.now().UTC()
	snap := r.snap.clone()
	r.mu.Unlock()

	r.prom.observeCommand(name, outcome, d)
	return snap, r.persist(snap)
}

// ObserveSend records one outbound delivery attempt on channel.
func (r *Recorder) ObserveSend(channel string, sendErr error) (Snapshot, error) {
	if r == nil {
		return Snapshot{}, nil
	}

	r.mu.Lock()
	if r.snap.Sends == nil {
		r.snap.Sends = map[string]SendCounts{}
	}
	counts := r.snap.Sends[channel]
	counts.Attempts++
	if sendErr != nil {
		counts.Failures++
	}
	r.snap.Sends[channel] = counts
	r.snap.UpdatedAt = r.now().UTC()
	snap := r.snap.clone()
	r.mu.Unlock()

	r.prom.observeSend(channel, sendErr == nil)
	return snap, r.persist(snap)
}

func (r *Recorder) pushLatency(ms int64) {
	if len(r.recent) < latencyWindow {
		r.recent = append(r.recent, ms)
		return
	}
	r.recent[r.next] = ms
	r.next = (r.next + 1) % latencyWindow
}

// p95 uses the nearest-rank method over the latency window.
func (r *Recorder) p95() int64 {
	if len(r.recent) == 0 {
		return 0
	}
	sorted := slices.Clone(r.recent)
	slices.Sort(sorted)
	rank := (len(sorted)*95 + 99) / 100
	return sorted[rank-1]
}

func (r *Recorder) persist(snap Snapshot) error {
	if r.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace metrics file: %w", err)
	}
	return nil
}

// ReadSnapshot loads the snapshot stored under dataDir. A missing file is an
// empty snapshot.
func ReadSnapshot(dataDir string) (Snapshot, error) {
	raw, err := os.ReadFile(snapshotPath(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("read metrics: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode metrics: %w", err)
	}
	return snap, nil
}

func snapshotPath(dataDir string) string {
	if strings.TrimSpace(dataDir) == "" {
		return ""
	}
	return filepath.Join(dataDir, "state", snapshotFile)
}

// Package audit keeps an append-only JSONL record of executed commands.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	fileName = "audit.jsonl"
	fileMode = 0644
	dirMode  = 0755

	maxLineBytes = 1 << 20
)

// Event is one executed command, written as a single JSON line.
type Event struct {
	Time       time.Time `json:"time"`
	RequestID  string    `json:"request_id,omitempty"`
	Channel    string    `json:"channel"`
	ChatID     string    `json:"chat_id,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	Command    string    `json:"command"`
	Args       string    `json:"args,omitempty"`
	Result     string    `json:"result"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Outcome classifies a command reply as ok, cooldown or error.
func Outcome(reply string) (result, errText string) {
	reply = strings.TrimSpace(reply)
	switch {
	case strings.HasPrefix(reply, "CooldownError:"):
		return "cooldown", reply
	case strings.HasPrefix(reply, "Error:"):
		return "error", strings.TrimSpace(strings.TrimPrefix(reply, "Error:"))
	default:
		return "ok", ""
	}
}

// Writer appends events to <dataDir>/state/audit.jsonl.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates an append-only audit writer rooted at the data directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{path: Path(dataDir)}
}

// Path returns the audit log location for dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "state", fileName)
}

// Append writes one event as one JSONL line. A nil writer drops the event.
func (w *Writer) Append(event Event) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), dirMode); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	encoded = append(encoded, '\n')

	if _, err := file.Write(encoded); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest events, oldest first. A missing
// log yields no events. Lines that fail to decode or exceed maxLineBytes are
// skipped.
func Recent(dataDir string, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	file, err := os.Open(Path(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	events := make([]Event, 0, limit)
	reader := bufio.NewReader(file)
	for {
		line, readErr := readLine(reader)
		if len(line) > 0 {
			var ev Event
			if err := json.Unmarshal(line, &ev); err == nil {
				if len(events) == limit {
					events = append(events[:0], events[1:]...)
				}
				events = append(events, ev)
			}
		}
		if readErr == io.EOF {
			return events, nil
		}
		if readErr != nil {
			return events, fmt.Errorf("read audit file: %w", readErr)
		}
	}
}

// readLine returns the next line without its newline. Lines longer than
// maxLineBytes are consumed and returned empty.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	oversized := false
	for {
		chunk, isPrefix, err := r.ReadLine()
		if !oversized {
			line = append(line, chunk...)
			if len(line) > maxLineBytes {
				line, oversized = nil, true
			}
		}
		if err != nil || !isPrefix {
			return line, err
		}
	}
}

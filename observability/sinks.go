package observability

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSink appends one JSON line per event to a daily log file under dir,
// named events-YYYY-MM-DD.jsonl. Rotation happens automatically as the
// wall-clock date changes.
type FileSink struct {
	dir string

	mu      sync.Mutex
	day     string
	file    *os.File
	encoder *json.Encoder
	now     func() time.Time
}

// NewFileSink returns a FileSink writing daily JSONL files under dir,
// creating dir if it does not already exist.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("observability: creating sink dir: %w", err)
	}
	return &FileSink{dir: dir, now: time.Now}, nil
}

func (s *FileSink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.now().UTC().Format("2006-01-02")
	if day != s.day || s.file == nil {
		if s.file != nil {
			s.file.Close()
		}
		path := filepath.Join(s.dir, fmt.Sprintf("events-%s.jsonl", day))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		s.file = f
		s.encoder = json.NewEncoder(f)
		s.day = day
	}
	return s.encoder.Encode(ev)
}

// Close releases the currently open file handle, if any.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// StreamSink appends one JSON line per event to a single, long-lived
// append-only file, for tailing with `tail -f` independent of the daily
// rotation FileSink performs.
type StreamSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewStreamSink opens (creating if necessary) path for append and returns
// a StreamSink writing to it.
func NewStreamSink(path string) (*StreamSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("observability: creating stream dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &StreamSink{file: f, enc: json.NewEncoder(f)}, nil
}

func (s *StreamSink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(ev)
}

func (s *StreamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// MemorySink buffers events in memory, useful for tests and for the
// console/debug sink the teacher's logging stack favors in development.
type MemorySink struct {
	mu     sync.Mutex
	Events []Event
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	return nil
}

// Snapshot returns a copy of the events recorded so far.
func (s *MemorySink) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.Events))
	copy(out, s.Events)
	return out
}

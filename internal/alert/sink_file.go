package alert

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends alert events to a JSONL file. When maxBytes is positive
// the file rotates to <path>.1 before a write would push it past the limit,
// so a long run keeps at most two generations of alert history.
type FileSink struct {
	path     string
	maxBytes int64

	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	written int64
}

// NewFileSink opens (or creates) the JSONL file. maxBytes <= 0 disables
// rotation.
func NewFileSink(path string, maxBytes int64) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	var written int64
	if info, err := f.Stat(); err == nil {
		written = info.Size()
	}
	return &FileSink{
		path:     path,
		maxBytes: maxBytes,
		file:     f,
		writer:   bufio.NewWriter(f),
		written:  written,
	}, nil
}

func (s *FileSink) Name() string { return "file_jsonl:" + s.path }

func (s *FileSink) Deliver(_ context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line := int64(len(data)) + 1
	if s.maxBytes > 0 && s.written > 0 && s.written+line > s.maxBytes {
		if err := s.rotate(); err != nil {
			return fmt.Errorf("rotate: %w", err)
		}
	}

	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	s.written += line
	return nil
}

// rotate moves the current file aside and starts a fresh one. The previous
// <path>.1 generation, if any, is overwritten. Caller holds the mutex.
func (s *FileSink) rotate() error {
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(s.path, s.path+".1"); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	s.writer = bufio.NewWriter(f)
	s.written = 0
	return nil
}

func (s *FileSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		_ = s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

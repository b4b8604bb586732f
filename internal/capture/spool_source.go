package capture

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// maxDecodeRetries bounds how many polls a spool file that will not
// decode is kept around. A file mid-write by the companion process gets
// retried; a corrupt one is evicted so it cannot wedge the queue.
const maxDecodeRetries = 3

// SpoolSource reads frames dropped as image files into a spool directory
// by a camera companion process. Files are consumed oldest-first and
// removed once decoded.
type SpoolSource struct {
	dir      string
	interval time.Duration

	mu      sync.Mutex
	closed  bool
	retries map[string]int
}

// NewSpoolSource polls dir every interval for new frames.
func NewSpoolSource(dir string, interval time.Duration) *SpoolSource {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &SpoolSource{dir: dir, interval: interval, retries: make(map[string]int)}
}

// Open verifies the spool directory exists.
func (s *SpoolSource) Open(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return os.ErrInvalid
	}
	return nil
}

// ReadFrame returns the oldest spooled frame, polling until one arrives.
func (s *SpoolSource) ReadFrame(ctx context.Context) (image.Image, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if s.isClosed() {
			return nil, ErrClosed
		}
		frame, ok, err := s.nextFrame()
		if err != nil {
			return nil, err
		}
		if ok {
			return frame, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release marks the source closed. Spooled files left behind are the
// companion process's to clean up.
func (s *SpoolSource) Release() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *SpoolSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SpoolSource) nextFrame() (image.Image, bool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, false, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, false, nil
	}
	sort.Strings(names)

	name := names[0]
	path := filepath.Join(s.dir, name)
	file, err := os.Open(path)
	if err != nil {
		return nil, false, nil
	}
	frame, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		// Likely still being written; leave the file for the next poll.
		// After maxDecodeRetries failed polls it is evicted as corrupt.
		s.mu.Lock()
		s.retries[name]++
		evict := s.retries[name] >= maxDecodeRetries
		if evict {
			delete(s.retries, name)
		}
		s.mu.Unlock()
		if evict {
			_ = os.Remove(path)
		}
		return nil, false, nil
	}

	s.mu.Lock()
	delete(s.retries, name)
	s.mu.Unlock()
	_ = os.Remove(path)
	return frame, true, nil
}

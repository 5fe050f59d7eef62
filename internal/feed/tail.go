package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultPollInterval = time.Second

type tailOptions struct {
	fromStart bool
	poll      time.Duration
	ready     chan<- struct{}
}

// TailOption customises Tail.
type TailOption func(*tailOptions)

// FromStart replays the existing file contents before following it.
func FromStart() TailOption {
	return func(o *tailOptions) {
		o.fromStart = true
	}
}

// WithPollInterval sets how often the file is re-checked when no filesystem
// event arrives.
func WithPollInterval(d time.Duration) TailOption {
	return func(o *tailOptions) {
		o.poll = d
	}
}

// WithReady closes ch once the watcher is installed and the starting offset
// is known.
func WithReady(ch chan<- struct{}) TailOption {
	return func(o *tailOptions) {
		o.ready = ch
	}
}

type tailer struct {
	path   string
	offset int64
	h      Handler
}

// Tail follows the file at path and hands each complete appended line to h
// until ctx is done. By default it starts at the current end of file. A file
// that shrinks is read again from the start.
func Tail(ctx context.Context, path string, h Handler, opts ...TailOption) error {
	o := tailOptions{poll: defaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve feed path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil {
			// Best-effort watcher close.
			_ = cerr
		}
	}()
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	t := &tailer{path: absPath, h: h}
	if !o.fromStart {
		if info, err := os.Stat(absPath); err == nil {
			t.offset = info.Size()
		}
	}
	if o.ready != nil {
		close(o.ready)
	}
	t.read()

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				t.offset = 0
				continue
			}
			t.read()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			h.OnError(fmt.Errorf("feed watcher: %w", err))
		case <-ticker.C:
			t.read()
		}
	}
}

// read consumes every complete line after the current offset. A trailing
// line without a newline is left for the next call.
func (t *tailer) read() {
	f, err := os.Open(t.path)
	if err != nil {
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < t.offset {
		t.offset = 0
	}
	if info.Size() == t.offset {
		return
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}

	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// Partial or empty tail; retry once the writer finishes the line.
			return
		}
		t.offset += int64(len(line))
		consumeLine(line, t.h)
	}
}

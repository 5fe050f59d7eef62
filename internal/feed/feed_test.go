package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tabhero/internal/model"
)

type recorder struct {
	mu        sync.Mutex
	changes   []model.ChangeEvent
	snapshots []model.Document
	errs      []error
}

func (r *recorder) OnChange(ev model.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev)
}

func (r *recorder) OnSnapshot(doc model.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, doc)
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) changeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

const sampleFeed = `{"type":"snapshot","document":{"uri":"file:///a.go","version":1,"text":"package a"}}

{"type":"change","document":{"uri":"file:///a.go","version":2},"changes":[{"range":{"start":{"line":0,"character":9},"end":{"line":0,"character":9}},"text":"\nfunc main() {}"}]}
not json
{"type":"cursor","document":{"uri":"file:///a.go","version":3}}
`

func TestDecode(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, Decode(context.Background(), strings.NewReader(sampleFeed), rec))

	require.Len(t, rec.snapshots, 1)
	assert.Equal(t, "package a", rec.snapshots[0].Text)

	require.Len(t, rec.changes, 1)
	ev := rec.changes[0]
	assert.Equal(t, 2, ev.Document.Version)
	require.Len(t, ev.Changes, 1)
	assert.True(t, ev.Changes[0].Range.IsEmpty())
	assert.Equal(t, model.Position{Line: 0, Character: 9}, ev.Changes[0].Range.Start)
	assert.Equal(t, "\nfunc main() {}", ev.Changes[0].Text)

	require.Len(t, rec.errs, 2)
	assert.True(t, errors.Is(rec.errs[1], ErrUnknownType))
}

func TestDecodeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	require.NoError(t, Decode(ctx, strings.NewReader(sampleFeed), rec))
	assert.Empty(t, rec.changes)
}

func TestDecodeSkipsOversizedLine(t *testing.T) {
	huge := `{"type":"snapshot","document":{"uri":"u","version":1,"text":"` +
		strings.Repeat("x", 2*maxLineSize) + `"}}` + "\n"
	rec := &recorder{}
	require.NoError(t, Decode(context.Background(), strings.NewReader(huge+line(2)), rec))

	require.Len(t, rec.errs, 1)
	assert.True(t, errors.Is(rec.errs[0], ErrLineTooLong))
	assert.Empty(t, rec.snapshots)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, 2, rec.changes[0].Document.Version)
}

func TestDecodeFinalLineWithoutNewline(t *testing.T) {
	rec := &recorder{}
	input := strings.TrimSuffix(line(3), "\n")
	require.NoError(t, Decode(context.Background(), strings.NewReader(input), rec))
	require.Len(t, rec.changes, 1)
	assert.Equal(t, 3, rec.changes[0].Document.Version)
}

func TestEncodeWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	ev := model.ChangeEvent{
		Document: model.Document{URI: "file:///b.go", Version: 4},
		Changes: []model.ContentChange{{
			Range: model.Range{Start: model.Position{Line: 1, Character: 2}, End: model.Position{Line: 1, Character: 2}},
			Text:  "fmt.Println()",
		}},
	}
	require.NoError(t, Encode(&buf, ChangeLine(ev)))
	require.NoError(t, Encode(&buf, SnapshotLine(model.Document{URI: "file:///b.go", Version: 5})))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	rec := &recorder{}
	require.NoError(t, Decode(context.Background(), &buf, rec))
	require.Len(t, rec.changes, 1)
	assert.Equal(t, ev, rec.changes[0])
	require.Len(t, rec.snapshots, 1)
	assert.Empty(t, rec.errs)
}

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

const changeLine = `{"type":"change","document":{"uri":"u","version":%d},"changes":[{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":0}},"text":"hello"}]}`

func line(version int) string {
	return fmt.Sprintf(changeLine, version) + "\n"
}

func startTail(t *testing.T, path string, rec *recorder, opts ...TailOption) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	opts = append(opts, WithReady(ready), WithPollInterval(20*time.Millisecond))
	go func() {
		done <- Tail(ctx, path, rec, opts...)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("tail did not start")
	}
}

func TestTailFollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	appendFile(t, path, line(1))

	rec := &recorder{}
	startTail(t, path, rec)

	appendFile(t, path, line(2))
	require.Eventually(t, func() bool { return rec.changeCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	assert.Equal(t, 2, rec.changes[0].Document.Version)
	rec.mu.Unlock()
}

func TestTailFromStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	appendFile(t, path, line(1)+line(2))

	rec := &recorder{}
	startTail(t, path, rec, FromStart())
	require.Eventually(t, func() bool { return rec.changeCount() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestTailWaitsForCompleteLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	rec := &recorder{}
	startTail(t, path, rec)

	full := line(3)
	appendFile(t, path, full[:20])
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, rec.changeCount())

	appendFile(t, path, full[20:])
	require.Eventually(t, func() bool { return rec.changeCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestTailRereadsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	appendFile(t, path, line(1)+line(2)+line(3))

	rec := &recorder{}
	startTail(t, path, rec)

	require.NoError(t, os.WriteFile(path, []byte(line(4)), 0o644))
	require.Eventually(t, func() bool { return rec.changeCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

// Package detector infers accepted inline completions from raw document edits.
package detector

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tabhero/internal/logging"
	"github.com/verte-zerg/tabhero/internal/model"
)

// AcceptThreshold is an exclusive bound: an insertion counts as a completion
// only when it has more runes than this. Typed characters and auto-closed
// brackets stay at or below it.
const AcceptThreshold = 3

// Listener receives classified acceptances.
type Listener func(model.AcceptanceEvent)

type listener struct {
	id int
	fn Listener
}

type snapshot struct {
	version int
	text    string
}

// Detector classifies change events per document.
type Detector struct {
	logger *log.Logger

	mu   sync.Mutex
	docs map[string]snapshot

	subMu  sync.Mutex
	nextID int
	subs   []listener
}

// New returns a detector with no document history.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logging.OrDiscard(logger),
		docs:   map[string]snapshot{},
	}
}

// Subscribe registers fn for every future acceptance.
func (d *Detector) Subscribe(fn Listener) (unsubscribe func()) {
	d.subMu.Lock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, listener{id: id, fn: fn})
	d.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.subMu.Lock()
			defer d.subMu.Unlock()
			for i, s := range d.subs {
				if s.id == id {
					d.subs = append(d.subs[:i], d.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// OnDocumentChange inspects one change event and emits an acceptance when it
// is a single pure insertion longer than AcceptThreshold runes.
func (d *Detector) OnDocumentChange(ev model.ChangeEvent) {
	if len(ev.Changes) == 0 {
		return
	}
	uri := ev.Document.URI

	d.mu.Lock()
	last := d.docs[uri].version
	if ev.Document.Version <= last {
		d.mu.Unlock()
		d.logger.Debug("ignoring stale change", "uri", uri, "version", ev.Document.Version, "last", last)
		return
	}
	d.docs[uri] = snapshot{version: ev.Document.Version, text: ev.Document.Text}
	d.mu.Unlock()

	var inserted []model.ContentChange
	for _, c := range ev.Changes {
		if c.Text != "" {
			inserted = append(inserted, c)
		}
	}
	if len(inserted) != 1 {
		return
	}
	change := inserted[0]
	if !change.Range.IsEmpty() || utf8.RuneCountInString(change.Text) <= AcceptThreshold {
		return
	}

	d.emit(model.AcceptanceEvent{
		Text:     change.Text,
		Position: EndPosition(change.Range.Start, change.Text),
		Document: ev.Document,
	})
}

// Observe records the document's current version and text without
// classifying anything.
func (d *Detector) Observe(doc model.Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs[doc.URI] = snapshot{version: doc.Version, text: doc.Text}
}

// LastVersion returns the most recent version seen for uri.
func (d *Detector) LastVersion(uri string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.docs[uri]
	return s.version, ok
}

// Snapshot returns the most recent text seen for uri.
func (d *Detector) Snapshot(uri string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.docs[uri]
	return s.text, ok
}

// EndPosition returns where text ends when inserted at start.
func EndPosition(start model.Position, text string) model.Position {
	lines := strings.Split(text, "\n")
	last := utf8.RuneCountInString(lines[len(lines)-1])
	if len(lines) == 1 {
		return model.Position{Line: start.Line, Character: start.Character + last}
	}
	return model.Position{Line: start.Line + len(lines) - 1, Character: last}
}

func (d *Detector) emit(ev model.AcceptanceEvent) {
	d.subMu.Lock()
	subs := make([]listener, len(d.subs))
	copy(subs, d.subs)
	d.subMu.Unlock()

	d.logger.Debug("completion accepted", "uri", ev.Document.URI, "line", ev.Position.Line, "character", ev.Position.Character)
	for _, s := range subs {
		d.call(s.fn, ev)
	}
}

func (d *Detector) call(fn Listener, ev model.AcceptanceEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("acceptance listener failed", "panic", r)
		}
	}()
	fn(ev)
}

// Package feed reads and writes the JSONL edit-event stream produced by an
// editor bridge.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/verte-zerg/tabhero/internal/model"
)

// Line types.
const (
	TypeChange   = "change"
	TypeSnapshot = "snapshot"
)

const maxLineSize = 1 << 20

// Line is one record of the feed.
type Line struct {
	Type     string                `json:"type"`
	Document model.Document        `json:"document"`
	Changes  []model.ContentChange `json:"changes,omitempty"`
}

// Handler consumes decoded feed records.
type Handler interface {
	OnChange(model.ChangeEvent)
	OnSnapshot(model.Document)
	OnError(error)
}

var (
	// ErrUnknownType is reported for records with an unrecognised type.
	ErrUnknownType = errors.New("unknown feed record type")
	// ErrLineTooLong is reported for records larger than the line limit.
	ErrLineTooLong = errors.New("feed line exceeds limit")
)

// ChangeLine wraps a change event as a feed record.
func ChangeLine(ev model.ChangeEvent) Line {
	return Line{Type: TypeChange, Document: ev.Document, Changes: ev.Changes}
}

// SnapshotLine wraps a document snapshot as a feed record.
func SnapshotLine(doc model.Document) Line {
	return Line{Type: TypeSnapshot, Document: doc}
}

// ParseLine decodes a single JSONL record.
func ParseLine(data []byte) (Line, error) {
	var line Line
	if err := json.Unmarshal(data, &line); err != nil {
		return Line{}, fmt.Errorf("failed to decode feed line: %w", err)
	}
	switch line.Type {
	case TypeChange, TypeSnapshot:
		return line, nil
	default:
		return Line{}, fmt.Errorf("%w: %q", ErrUnknownType, line.Type)
	}
}

// Dispatch hands a record to the matching handler method.
func Dispatch(line Line, h Handler) {
	switch line.Type {
	case TypeChange:
		h.OnChange(model.ChangeEvent{Document: line.Document, Changes: line.Changes})
	case TypeSnapshot:
		h.OnSnapshot(line.Document)
	}
}

// Decode reads records from r until EOF or ctx is done. Malformed and
// oversized lines go to h.OnError and are skipped.
func Decode(ctx context.Context, r io.Reader, h Handler) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if ctx.Err() != nil {
			return nil
		}
		if len(line) > 0 {
			consumeLine(line, h)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read feed: %w", err)
		}
	}
}

// Encode writes line as one JSONL record.
func Encode(w io.Writer, line Line) error {
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to encode feed line: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// consumeLine enforces the line limit before decoding one raw record.
func consumeLine(raw []byte, h Handler) {
	if len(raw) > maxLineSize {
		h.OnError(fmt.Errorf("%w: %d bytes", ErrLineTooLong, len(raw)))
		return
	}
	handleLine(raw, h)
}

func handleLine(data []byte, h Handler) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return
	}
	line, err := ParseLine(data)
	if err != nil {
		h.OnError(err)
		return
	}
	Dispatch(line, h)
}

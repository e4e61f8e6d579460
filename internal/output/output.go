// Package output renders chunking results for the CLI as styled text,
// a JSON document or JSON lines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/amanchunk/pkg/chunk"
)

// Format selects how results are written.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// ParseFormat accepts text, json or jsonl (case-insensitive). Empty means text.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatJSONL:
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or jsonl)", name)
	}
}

// Document is the chunking result for one input.
type Document struct {
	Source   string        `json:"source"`
	Strategy string        `json:"strategy"`
	Language string        `json:"language,omitempty"`
	Count    int           `json:"count"`
	Chunks   []chunk.Chunk `json:"chunks"`
}

// NewDocument builds a Document, filling Count.
func NewDocument(source string, strategy chunk.Strategy, language string, chunks []chunk.Chunk) Document {
	if chunks == nil {
		chunks = []chunk.Chunk{}
	}
	return Document{
		Source:   source,
		Strategy: string(strategy),
		Language: language,
		Count:    len(chunks),
		Chunks:   chunks,
	}
}

// jsonlRecord is one chunk per line, tagged with its source.
type jsonlRecord struct {
	Source string `json:"source"`
	chunk.Chunk
}

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer without color.
func New(out io.Writer) *Writer {
	return NewWithColor(out, false)
}

// NewWithColor creates a Writer, styled when color is true.
func NewWithColor(out io.Writer, color bool) *Writer {
	return &Writer{
		out:    out,
		styles: GetStyles(color),
	}
}

// Documents writes docs in the requested format.
func (w *Writer) Documents(format Format, docs []Document) error {
	switch format {
	case FormatJSON:
		return w.json(docs)
	case FormatJSONL:
		return w.jsonl(docs)
	case FormatText, "":
		w.text(docs)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// json writes a single document as an object and several as an array.
func (w *Writer) json(docs []Document) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	if len(docs) == 1 {
		return enc.Encode(docs[0])
	}
	if docs == nil {
		docs = []Document{}
	}
	return enc.Encode(docs)
}

func (w *Writer) jsonl(docs []Document) error {
	enc := json.NewEncoder(w.out)
	for _, doc := range docs {
		for _, c := range doc.Chunks {
			if err := enc.Encode(jsonlRecord{Source: doc.Source, Chunk: c}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Errors from writing are intentionally ignored for console output.
func (w *Writer) text(docs []Document) {
	s := w.styles
	for i, doc := range docs {
		if i > 0 {
			_, _ = fmt.Fprintln(w.out)
		}
		header := fmt.Sprintf("%s (%s", doc.Source, doc.Strategy)
		if doc.Language != "" {
			header += ", " + doc.Language
		}
		header += fmt.Sprintf(", %d chunks)", doc.Count)
		_, _ = fmt.Fprintln(w.out, s.Header.Render("== "+header+" =="))

		for _, c := range doc.Chunks {
			_, _ = fmt.Fprintln(w.out, s.Meta.Render(chunkMeta(c)))
			if c.Overlap > 0 && c.Overlap <= len(c.Content) {
				_, _ = fmt.Fprint(w.out, s.Overlap.Render(c.Content[:c.Overlap]))
				_, _ = fmt.Fprintln(w.out, c.Body())
			} else {
				_, _ = fmt.Fprintln(w.out, c.Content)
			}
		}
	}
}

func chunkMeta(c chunk.Chunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- chunk %d [%s] bytes %d-%d", c.ID, c.Kind, c.Start, c.End)
	if c.Overlap > 0 {
		fmt.Fprintf(&sb, " overlap %d", c.Overlap)
	}
	if len(c.Symbols) > 0 {
		fmt.Fprintf(&sb, " symbols %s", strings.Join(c.Symbols, ", "))
	}
	sb.WriteString(" ---")
	return sb.String()
}

// Summary prints a one-line total after text output.
func (w *Writer) Summary(docs []Document, failed int) {
	total := 0
	for _, d := range docs {
		total += d.Count
	}
	msg := fmt.Sprintf("%d chunks from %d inputs", total, len(docs))
	if failed > 0 {
		msg += fmt.Sprintf(", %d failed", failed)
		w.Warning(msg)
		return
	}
	w.Success(msg)
}

// Status prints a status message with an icon.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✅"), msg)
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("⚠️ "), msg)
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("❌"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Table prints aligned label/value rows.
func (w *Writer) Table(rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		label := w.styles.Label.Render(fmt.Sprintf("%-*s", width, r[0]))
		_, _ = fmt.Fprintf(w.out, "%s  %s\n", label, r[1])
	}
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

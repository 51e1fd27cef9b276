package openjpeg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
)

// rootTag matches an opening tag at the very start of a line.
var rootTag = regexp.MustCompile(`^<(\w+)>`)

// asciiSpace is the set of bytes stripped from both ends of every line.
const asciiSpace = " \t\n\r\v\f"

// ReadXMLBoxString returns the raw XML box text of the JPEG 2000 file at path.
func ReadXMLBoxString(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return ExtractXMLBox(f)
}

// ReadXMLBox reads the XML box of the JPEG 2000 file at path and converts
// it to a nested Dict with numeric leaves coerced to int64 or float64.
func ReadXMLBox(path string) (Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseXMLBox(f)
}

// ParseXMLBox is ReadXMLBox for an arbitrary reader.
func ParseXMLBox(r io.Reader) (Dict, error) {
	s, err := ExtractXMLBox(r)
	if err != nil {
		return nil, err
	}

	dict, err := XMLToDict(s)
	if err != nil {
		return nil, fmt.Errorf("parse XML box: %w", err)
	}
	coerceTypes(dict)
	return dict, nil
}

// ExtractXMLBox scans r line by line for the first line that begins with
// an opening tag <name>, then collects lines until the matching </name>.
// Each collected line is stripped of surrounding whitespace and the lines
// are joined without separators. The returned text ends with the closing
// tag; if the stream ends first, whatever was collected is returned.
//
// ErrXMLBoxNotFound is returned when no line begins with an opening tag.
func ExtractXMLBox(r io.Reader) (string, error) {
	br := bufio.NewReader(r)

	var root string
	var buf bytes.Buffer
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if m := rootTag.FindSubmatch(line); m != nil {
				root = string(m[1])
				buf.Write(bytes.Trim(line, asciiSpace))
				break
			}
		}
		if errors.Is(err, io.EOF) {
			return "", ErrXMLBoxNotFound
		}
		if err != nil {
			return "", fmt.Errorf("read XML box: %w", err)
		}
	}

	tracker := newTagBalance(root)
	if end, ok := tracker.feed(buf.Bytes()); ok {
		return string(buf.Bytes()[:end]), nil
	}

	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			start := buf.Len()
			buf.Write(bytes.Trim(line, asciiSpace))
			if end, ok := tracker.feed(buf.Bytes()[start:]); ok {
				return string(buf.Bytes()[:start+end]), nil
			}
		}
		if errors.Is(err, io.EOF) {
			return buf.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("read XML box: %w", err)
		}
	}
}

// tagBalance counts opening and closing tags of one element name across
// consecutive chunks of text.
type tagBalance struct {
	open  *regexp.Regexp
	close []byte
	depth int
}

func newTagBalance(name string) *tagBalance {
	return &tagBalance{
		open:  regexp.MustCompile(`<` + regexp.QuoteMeta(name) + `(?:\s[^>]*)?>`),
		close: []byte("</" + name + ">"),
	}
}

// feed consumes the next chunk. When the depth returns to zero it reports
// the offset within chunk just past the balancing closing tag.
//
// Tags are assumed not to straddle chunk boundaries; chunks are whole
// lines, which holds for the boxes written by common JP2 encoders.
func (t *tagBalance) feed(chunk []byte) (int, bool) {
	type event struct {
		pos   int
		end   int
		delta int
	}
	var events []event
	for _, loc := range t.open.FindAllIndex(chunk, -1) {
		if bytes.HasSuffix(chunk[loc[0]:loc[1]], []byte("/>")) {
			continue
		}
		events = append(events, event{loc[0], loc[1], 1})
	}
	for off := 0; ; {
		i := bytes.Index(chunk[off:], t.close)
		if i < 0 {
			break
		}
		pos := off + i
		events = append(events, event{pos, pos + len(t.close), -1})
		off = pos + len(t.close)
	}

	// Open and close tags never share a start offset.
	slices.SortFunc(events, func(a, b event) int { return a.pos - b.pos })
	for _, ev := range events {
		t.depth += ev.delta
		if t.depth <= 0 {
			return ev.end, true
		}
	}
	return 0, false
}

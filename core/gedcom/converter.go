package gedcom

import (
	"bufio"
	"bytes"
	"io"

	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
	"github.com/FocuswithJustin/EasyTree/core/xml"
	"github.com/FocuswithJustin/EasyTree/internal/archive"
	"github.com/FocuswithJustin/EasyTree/internal/logging"
)

const (
	tagCont = "CONT"
	tagConc = "CONC"

	// maxLineSize bounds a single line read from the source.
	maxLineSize = 1024 * 1024
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Stats counts what a conversion did.
type Stats struct {
	Lines         int // lines read, blank ones included
	Nodes         int // elements added to the tree
	Dropped       int // lines left out of the tree
	Continuations int // CONT and CONC elements merged into their parent
}

// Converter builds the XML tree of a GEDCOM file.
type Converter struct {
	opts Options
}

// NewConverter returns a converter using opts.
func NewConverter(opts Options) *Converter {
	return &Converter{opts: opts}
}

// frame is an open element and the level of the line that opened it. A
// nil node marks a dropped line whose subordinate lines are dropped too.
type frame struct {
	node  *xml.Node
	level int
}

// Build reads GEDCOM text and returns its tree. Each line closes every
// open element at its own level or deeper before opening its own element,
// so nesting follows the level numbers without look-ahead. Lines that do
// not parse are skipped. Only read errors fail the build.
func (c *Converter) Build(r io.Reader) (*xml.Document, Stats, error) {
	var stats Stats
	doc := xml.NewDocument()
	stack := []frame{{node: doc.Root(), level: -1}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanGEDCOMLines)

	for scanner.Scan() {
		stats.Lines++
		raw := scanner.Bytes()
		if stats.Lines == 1 {
			raw = bytes.TrimPrefix(raw, utf8BOM)
		}

		line, err := ParseLine(string(raw), c.opts.DisableCharacterCheck)
		if err != nil {
			if len(bytes.TrimSpace(raw)) > 0 {
				stats.Dropped++
				logging.LineDropped(stats.Lines, err.Error())
			}
			continue
		}

		for len(stack) > 1 && stack[len(stack)-1].level >= line.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node
		if parent == nil {
			stats.Dropped++
			logging.LineDropped(stats.Lines, "parent line was dropped", "tag", line.Tag)
			stack = append(stack, frame{level: line.Level})
			continue
		}

		node, err := parent.AppendChild(line.Tag, line.Data)
		if err != nil {
			stats.Dropped++
			logging.LineDropped(stats.Lines, err.Error(), "tag", line.Tag)
			stack = append(stack, frame{level: line.Level})
			continue
		}
		stats.Nodes++
		stack = append(stack, frame{node: node, level: line.Level})
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, apperrors.NewIO("read", "gedcom", err)
	}

	if c.opts.CombineContinuations {
		stats.Continuations = MergeContinuations(doc.Root(), c.opts.ConcatenateWithSpace)
	}
	return doc, stats, nil
}

// MergeContinuations folds every CONT and CONC child into its parent's
// value, in document order, and removes those children. CONT starts a new
// line; CONC appends directly, or after one space when withSpace is set.
// It returns how many elements were merged.
func MergeContinuations(root *xml.Node, withSpace bool) int {
	merged := 0
	root.Walk(func(n *xml.Node) bool {
		var conts []*xml.Node
		for _, child := range n.Children() {
			if child.Name() == tagCont || child.Name() == tagConc {
				conts = append(conts, child)
			}
		}
		if len(conts) == 0 {
			return true
		}
		value := n.Value()
		for _, child := range conts {
			switch {
			case child.Name() == tagCont:
				value += "\n" + child.Value()
			case withSpace:
				value += " " + child.Value()
			default:
				value += child.Value()
			}
			child.Remove()
			merged++
		}
		n.SetValue(value)
		return true
	})
	return merged
}

// ConvertToXML converts the GEDCOM file at sourcePath to an XML tree file
// at destPath. Either path may carry a .gz or .xz suffix.
func ConvertToXML(sourcePath, destPath string, opts Options) (Stats, error) {
	src, err := archive.OpenSource(sourcePath)
	if err != nil {
		return Stats{}, apperrors.NewIO("open", sourcePath, err)
	}
	defer src.Close()

	doc, stats, err := NewConverter(opts).Build(src)
	if err != nil {
		return stats, err
	}

	dst, err := archive.CreateSink(destPath)
	if err != nil {
		return stats, apperrors.NewIO("create", destPath, err)
	}
	if err := doc.Write(dst, xml.WriteOptions{Indent: "  "}); err != nil {
		dst.Close()
		return stats, apperrors.NewIO("write", destPath, err)
	}
	if err := dst.Close(); err != nil {
		return stats, apperrors.NewIO("write", destPath, err)
	}
	return stats, nil
}

// scanGEDCOMLines is a bufio.SplitFunc like bufio.ScanLines that also
// accepts a lone CR as a line terminator.
func scanGEDCOMLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// CR at the end of the buffer may start a CRLF.
				return 0, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

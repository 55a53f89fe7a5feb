package gedcom

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/EasyTree/core/encoding"
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

// lineFormat names GEDCOM lines in parse errors.
const lineFormat = "GEDCOM line"

// linePattern is <level><ws><tag>(<ws><data>)?.
var linePattern = regexp.MustCompile(`^\s*(\d+)\s+(\S+)(?:\s(.*))?$`)

// Line is one parsed GEDCOM line.
type Line struct {
	Level int
	Tag   string
	Data  string
}

// ParseLine parses one line of GEDCOM text. Unless disableCharacterCheck is
// set, bytes outside printable ASCII are removed first. On pointer
// definitions the cross-reference id becomes Data and the record tag
// becomes Tag; text after the record tag on such lines is dropped.
func ParseLine(text string, disableCharacterCheck bool) (Line, error) {
	if strings.TrimSpace(text) == "" {
		return Line{}, apperrors.NewParse(lineFormat, "", "empty line")
	}
	if !disableCharacterCheck {
		text = encoding.StripNonPrintable(text)
	}
	text = encoding.UnescapeGedcom(text)

	m := linePattern.FindStringSubmatch(text)
	if m == nil {
		return Line{}, apperrors.NewParse(lineFormat, text, "expected <level> <tag> [<data>]")
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		perr := apperrors.NewParse(lineFormat, text, "level out of range")
		perr.Err = err
		return Line{}, perr
	}

	tag, data := m[2], m[3]
	if strings.HasPrefix(tag, "@") {
		tag, data = data, tag
		if i := strings.IndexFunc(tag, isSpace); i >= 0 {
			tag = tag[:i]
		}
	}
	tag = encoding.SanitizeTag(tag)
	if tag == "" {
		return Line{}, apperrors.NewParse(lineFormat, text, "missing tag")
	}
	return Line{Level: level, Tag: tag, Data: data}, nil
}

// Parse fills l from text and reports success. On failure l is reset to
// its zero value.
func (l *Line) Parse(text string, disableCharacterCheck bool) bool {
	parsed, err := ParseLine(text, disableCharacterCheck)
	*l = parsed
	return err == nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

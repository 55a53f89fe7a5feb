package date

import (
	"database/sql/driver"
	"encoding/json"
	"encoding/xml"
	"strings"

	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// simplePrefix marks Simple dates in JSON and SQL text, which have no
// attribute to carry the kind. No GEDCOM date starts with it.
const simplePrefix = "simple:"

// Wrapper holds zero or one Date and defines how dates are persisted.
// The zero value is empty.
type Wrapper struct {
	date Date
}

// NewWrapper wraps d. A nil d gives an empty wrapper.
func NewWrapper(d Date) Wrapper {
	return Wrapper{date: d}
}

// ParseWrapper wraps the parsed text. Text that does not parse gives an
// empty wrapper.
func ParseWrapper(text string) Wrapper {
	d, ok := TryParse(text)
	if !ok {
		return Wrapper{}
	}
	return Wrapper{date: d}
}

// IsNullOrEmpty reports whether w is nil or holds no date.
func IsNullOrEmpty(w *Wrapper) bool {
	return w == nil || w.date == nil
}

// Date returns the wrapped date, or nil.
func (w Wrapper) Date() Date { return w.date }

// IsEmpty reports whether no date is held.
func (w Wrapper) IsEmpty() bool { return w.date == nil }

// Equal compares the wrapped dates. Two empty wrappers are equal.
func (w Wrapper) Equal(other Wrapper) bool {
	if w.date == nil || other.date == nil {
		return w.date == nil && other.date == nil
	}
	return w.date.Equal(other.date)
}

// Gedcom renders the wrapped date, or "" when empty.
func (w Wrapper) Gedcom() (string, error) {
	if w.date == nil {
		return "", nil
	}
	return w.date.ToGedcom()
}

func (w Wrapper) String() string {
	s, err := w.Gedcom()
	if err != nil {
		return ""
	}
	return s
}

// MarshalXML writes the GEDCOM text as element content. An empty wrapper
// is written as an element carrying xsi:nil="true".
func (w Wrapper) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if w.date == nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xsi:nil"}, Value: "true"})
		return e.EncodeElement("", start)
	}
	text, err := w.date.ToGedcom()
	if err != nil {
		return err
	}
	if w.date.Kind() == KindSimple {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "kind"}, Value: KindSimple.String()})
	}
	return e.EncodeElement(text, start)
}

// UnmarshalXML reads either form written by MarshalXML. A nil-marked or
// blank element gives an empty wrapper.
func (w *Wrapper) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var text string
	if err := d.DecodeElement(&text, &start); err != nil {
		return err
	}
	simple := false
	for _, a := range start.Attr {
		switch {
		case a.Name.Local == "nil" && (a.Name.Space == "xsi" || a.Name.Space == xsiNamespace):
			if a.Value == "true" || a.Value == "1" {
				*w = Wrapper{}
				return nil
			}
		case a.Name.Local == "kind" && a.Name.Space == "":
			simple = a.Value == KindSimple.String()
		}
	}
	return w.setText(text, simple)
}

func (w *Wrapper) setText(text string, simple bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		*w = Wrapper{}
		return nil
	}
	if simple {
		s, err := NewSimple(text)
		if err != nil {
			return err
		}
		*w = Wrapper{date: s}
		return nil
	}
	*w = ParseWrapper(text)
	return nil
}

// persisted is the GEDCOM text with simplePrefix in front for Simple dates.
func (w Wrapper) persisted() (string, error) {
	text, err := w.date.ToGedcom()
	if err != nil {
		return "", err
	}
	if w.date.Kind() == KindSimple {
		text = simplePrefix + text
	}
	return text, nil
}

func (w *Wrapper) setPersisted(text string) error {
	if rest, ok := strings.CutPrefix(strings.TrimSpace(text), simplePrefix); ok {
		return w.setText(rest, true)
	}
	return w.setText(text, false)
}

// MarshalJSON writes the GEDCOM text, or null when empty. Simple dates
// carry the "simple:" prefix.
func (w Wrapper) MarshalJSON() ([]byte, error) {
	if w.date == nil {
		return []byte("null"), nil
	}
	text, err := w.persisted()
	if err != nil {
		return nil, err
	}
	return json.Marshal(text)
}

// UnmarshalJSON accepts null or a string written by MarshalJSON.
func (w *Wrapper) UnmarshalJSON(data []byte) error {
	var text *string
	if err := json.Unmarshal(data, &text); err != nil {
		return apperrors.NewParse("date JSON", string(data), err.Error())
	}
	if text == nil {
		*w = Wrapper{}
		return nil
	}
	return w.setPersisted(*text)
}

// Value implements driver.Valuer: NULL when empty, the same text as
// MarshalJSON otherwise.
func (w Wrapper) Value() (driver.Value, error) {
	if w.date == nil {
		return nil, nil
	}
	return w.persisted()
}

// Scan implements sql.Scanner.
func (w *Wrapper) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*w = Wrapper{}
		return nil
	case string:
		return w.setPersisted(v)
	case []byte:
		return w.setPersisted(string(v))
	default:
		return apperrors.NewValidation("date", "", "cannot scan non-text value into a date")
	}
}

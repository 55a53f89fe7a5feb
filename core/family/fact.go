package family

import (
	"strconv"

	"github.com/FocuswithJustin/EasyTree/core/date"
)

// FactType is the kind of a life or family event.
type FactType int

const (
	Birth FactType = iota
	Death
	Burial
	Cremation
	Occupation
	Education
	Religion
	Marriage
	Divorce
)

var factTags = [...]string{
	Birth:      "BIRT",
	Death:      "DEAT",
	Burial:     "BURI",
	Cremation:  "CREM",
	Occupation: "OCCU",
	Education:  "EDUC",
	Religion:   "RELI",
	Marriage:   "MARR",
	Divorce:    "DIV",
}

var factNames = [...]string{
	Birth:      "birth",
	Death:      "death",
	Burial:     "burial",
	Cremation:  "cremation",
	Occupation: "occupation",
	Education:  "education",
	Religion:   "religion",
	Marriage:   "marriage",
	Divorce:    "divorce",
}

// PersonFactTypes lists the facts an individual record carries, in the
// order they are imported and exported.
var PersonFactTypes = []FactType{Birth, Death, Burial, Cremation, Occupation, Education, Religion}

func (t FactType) String() string {
	if t < 0 || int(t) >= len(factNames) {
		return "fact(" + strconv.Itoa(int(t)) + ")"
	}
	return factNames[t]
}

// GedcomTag returns the GEDCOM tag of the event.
func (t FactType) GedcomTag() string {
	if t < 0 || int(t) >= len(factTags) {
		return ""
	}
	return factTags[t]
}

// FactTypeFromTag resolves a GEDCOM event tag.
func FactTypeFromTag(tag string) (FactType, bool) {
	for i, t := range factTags {
		if t == tag {
			return FactType(i), true
		}
	}
	return 0, false
}

// Citation points a fact at the source it came from.
type Citation struct {
	SourceID string // id of a Source in the tree
	Page     string // where in the source (GEDCOM PAGE)
	Note     string
	Link     string
}

// IsEmpty reports whether no citation field is set.
func (c Citation) IsEmpty() bool {
	return c.SourceID == "" && c.Page == "" && c.Note == "" && c.Link == ""
}

// Fact is one event. Descriptor carries the date qualifier seen on import
// ("ABT ", "AFT ", "BEF " or ""), kept apart from the date value.
type Fact struct {
	Type       FactType
	Date       date.Wrapper
	Descriptor string
	Place      string
	Value      string
	Citation   Citation
}

// Equal compares every field, dates by value.
func (f Fact) Equal(other Fact) bool {
	return f.Type == other.Type &&
		f.Date.Equal(other.Date) &&
		f.Descriptor == other.Descriptor &&
		f.Place == other.Place &&
		f.Value == other.Value &&
		f.Citation == other.Citation
}

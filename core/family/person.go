// Package family models the people of a family tree, their life events and
// the relationships between them, together with the sources and
// repositories their facts cite.
package family

import (
	"strings"

	"github.com/FocuswithJustin/EasyTree/core/calendar"
	"github.com/FocuswithJustin/EasyTree/core/date"
)

// UnknownName is used when an imported person has no name at all.
const UnknownName = "unknown"

// Gender of a person. Records that do not say otherwise are Male.
type Gender int

const (
	Male Gender = iota
	Female
)

func (g Gender) String() string {
	if g == Female {
		return "female"
	}
	return "male"
}

// GedcomSex returns the GEDCOM SEX value.
func (g Gender) GedcomSex() string {
	if g == Female {
		return "F"
	}
	return "M"
}

// Restriction limits how a person's details may be shared.
type Restriction int

const (
	RestrictionNone Restriction = iota
	RestrictionLocked
	RestrictionPrivate
)

func (r Restriction) String() string {
	switch r {
	case RestrictionLocked:
		return "locked"
	case RestrictionPrivate:
		return "private"
	default:
		return "none"
	}
}

// RestrictionFromGedcom maps a RESN value. Unknown values mean no restriction.
func RestrictionFromGedcom(value string) Restriction {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "locked":
		return RestrictionLocked
	case "privacy", "private", "confidential":
		return RestrictionPrivate
	default:
		return RestrictionNone
	}
}

// GedcomResn returns the RESN value, or "" for no restriction.
func (r Restriction) GedcomResn() string {
	switch r {
	case RestrictionLocked:
		return "locked"
	case RestrictionPrivate:
		return "privacy"
	default:
		return ""
	}
}

// Name holds the parts of a personal name.
type Name struct {
	Prefix        string
	Given         string
	SurnamePrefix string
	Surname       string
	Suffix        string
}

// IsEmpty reports whether no part is set.
func (n Name) IsEmpty() bool {
	return n.Prefix == "" && n.Given == "" && n.SurnamePrefix == "" && n.Surname == "" && n.Suffix == ""
}

// Full joins the non-empty parts in display order.
func (n Name) Full() string {
	var parts []string
	for _, p := range []string{n.Prefix, n.Given, n.SurnamePrefix, n.Surname, n.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Gedcom renders the NAME line value ("Dr John /van Doe/ Jr").
func (n Name) Gedcom() string {
	var parts []string
	if n.Prefix != "" {
		parts = append(parts, n.Prefix)
	}
	if n.Given != "" {
		parts = append(parts, n.Given)
	}
	surname := strings.TrimSpace(n.SurnamePrefix + " " + n.Surname)
	parts = append(parts, "/"+surname+"/")
	if n.Suffix != "" {
		parts = append(parts, n.Suffix)
	}
	return strings.Join(parts, " ")
}

// Person is one individual of the tree.
type Person struct {
	ID          string
	Name        Name
	Gender      Gender
	Living      bool
	Restriction Restriction
	Facts       []Fact
	Note        string
}

// NewPerson returns a living person with the given id.
func NewPerson(id string) *Person {
	return &Person{ID: id, Living: true}
}

// Fact returns the first fact of type t, or nil.
func (p *Person) Fact(t FactType) *Fact {
	for i := range p.Facts {
		if p.Facts[i].Type == t {
			return &p.Facts[i]
		}
	}
	return nil
}

// AddFact appends f.
func (p *Person) AddFact(f Fact) {
	p.Facts = append(p.Facts, f)
}

// HasDeathEvidence reports whether a death, burial or cremation is recorded.
func (p *Person) HasDeathEvidence() bool {
	return p.Fact(Death) != nil || p.Fact(Burial) != nil || p.Fact(Cremation) != nil
}

// BirthDate returns the anchor of the birth date, when there is one.
func (p *Person) BirthDate() (date.Exact, bool) {
	f := p.Fact(Birth)
	if f == nil || f.Date.IsEmpty() {
		return date.Exact{}, false
	}
	return date.Anchor(f.Date.Date())
}

// Age returns the age in whole years at the given Gregorian date, based on
// the birth date precision available.
func (p *Person) Age(year, month, day int) (int, bool) {
	birth, ok := p.BirthDate()
	if !ok {
		return 0, false
	}
	if birth.Calendar() != calendar.Gregorian() {
		g, err := birth.In(calendar.Gregorian())
		if err != nil {
			return 0, false
		}
		birth = g
	}
	age := year - birth.Year()
	if birth.Month() != 0 && (month < birth.Month() || month == birth.Month() && birth.Day() != 0 && day < birth.Day()) {
		age--
	}
	return age, true
}

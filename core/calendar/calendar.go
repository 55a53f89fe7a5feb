// Package calendar provides the registry of calendar systems used by
// genealogical dates and the compact year/month/day value types that
// reference them.
//
// # Registry
//
// The registry is a fixed, process-wide table built once on first use and
// never mutated afterwards, so lookups are safe from any goroutine:
//
//	cal, err := calendar.ForID("Julian")
//	same, _ := calendar.ForOrdinal(calendar.OrdinalJulian) // same pointer
//
// Lookups by id are case-sensitive. An unknown id or ordinal is an error,
// never a default calendar.
//
// # Arithmetic
//
// Every calendar converts to and from a fixed day number (day 1 is
// 1 January of year 1 in the proleptic Gregorian calendar). Years are
// astronomical: year 0 is 1 B.C.
package calendar

import (
	"sort"
	"strings"
	"sync"

	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

// Ordinal is the stable numeric key of a registered calendar system.
type Ordinal uint8

// Registered calendar ordinals. Values are persisted inside
// YearMonthDayCalendar and must never be renumbered.
const (
	OrdinalGregorian Ordinal = iota
	OrdinalJulian
	OrdinalHebrew
	OrdinalFrenchRepublican
)

// Registered calendar ids.
const (
	IDGregorian        = "Gregorian"
	IDJulian           = "Julian"
	IDHebrew           = "Hebrew"
	IDFrenchRepublican = "French Republican"
)

// System is a calendar system. Instances are shared; compare them by pointer
// or by ordinal.
type System struct {
	id      string
	ordinal Ordinal
	escape  string
	months  []string
	rules   rules
}

// rules is the arithmetic behind a calendar system.
type rules interface {
	monthsInYear(year int) int
	daysInMonth(year, month int) int
	isLeapYear(year int) bool
	toFixed(year, month, day int) int
	fromFixed(fixed int) (year, month, day int)
}

// ID returns the stable string id of the calendar.
func (s *System) ID() string { return s.id }

// Ordinal returns the stable numeric key of the calendar.
func (s *System) Ordinal() Ordinal { return s.ordinal }

// Escape returns the GEDCOM calendar escape, e.g. "@#DJULIAN@".
func (s *System) Escape() string { return s.escape }

func (s *System) String() string { return s.id }

// MonthNames returns the GEDCOM month abbreviations in month order.
func (s *System) MonthNames() []string {
	out := make([]string, len(s.months))
	copy(out, s.months)
	return out
}

// MaxMonth is the highest month number the calendar ever uses.
func (s *System) MaxMonth() int { return len(s.months) }

// MonthName returns the GEDCOM abbreviation for month.
func (s *System) MonthName(month int) (string, bool) {
	if month < 1 || month > len(s.months) {
		return "", false
	}
	return s.months[month-1], true
}

// MonthFromName resolves a GEDCOM month abbreviation, ignoring case.
func (s *System) MonthFromName(name string) (int, bool) {
	for i, m := range s.months {
		if strings.EqualFold(m, name) {
			return i + 1, true
		}
	}
	return 0, false
}

// MonthsInYear returns how many months the given year actually has.
func (s *System) MonthsInYear(year int) int { return s.rules.monthsInYear(year) }

// DaysInMonth returns the length of month in year, or 0 when the month does
// not exist in that year.
func (s *System) DaysInMonth(year, month int) int {
	if month < 1 || month > len(s.months) {
		return 0
	}
	return s.rules.daysInMonth(year, month)
}

// IsLeapYear reports whether year is a leap year in this calendar.
func (s *System) IsLeapYear(year int) bool { return s.rules.isLeapYear(year) }

// Validate checks that year/month/day names a real day in this calendar.
func (s *System) Validate(year, month, day int) error {
	if year < MinYear || year > MaxYear {
		return apperrors.NewValidation("year", itoa(year), "outside supported range")
	}
	dim := s.DaysInMonth(year, month)
	if dim == 0 {
		return apperrors.NewValidation("month", itoa(month), "not a month of "+s.id+" year "+itoa(year))
	}
	if day < 1 || day > dim {
		return apperrors.NewValidation("day", itoa(day), "outside 1.."+itoa(dim))
	}
	return nil
}

// ToFixed converts a full date in this calendar to a fixed day number.
func (s *System) ToFixed(year, month, day int) (int, error) {
	if err := s.Validate(year, month, day); err != nil {
		return 0, err
	}
	return s.rules.toFixed(year, month, day), nil
}

// FromFixed converts a fixed day number to a date in this calendar.
func (s *System) FromFixed(fixed int) (YearMonthDayCalendar, error) {
	y, m, d := s.rules.fromFixed(fixed)
	return NewYearMonthDayCalendar(y, m, d, s.ordinal)
}

type registry struct {
	byID      map[string]*System
	byEscape  map[string]*System
	byOrdinal []*System
}

var loadRegistry = sync.OnceValue(func() *registry {
	systems := []*System{
		{
			id:      IDGregorian,
			ordinal: OrdinalGregorian,
			escape:  "@#DGREGORIAN@",
			months:  westernMonths,
			rules:   gregorianRules{},
		},
		{
			id:      IDJulian,
			ordinal: OrdinalJulian,
			escape:  "@#DJULIAN@",
			months:  westernMonths,
			rules:   julianRules{},
		},
		{
			id:      IDHebrew,
			ordinal: OrdinalHebrew,
			escape:  "@#DHEBREW@",
			months:  hebrewMonths,
			rules:   hebrewRules{},
		},
		{
			id:      IDFrenchRepublican,
			ordinal: OrdinalFrenchRepublican,
			escape:  "@#DFRENCH R@",
			months:  frenchMonths,
			rules:   frenchRules{},
		},
	}

	r := &registry{
		byID:      make(map[string]*System, len(systems)),
		byEscape:  make(map[string]*System, len(systems)),
		byOrdinal: make([]*System, len(systems)),
	}
	for _, s := range systems {
		r.byID[s.id] = s
		r.byEscape[s.escape] = s
		r.byOrdinal[s.ordinal] = s
	}
	return r
})

// ForID returns the calendar registered under id. The match is exact and
// case-sensitive.
func ForID(id string) (*System, error) {
	if s, ok := loadRegistry().byID[id]; ok {
		return s, nil
	}
	return nil, apperrors.NewNotFound("calendar", id)
}

// ForOrdinal returns the calendar registered under ordinal.
func ForOrdinal(ordinal Ordinal) (*System, error) {
	r := loadRegistry()
	if int(ordinal) < len(r.byOrdinal) {
		return r.byOrdinal[ordinal], nil
	}
	return nil, apperrors.NewNotFound("calendar ordinal", itoa(int(ordinal)))
}

// ForEscape resolves a GEDCOM calendar escape such as "@#DHEBREW@".
// Escapes are matched without regard to case.
func ForEscape(escape string) (*System, error) {
	if s, ok := loadRegistry().byEscape[strings.ToUpper(strings.TrimSpace(escape))]; ok {
		return s, nil
	}
	return nil, apperrors.NewNotFound("calendar escape", escape)
}

// All returns every registered calendar ordered by ordinal.
func All() []*System {
	r := loadRegistry()
	out := make([]*System, len(r.byOrdinal))
	copy(out, r.byOrdinal)
	return out
}

// IDs returns every registered id, sorted.
func IDs() []string {
	r := loadRegistry()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Gregorian returns the Gregorian calendar, the default for GEDCOM dates.
func Gregorian() *System { return loadRegistry().byOrdinal[OrdinalGregorian] }

// Julian returns the Julian calendar.
func Julian() *System { return loadRegistry().byOrdinal[OrdinalJulian] }

// Hebrew returns the Hebrew calendar.
func Hebrew() *System { return loadRegistry().byOrdinal[OrdinalHebrew] }

// FrenchRepublican returns the French Republican calendar.
func FrenchRepublican() *System { return loadRegistry().byOrdinal[OrdinalFrenchRepublican] }

// Package date models genealogical dates.
//
// Genealogical dates are often partial (year only, month and year),
// qualified (about, before, after, estimated, calculated), expressed as a
// span, or given as free text. Every form is a variant of the closed Date
// union:
//
//   - Exact: one point in a named calendar, at year, month or day precision
//   - Simple: a bare four-digit year with no calendar attached
//   - Approximate: a qualifier layered on an Exact point
//   - Range: BET/AND or FROM/TO spans between Exact points
//   - Phrase: free text, optionally with an interpreted Exact point
//
// Only Exact satisfies ExactDate. Values of different variants are never
// Equal, even when they render the same GEDCOM text.
package date

import (
	"strconv"

	"github.com/FocuswithJustin/EasyTree/core/calendar"
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

// Kind identifies a Date variant.
type Kind int

const (
	KindExact Kind = iota
	KindSimple
	KindApproximate
	KindRange
	KindPhrase
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindSimple:
		return "simple"
	case KindApproximate:
		return "approximate"
	case KindRange:
		return "range"
	case KindPhrase:
		return "phrase"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Date is implemented by every date variant in this package and nowhere else.
type Date interface {
	// ToGedcom renders the canonical GEDCOM text for the precision held.
	ToGedcom() (string, error)
	// Equal reports value equality. Variants of different kinds are never equal.
	Equal(other Date) bool
	Kind() Kind
	sealed()
}

// ExactDate is a Date that names one calendar point.
type ExactDate interface {
	Date
	Year() int
	Month() int
	Day() int
}

// Precision is how much of an Exact date is known.
type Precision int

const (
	PrecisionYear Precision = iota
	PrecisionMonth
	PrecisionDay
)

// Exact is a full or partial date in one calendar. A zero Month or Day means
// the component is unknown.
type Exact struct {
	ymdc calendar.YearMonthDayCalendar
}

var _ ExactDate = Exact{}

// Create builds a Gregorian Exact date. Pass month 0 for year precision and
// day 0 for month precision. Months outside 1..12 are accepted here and
// rejected when rendered.
func Create(year, month, day int) (Exact, error) {
	return NewExact(calendar.Gregorian(), year, month, day)
}

// NewExact builds an Exact date in cal. It fails when a field does not fit
// the packed representation or when a day is given without a month.
func NewExact(cal *calendar.System, year, month, day int) (Exact, error) {
	if month == 0 && day != 0 {
		return Exact{}, apperrors.NewValidation("day", strconv.Itoa(day), "day given without month")
	}
	ymdc, err := calendar.NewYearMonthDayCalendar(year, month, day, cal.Ordinal())
	if err != nil {
		return Exact{}, err
	}
	return Exact{ymdc: ymdc}, nil
}

// MustCreate is Create for literals known to be valid. It panics on error.
func MustCreate(year, month, day int) Exact {
	e, err := Create(year, month, day)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Exact) Year() int  { return e.ymdc.Year() }
func (e Exact) Month() int { return e.ymdc.Month() }
func (e Exact) Day() int   { return e.ymdc.Day() }
func (Exact) Kind() Kind   { return KindExact }
func (Exact) sealed()      {}

// Packed returns the underlying calendar-aware packed value.
func (e Exact) Packed() calendar.YearMonthDayCalendar { return e.ymdc }

// Calendar returns the calendar the date is expressed in.
func (e Exact) Calendar() *calendar.System {
	cal, err := e.ymdc.Calendar()
	if err != nil {
		// Exact values are only built from registered calendars.
		panic(err)
	}
	return cal
}

// Precision reports which components are known.
func (e Exact) Precision() Precision {
	switch {
	case e.Day() != 0:
		return PrecisionDay
	case e.Month() != 0:
		return PrecisionMonth
	default:
		return PrecisionYear
	}
}

// ToGedcom renders "YYYY", "MON YYYY" or "D MON YYYY", prefixed with the
// calendar escape for non-Gregorian calendars.
func (e Exact) ToGedcom() (string, error) {
	cal := e.Calendar()
	text := formatYear(e.Year())
	if m := e.Month(); m != 0 {
		name, ok := cal.MonthName(m)
		if !ok {
			return "", apperrors.NewValidation("month", strconv.Itoa(m),
				"must be in 1.."+strconv.Itoa(cal.MaxMonth())+" for "+cal.ID())
		}
		text = name + " " + text
		if d := e.Day(); d != 0 {
			text = strconv.Itoa(d) + " " + text
		}
	}
	if cal != calendar.Gregorian() {
		text = cal.Escape() + " " + text
	}
	return text, nil
}

func formatYear(year int) string {
	if year <= 0 {
		return strconv.Itoa(1-year) + " B.C."
	}
	return strconv.Itoa(year)
}

func (e Exact) Equal(other Date) bool {
	o, ok := other.(Exact)
	return ok && e.ymdc == o.ymdc
}

func (e Exact) String() string {
	if s, err := e.ToGedcom(); err == nil {
		return s
	}
	return e.ymdc.String()
}

// ToFixed returns the fixed day number of a day-precision date.
func (e Exact) ToFixed() (int, error) {
	if e.Precision() != PrecisionDay {
		return 0, apperrors.NewUnsupported("fixed day", "date "+e.String()+" has no day")
	}
	return e.Calendar().ToFixed(e.Year(), e.Month(), e.Day())
}

// In converts a day-precision date to another calendar.
func (e Exact) In(cal *calendar.System) (Exact, error) {
	if cal == e.Calendar() {
		return e, nil
	}
	fixed, err := e.ToFixed()
	if err != nil {
		return Exact{}, err
	}
	ymdc, err := cal.FromFixed(fixed)
	if err != nil {
		return Exact{}, err
	}
	return Exact{ymdc: ymdc}, nil
}

// Compare orders two dates. Day-precision dates compare across calendars;
// partial dates compare field-wise and only within one calendar.
func (e Exact) Compare(other Exact) (int, error) {
	if e.Precision() == PrecisionDay && other.Precision() == PrecisionDay {
		a, err := e.ToFixed()
		if err != nil {
			return 0, err
		}
		b, err := other.ToFixed()
		if err != nil {
			return 0, err
		}
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if e.ymdc.Ordinal() != other.ymdc.Ordinal() {
		return 0, apperrors.NewUnsupported("date comparison", "partial dates in different calendars")
	}
	return e.ymdc.YearMonthDay().Compare(other.ymdc.YearMonthDay()), nil
}

// Simple is a bare four-digit year string with no calendar semantics.
type Simple struct {
	year string
}

// NewSimple accepts exactly four ASCII digits.
func NewSimple(text string) (Simple, error) {
	if len(text) != 4 {
		return Simple{}, apperrors.NewValidation("year", text, "simple date must be a four-digit year")
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return Simple{}, apperrors.NewValidation("year", text, "simple date must be a four-digit year")
		}
	}
	return Simple{year: text}, nil
}

// Year returns the numeric year.
func (s Simple) Year() int {
	y, _ := strconv.Atoi(s.year)
	return y
}

func (s Simple) ToGedcom() (string, error) {
	if s.year == "" {
		return "", apperrors.NewValidation("year", "", "simple date is empty")
	}
	return s.year, nil
}

func (s Simple) Equal(other Date) bool {
	o, ok := other.(Simple)
	return ok && s.year == o.year
}

func (Simple) Kind() Kind { return KindSimple }
func (Simple) sealed()    {}

func (s Simple) String() string { return s.year }

// Qualifier is the descriptor of an Approximate date.
type Qualifier string

const (
	About      Qualifier = "ABT"
	Calculated Qualifier = "CAL"
	Estimated  Qualifier = "EST"
	Before     Qualifier = "BEF"
	After      Qualifier = "AFT"
)

func (q Qualifier) valid() bool {
	switch q {
	case About, Calculated, Estimated, Before, After:
		return true
	}
	return false
}

// Approximate is an Exact point qualified by about/before/after/estimated/calculated.
type Approximate struct {
	Qualifier Qualifier
	Date      Exact
}

func (a Approximate) ToGedcom() (string, error) {
	if !a.Qualifier.valid() {
		return "", apperrors.NewValidation("qualifier", string(a.Qualifier), "unknown date qualifier")
	}
	inner, err := a.Date.ToGedcom()
	if err != nil {
		return "", err
	}
	return string(a.Qualifier) + " " + inner, nil
}

func (a Approximate) Equal(other Date) bool {
	o, ok := other.(Approximate)
	return ok && a.Qualifier == o.Qualifier && a.Date.Equal(o.Date)
}

func (Approximate) Kind() Kind { return KindApproximate }
func (Approximate) sealed()    {}

// RangeKind distinguishes BET/AND ranges from FROM/TO periods.
type RangeKind int

const (
	Between RangeKind = iota
	Period
)

// Range is a span between two points. Between ranges always carry both
// ends; periods may omit either one but not both.
type Range struct {
	Span  RangeKind
	Start *Exact
	End   *Exact
}

// NewBetween builds "BET start AND end".
func NewBetween(start, end Exact) Range {
	return Range{Span: Between, Start: &start, End: &end}
}

// NewPeriod builds "FROM start TO end"; nil ends are omitted.
func NewPeriod(start, end *Exact) Range {
	return Range{Span: Period, Start: start, End: end}
}

func (r Range) ToGedcom() (string, error) {
	switch r.Span {
	case Between:
		if r.Start == nil || r.End == nil {
			return "", apperrors.NewValidation("range", "", "BET range needs both ends")
		}
		start, err := r.Start.ToGedcom()
		if err != nil {
			return "", err
		}
		end, err := r.End.ToGedcom()
		if err != nil {
			return "", err
		}
		return "BET " + start + " AND " + end, nil
	case Period:
		if r.Start == nil && r.End == nil {
			return "", apperrors.NewValidation("range", "", "period needs at least one end")
		}
		text := ""
		if r.Start != nil {
			start, err := r.Start.ToGedcom()
			if err != nil {
				return "", err
			}
			text = "FROM " + start
		}
		if r.End != nil {
			end, err := r.End.ToGedcom()
			if err != nil {
				return "", err
			}
			if text != "" {
				text += " "
			}
			text += "TO " + end
		}
		return text, nil
	default:
		return "", apperrors.NewValidation("range", strconv.Itoa(int(r.Span)), "unknown range kind")
	}
}

func equalEnds(a, b *Exact) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (r Range) Equal(other Date) bool {
	o, ok := other.(Range)
	return ok && r.Span == o.Span && equalEnds(r.Start, o.Start) && equalEnds(r.End, o.End)
}

func (Range) Kind() Kind { return KindRange }
func (Range) sealed()    {}

// Phrase is free date text, optionally interpreted as an Exact point
// ("INT 1900 (about the turn of the century)").
type Phrase struct {
	Text        string
	Interpreted *Exact
}

func (p Phrase) ToGedcom() (string, error) {
	text := "(" + p.Text + ")"
	if p.Interpreted == nil {
		return text, nil
	}
	inner, err := p.Interpreted.ToGedcom()
	if err != nil {
		return "", err
	}
	return "INT " + inner + " " + text, nil
}

func (p Phrase) Equal(other Date) bool {
	o, ok := other.(Phrase)
	return ok && p.Text == o.Text && equalEnds(p.Interpreted, o.Interpreted)
}

func (Phrase) Kind() Kind { return KindPhrase }
func (Phrase) sealed()    {}

// Anchor returns the exact point a date hangs on: the date itself, the
// qualified point, the start of a range (the end when only the end is
// known) or the interpreted point of a phrase.
func Anchor(d Date) (Exact, bool) {
	switch v := d.(type) {
	case Exact:
		return v, true
	case Approximate:
		return v.Date, true
	case Range:
		if v.Start != nil {
			return *v.Start, true
		}
		if v.End != nil {
			return *v.End, true
		}
	case Phrase:
		if v.Interpreted != nil {
			return *v.Interpreted, true
		}
	}
	return Exact{}, false
}

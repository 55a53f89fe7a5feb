package calendar

import (
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

// Bit layout of YearMonthDayCalendar, low bits first:
//
//	| year (15, signed) | month (5) | day (6) | calendar (6) |
//
// YearMonthDay uses the same layout without the calendar field.
const (
	CalendarBits = 6
	DayBits      = 6
	MonthBits    = 5
	YearBits     = 32 - CalendarBits - DayBits - MonthBits

	// MaxCalendarOrdinal is the largest ordinal the packed form can carry.
	MaxCalendarOrdinal = 1<<CalendarBits - 1
	// MaxMonth and MaxDay bound the raw fields. Zero means "not specified".
	MaxMonth = 1<<MonthBits - 1
	MaxDay   = 1<<DayBits - 1
	MinYear  = -(1 << (YearBits - 1))
	MaxYear  = 1<<(YearBits-1) - 1
)

const (
	dayMask      = 1<<DayBits - 1
	monthMask    = 1<<MonthBits - 1
	calendarMask = 1<<CalendarBits - 1

	ymdMonthShift = DayBits
	ymdYearShift  = DayBits + MonthBits

	ymdcDayShift   = CalendarBits
	ymdcMonthShift = CalendarBits + DayBits
	ymdcYearShift  = CalendarBits + DayBits + MonthBits
)

func checkFields(year, month, day int) error {
	if year < MinYear || year > MaxYear {
		return apperrors.NewValidation("year", itoa(year), "does not fit in packed date")
	}
	if month < 0 || month > MaxMonth {
		return apperrors.NewValidation("month", itoa(month), "does not fit in packed date")
	}
	if day < 0 || day > MaxDay {
		return apperrors.NewValidation("day", itoa(day), "does not fit in packed date")
	}
	return nil
}

// YearMonthDay is a calendar-naive packed date. A zero month or day means
// that component is unspecified.
type YearMonthDay struct {
	value int32
}

// NewYearMonthDay packs year, month and day. It fails only when a field does
// not fit its bit width.
func NewYearMonthDay(year, month, day int) (YearMonthDay, error) {
	if err := checkFields(year, month, day); err != nil {
		return YearMonthDay{}, err
	}
	return YearMonthDay{
		value: int32(year)<<ymdYearShift | int32(month)<<ymdMonthShift | int32(day),
	}, nil
}

func (y YearMonthDay) Year() int  { return int(y.value >> ymdYearShift) }
func (y YearMonthDay) Month() int { return int(y.value>>ymdMonthShift) & monthMask }
func (y YearMonthDay) Day() int   { return int(y.value) & dayMask }

// Compare orders by year, then month, then day.
func (y YearMonthDay) Compare(other YearMonthDay) int {
	switch {
	case y.Year() != other.Year():
		return cmpInt(y.Year(), other.Year())
	case y.Month() != other.Month():
		return cmpInt(y.Month(), other.Month())
	default:
		return cmpInt(y.Day(), other.Day())
	}
}

// WithCalendar attaches a calendar ordinal.
func (y YearMonthDay) WithCalendar(ordinal Ordinal) (YearMonthDayCalendar, error) {
	return NewYearMonthDayCalendar(y.Year(), y.Month(), y.Day(), ordinal)
}

func (y YearMonthDay) String() string {
	return itoa(y.Year()) + "-" + pad2(y.Month()) + "-" + pad2(y.Day())
}

// YearMonthDayCalendar is a packed date bound to a calendar ordinal. Values
// are comparable with ==.
type YearMonthDayCalendar struct {
	value int32
}

// NewYearMonthDayCalendar packs the fields. The ordinal must fit
// CalendarBits; whether it is registered is checked by Calendar.
func NewYearMonthDayCalendar(year, month, day int, ordinal Ordinal) (YearMonthDayCalendar, error) {
	if err := checkFields(year, month, day); err != nil {
		return YearMonthDayCalendar{}, err
	}
	if int(ordinal) > MaxCalendarOrdinal {
		return YearMonthDayCalendar{}, apperrors.NewValidation("calendar", itoa(int(ordinal)), "does not fit in packed date")
	}
	return YearMonthDayCalendar{
		value: int32(year)<<ymdcYearShift |
			int32(month)<<ymdcMonthShift |
			int32(day)<<ymdcDayShift |
			int32(ordinal),
	}, nil
}

func (y YearMonthDayCalendar) Year() int  { return int(y.value >> ymdcYearShift) }
func (y YearMonthDayCalendar) Month() int { return int(y.value>>ymdcMonthShift) & monthMask }
func (y YearMonthDayCalendar) Day() int   { return int(y.value>>ymdcDayShift) & dayMask }

// Ordinal returns the packed calendar ordinal.
func (y YearMonthDayCalendar) Ordinal() Ordinal { return Ordinal(y.value & calendarMask) }

// Calendar resolves the packed ordinal in the registry.
func (y YearMonthDayCalendar) Calendar() (*System, error) {
	return ForOrdinal(y.Ordinal())
}

// YearMonthDay drops the calendar ordinal.
func (y YearMonthDayCalendar) YearMonthDay() YearMonthDay {
	return YearMonthDay{value: y.value >> CalendarBits}
}

// Raw returns the packed representation.
func (y YearMonthDayCalendar) Raw() int32 { return y.value }

// YearMonthDayCalendarFromRaw rebuilds a value from Raw.
func YearMonthDayCalendarFromRaw(raw int32) YearMonthDayCalendar {
	return YearMonthDayCalendar{value: raw}
}

func (y YearMonthDayCalendar) String() string {
	name := itoa(int(y.Ordinal()))
	if cal, err := y.Calendar(); err == nil {
		name = cal.ID()
	}
	return y.YearMonthDay().String() + " [" + name + "]"
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func pad2(v int) string {
	if v < 10 {
		return "0" + itoa(v)
	}
	return itoa(v)
}

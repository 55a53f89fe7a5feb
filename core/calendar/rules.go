package calendar

import "strconv"

var westernMonths = []string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// hebrewMonths follows GEDCOM's civil order starting at Tishri. ADS (Adar II)
// only exists in leap years.
var hebrewMonths = []string{
	"TSH", "CSH", "KSL", "TVT", "SHV", "ADR", "ADS",
	"NSN", "IYR", "SVN", "TMZ", "AAV", "ELL",
}

// frenchMonths ends with COMP, the five or six complementary days.
var frenchMonths = []string{
	"VEND", "BRUM", "FRIM", "NIVO", "PLUV", "VENT",
	"GERM", "FLOR", "PRAI", "MESS", "THER", "FRUC", "COMP",
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	return a - b*floorDiv(a, b)
}

func itoa(i int) string { return strconv.Itoa(i) }

// western month lengths, February handled by the caller
var westernMonthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// westernDayOfYearOffset is the shared Gregorian/Julian month offset term.
func westernDayOfYearOffset(month int, leap bool) int {
	offset := floorDiv(367*month-362, 12)
	switch {
	case month <= 2:
	case leap:
		offset--
	default:
		offset -= 2
	}
	return offset
}

type gregorianRules struct{}

func (gregorianRules) isLeapYear(year int) bool {
	return mod(year, 4) == 0 && (mod(year, 100) != 0 || mod(year, 400) == 0)
}

func (gregorianRules) monthsInYear(int) int { return 12 }

func (g gregorianRules) daysInMonth(year, month int) int {
	if month == 2 && g.isLeapYear(year) {
		return 29
	}
	return westernMonthDays[month-1]
}

func (g gregorianRules) toFixed(year, month, day int) int {
	y := year - 1
	return 365*y + floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400) +
		westernDayOfYearOffset(month, g.isLeapYear(year)) + day
}

func (g gregorianRules) fromFixed(fixed int) (int, int, int) {
	d0 := fixed - 1
	n400 := floorDiv(d0, 146097)
	d1 := mod(d0, 146097)
	n100 := floorDiv(d1, 36524)
	d2 := mod(d1, 36524)
	n4 := floorDiv(d2, 1461)
	d3 := mod(d2, 1461)
	n1 := floorDiv(d3, 365)
	year := 400*n400 + 100*n100 + 4*n4 + n1
	if n100 != 4 && n1 != 4 {
		year++
	}

	priorDays := fixed - g.toFixed(year, 1, 1)
	correction := 0
	if fixed >= g.toFixed(year, 3, 1) {
		if g.isLeapYear(year) {
			correction = 1
		} else {
			correction = 2
		}
	}
	month := floorDiv(12*(priorDays+correction)+373, 367)
	day := fixed - g.toFixed(year, month, 1) + 1
	return year, month, day
}

// julianEpoch is the fixed day of 1 January 1 in the Julian calendar.
const julianEpoch = -1

type julianRules struct{}

func (julianRules) isLeapYear(year int) bool { return mod(year, 4) == 0 }

func (julianRules) monthsInYear(int) int { return 12 }

func (j julianRules) daysInMonth(year, month int) int {
	if month == 2 && j.isLeapYear(year) {
		return 29
	}
	return westernMonthDays[month-1]
}

func (j julianRules) toFixed(year, month, day int) int {
	y := year - 1
	return julianEpoch - 1 + 365*y + floorDiv(y, 4) +
		westernDayOfYearOffset(month, j.isLeapYear(year)) + day
}

func (j julianRules) fromFixed(fixed int) (int, int, int) {
	year := floorDiv(4*(fixed-julianEpoch)+1464, 1461)
	priorDays := fixed - j.toFixed(year, 1, 1)
	correction := 0
	if fixed >= j.toFixed(year, 3, 1) {
		if j.isLeapYear(year) {
			correction = 1
		} else {
			correction = 2
		}
	}
	month := floorDiv(12*(priorDays+correction)+373, 367)
	day := fixed - j.toFixed(year, month, 1) + 1
	return year, month, day
}

// hebrewEpoch is the fixed day of 1 Tishri AM 1.
const hebrewEpoch = -1373427

// Hebrew arithmetic works on the ecclesiastical month numbering (Nisan = 1,
// Tishri = 7, Adar II = 13); GEDCOM's civil numbering is mapped at the edges.
type hebrewRules struct{}

func hebrewCivilToEcclesiastical(month int) int {
	switch {
	case month <= 6:
		return month + 6
	case month == 7:
		return 13
	default:
		return month - 7
	}
}

func hebrewEcclesiasticalToCivil(month int) int {
	switch {
	case month >= 7 && month <= 12:
		return month - 6
	case month == 13:
		return 7
	default:
		return month + 7
	}
}

func (hebrewRules) isLeapYear(year int) bool { return mod(7*year+1, 19) < 7 }

func (h hebrewRules) monthsInYear(year int) int {
	if h.isLeapYear(year) {
		return 13
	}
	return 12
}

func hebrewElapsedDays(year int) int {
	monthsElapsed := floorDiv(235*year-234, 19)
	partsElapsed := 12084 + 13753*monthsElapsed
	days := 29*monthsElapsed + floorDiv(partsElapsed, 25920)
	if mod(3*(days+1), 7) < 3 {
		return days + 1
	}
	return days
}

func hebrewYearLengthCorrection(year int) int {
	ny0 := hebrewElapsedDays(year - 1)
	ny1 := hebrewElapsedDays(year)
	ny2 := hebrewElapsedDays(year + 1)
	switch {
	case ny2-ny1 == 356:
		return 2
	case ny1-ny0 == 382:
		return 1
	default:
		return 0
	}
}

func hebrewNewYear(year int) int {
	return hebrewEpoch + hebrewElapsedDays(year) + hebrewYearLengthCorrection(year)
}

func hebrewDaysInYear(year int) int {
	return hebrewNewYear(year+1) - hebrewNewYear(year)
}

// lastDayOfMonth uses ecclesiastical numbering.
func (h hebrewRules) lastDayOfMonth(year, month int) int {
	switch {
	case month == 13 && !h.isLeapYear(year):
		return 0
	case month == 2 || month == 4 || month == 6 || month == 10 || month == 13:
		return 29
	case month == 12 && !h.isLeapYear(year):
		return 29
	case month == 8 && mod(hebrewDaysInYear(year), 10) != 5:
		return 29
	case month == 9 && mod(hebrewDaysInYear(year), 10) == 3:
		return 29
	default:
		return 30
	}
}

func (h hebrewRules) lastMonth(year int) int {
	if h.isLeapYear(year) {
		return 13
	}
	return 12
}

func (h hebrewRules) daysInMonth(year, month int) int {
	return h.lastDayOfMonth(year, hebrewCivilToEcclesiastical(month))
}

func (h hebrewRules) fixedEcclesiastical(year, month, day int) int {
	fixed := hebrewNewYear(year) + day - 1
	if month < 7 {
		for m := 7; m <= h.lastMonth(year); m++ {
			fixed += h.lastDayOfMonth(year, m)
		}
		for m := 1; m < month; m++ {
			fixed += h.lastDayOfMonth(year, m)
		}
	} else {
		for m := 7; m < month; m++ {
			fixed += h.lastDayOfMonth(year, m)
		}
	}
	return fixed
}

func (h hebrewRules) toFixed(year, month, day int) int {
	return h.fixedEcclesiastical(year, hebrewCivilToEcclesiastical(month), day)
}

func (h hebrewRules) fromFixed(fixed int) (int, int, int) {
	approx := floorDiv((fixed-hebrewEpoch)*98496, 35975351) + 1
	year := approx - 1
	for hebrewNewYear(year+1) <= fixed {
		year++
	}
	for hebrewNewYear(year) > fixed {
		year--
	}

	month := 1
	if fixed < h.fixedEcclesiastical(year, 1, 1) {
		month = 7
	}
	for fixed > h.fixedEcclesiastical(year, month, h.lastDayOfMonth(year, month)) {
		month++
		if month == 13 && !h.isLeapYear(year) {
			month = 1
		}
	}
	day := fixed - h.fixedEcclesiastical(year, month, 1) + 1
	return year, hebrewEcclesiasticalToCivil(month), day
}

// frenchEpoch is the fixed day of 1 Vendémiaire I (22 September 1792).
var frenchEpoch = gregorianRules{}.toFixed(1792, 9, 22)

// frenchRules uses the sextile pattern of the years the calendar was in
// force (III, VII, XI are leap) and continues it every fourth year.
type frenchRules struct{}

func (frenchRules) isLeapYear(year int) bool { return mod(year+1, 4) == 0 }

func (frenchRules) monthsInYear(int) int { return 13 }

func (f frenchRules) daysInMonth(year, month int) int {
	if month < 13 {
		return 30
	}
	if f.isLeapYear(year) {
		return 6
	}
	return 5
}

func (frenchRules) toFixed(year, month, day int) int {
	return frenchEpoch - 1 + 365*(year-1) + floorDiv(year, 4) + 30*(month-1) + day
}

func (f frenchRules) fromFixed(fixed int) (int, int, int) {
	year := floorDiv(4*(fixed-frenchEpoch), 1461) + 1
	for f.toFixed(year+1, 1, 1) <= fixed {
		year++
	}
	for f.toFixed(year, 1, 1) > fixed {
		year--
	}
	dayOfYear := fixed - f.toFixed(year, 1, 1)
	return year, dayOfYear/30 + 1, dayOfYear%30 + 1
}

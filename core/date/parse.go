package date

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/EasyTree/core/calendar"
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

// dateGrammar is the participle grammar for GEDCOM date values.
// Examples: "1982", "MAR 1982", "4 MAR 1982", "ABT 1900", "BET 1982 AND 1984",
// "FROM 1900 TO 1910", "INT 1900 (turn of the century)", "@#DJULIAN@ 1700".
//
//nolint:govet // participle grammar tags are not standard struct tags
type dateGrammar struct {
	Between *rangeExpr  `  "BET" @@`
	From    *periodExpr `| "FROM" @@`
	To      *pointExpr  `| "TO" @@`
	Approx  *approxExpr `| @@`
	Interp  *interpExpr `| "INT" @@`
	Phrase  *string     `| @Phrase`
	Point   *pointExpr  `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type rangeExpr struct {
	Start *pointExpr `@@`
	End   *pointExpr `"AND" @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type periodExpr struct {
	Start *pointExpr `@@`
	End   *pointExpr `( "TO" @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type approxExpr struct {
	Qualifier string     `@( "ABT" | "CAL" | "EST" | "BEF" | "AFT" )`
	Point     *pointExpr `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type interpExpr struct {
	Point  *pointExpr `@@`
	Phrase *string    `@Phrase?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pointExpr struct {
	Calendar string      `@Escape?`
	Parts    []*datePart `@@+`
	Era      string      `@Era?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type datePart struct {
	Number  *int    `  @Int`
	Dual    *string `| "/" @Int`
	Month   string  `| @Ident`
	Quarter string  `| @Quarter`
}

// dateLexer tokenizes date text. Keywords, quarter idioms and eras are
// matched before plain identifiers so month names never shadow them.
var dateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Escape", Pattern: `@#D[A-Za-z ]+@`},
	{Name: "Phrase", Pattern: `\([^)]*\)`},
	{Name: "Quarter", Pattern: `(?i)(?:jan[- ]feb[- ]mar|apr[- ]may[- ]jun|jul[- ]aug[- ]sep|oct[- ]nov[- ]dec)\b`},
	{Name: "Era", Pattern: `(?i)(?:b\.c\.|bce?\b)`},
	{Name: "Keyword", Pattern: `(?i)(?:abt|cal|est|bef|aft|bet|and|from|to|int)\b`},
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[/]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var dateParser = participle.MustBuild[dateGrammar](
	participle.Lexer(dateLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
)

// quarterMiddle maps the first month of a quarter idiom to the month the
// quarter is anchored on.
var quarterMiddle = map[string]string{
	"jan": "FEB",
	"apr": "MAY",
	"jul": "AUG",
	"oct": "NOV",
}

// ParseDate parses GEDCOM date text into one of the Date variants.
func ParseDate(text string) (Date, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewParse("date", text, "empty date")
	}
	parsed, err := dateParser.ParseString("", text)
	if err != nil {
		return nil, apperrors.NewParse("date", text, err.Error())
	}
	d, err := parsed.build()
	if err != nil {
		perr := apperrors.NewParse("date", text, "invalid date value")
		perr.Err = err
		return nil, perr
	}
	return d, nil
}

// TryParse is ParseDate without the error: it reports false for text it
// does not recognise.
func TryParse(text string) (Date, bool) {
	d, err := ParseDate(text)
	if err != nil {
		return nil, false
	}
	return d, true
}

// MustParse is ParseDate for literals known to be valid. It panics on error.
func MustParse(text string) Date {
	d, err := ParseDate(text)
	if err != nil {
		panic(err)
	}
	return d
}

func (g *dateGrammar) build() (Date, error) {
	switch {
	case g.Between != nil:
		start, err := g.Between.Start.exact()
		if err != nil {
			return nil, err
		}
		end, err := g.Between.End.exact()
		if err != nil {
			return nil, err
		}
		return NewBetween(start, end), nil
	case g.From != nil:
		start, err := g.From.Start.exact()
		if err != nil {
			return nil, err
		}
		if g.From.End == nil {
			return NewPeriod(&start, nil), nil
		}
		end, err := g.From.End.exact()
		if err != nil {
			return nil, err
		}
		return NewPeriod(&start, &end), nil
	case g.To != nil:
		end, err := g.To.exact()
		if err != nil {
			return nil, err
		}
		return NewPeriod(nil, &end), nil
	case g.Approx != nil:
		point, err := g.Approx.Point.exact()
		if err != nil {
			return nil, err
		}
		return Approximate{Qualifier: Qualifier(strings.ToUpper(g.Approx.Qualifier)), Date: point}, nil
	case g.Interp != nil:
		point, err := g.Interp.Point.exact()
		if err != nil {
			return nil, err
		}
		p := Phrase{Interpreted: &point}
		if g.Interp.Phrase != nil {
			p.Text = unwrapPhrase(*g.Interp.Phrase)
		}
		return p, nil
	case g.Phrase != nil:
		return Phrase{Text: unwrapPhrase(*g.Phrase)}, nil
	case g.Point != nil:
		point, err := g.Point.exact()
		if err != nil {
			return nil, err
		}
		if g.Point.isQuarter() {
			return Approximate{Qualifier: About, Date: point}, nil
		}
		return point, nil
	}
	return nil, apperrors.NewValidation("date", "", "empty date expression")
}

func unwrapPhrase(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "("), ")"))
}

func (p *pointExpr) isQuarter() bool {
	for _, part := range p.Parts {
		if part.Quarter != "" {
			return true
		}
	}
	return false
}

// exact interprets the token parts of a date point. Accepted shapes are
// year, month year, day month year and quarter year; dual years ("1750/51")
// keep the first year.
func (p *pointExpr) exact() (Exact, error) {
	cal := calendar.Gregorian()
	if p.Calendar != "" {
		c, err := calendar.ForEscape(p.Calendar)
		if err != nil {
			return Exact{}, err
		}
		cal = c
	}

	var shape strings.Builder
	var nums []int
	var monthName string
	for _, part := range p.Parts {
		switch {
		case part.Number != nil:
			shape.WriteByte('N')
			nums = append(nums, *part.Number)
		case part.Dual != nil:
			// second half of a dual year is informational only
		case part.Month != "":
			shape.WriteByte('M')
			monthName = part.Month
		case part.Quarter != "":
			shape.WriteByte('M')
			monthName = quarterMiddle[strings.ToLower(part.Quarter[:3])]
		}
	}

	var year, month, day int
	switch shape.String() {
	case "N":
		year = nums[0]
	case "MN":
		year = nums[0]
	case "NMN":
		day, year = nums[0], nums[1]
	default:
		return Exact{}, apperrors.NewValidation("date", shape.String(), "unsupported date shape")
	}
	if monthName != "" {
		m, ok := cal.MonthFromName(monthName)
		if !ok {
			return Exact{}, apperrors.NewValidation("month", monthName, "not a month of "+cal.ID())
		}
		month = m
	}
	if p.Era != "" {
		if year < 1 {
			return Exact{}, apperrors.NewValidation("year", p.Era, "B.C. year must be positive")
		}
		year = 1 - year
	}

	if month != 0 {
		checkDay := day
		if checkDay == 0 {
			checkDay = 1
		}
		if err := cal.Validate(year, month, checkDay); err != nil {
			return Exact{}, err
		}
	}
	return NewExact(cal, year, month, day)
}

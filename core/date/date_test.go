package date

import (
	"errors"
	"testing"

	"github.com/FocuswithJustin/EasyTree/core/calendar"
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

func TestCreateToGedcom(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day int
		want             string
	}{
		{"year only", 1982, 0, 0, "1982"},
		{"month and year", 1982, 3, 0, "MAR 1982"},
		{"full date", 1982, 3, 4, "4 MAR 1982"},
		{"december", 1899, 12, 31, "31 DEC 1899"},
		{"before common era", -43, 3, 15, "15 MAR 44 B.C."},
		{"year one", 1, 0, 0, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Create(tt.year, tt.month, tt.day)
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			got, err := d.ToGedcom()
			if err != nil {
				t.Fatalf("ToGedcom failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToGedcom() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToGedcomRejectsMonthOutOfRange(t *testing.T) {
	for _, month := range []int{13, 20, calendar.MaxMonth} {
		d, err := Create(1982, month, 1)
		if err != nil {
			t.Fatalf("Create(1982, %d, 1) failed: %v", month, err)
		}
		if _, err := d.ToGedcom(); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("ToGedcom() with month %d error = %v, want ErrInvalidInput", month, err)
		}
	}
}

func TestCreateRejectsDayWithoutMonth(t *testing.T) {
	if _, err := Create(1982, 0, 5); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Create(1982, 0, 5) error = %v, want ErrInvalidInput", err)
	}
	if _, err := Create(calendar.MaxYear+1, 1, 1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Create(overflow) error = %v, want ErrInvalidInput", err)
	}
}

func TestNewSimple(t *testing.T) {
	tests := []struct {
		text    string
		wantErr bool
	}{
		{"1982", false},
		{"0800", false},
		{"982", true},
		{"19822", true},
		{"19a2", true},
		{"", true},
		{" 982", true},
	}
	for _, tt := range tests {
		s, err := NewSimple(tt.text)
		if tt.wantErr {
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("NewSimple(%q) error = %v, want ErrInvalidInput", tt.text, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewSimple(%q) failed: %v", tt.text, err)
			continue
		}
		if got, _ := s.ToGedcom(); got != tt.text {
			t.Errorf("ToGedcom() = %q, want %q", got, tt.text)
		}
	}
}

func TestEqualityIsPerKind(t *testing.T) {
	exact := MustCreate(1982, 0, 0)
	simple, err := NewSimple("1982")
	if err != nil {
		t.Fatal(err)
	}
	et, _ := exact.ToGedcom()
	st, _ := simple.ToGedcom()
	if et != st {
		t.Fatalf("renderings differ: %q vs %q", et, st)
	}
	if exact.Equal(simple) || simple.Equal(exact) {
		t.Error("Exact and Simple with the same text compared equal")
	}
	if !exact.Equal(MustCreate(1982, 0, 0)) {
		t.Error("equal Exact values compared unequal")
	}
	if exact.Equal(MustCreate(1982, 1, 0)) {
		t.Error("different precision compared equal")
	}
	approx := Approximate{Qualifier: About, Date: exact}
	if approx.Equal(exact) || exact.Equal(approx) {
		t.Error("Approximate compared equal to its inner date")
	}
	julian, _ := NewExact(calendar.Julian(), 1982, 0, 0)
	if julian.Equal(exact) {
		t.Error("dates in different calendars compared equal")
	}
}

func TestRangeSpanAndKind(t *testing.T) {
	a := MustCreate(1900, 0, 0)
	b := MustCreate(1910, 0, 0)
	between := NewBetween(a, b)
	period := NewPeriod(&a, &b)

	var d Date = between
	if d.Kind() != KindRange || period.Kind() != KindRange {
		t.Errorf("Kind() = %v, %v, want range", d.Kind(), period.Kind())
	}
	if between.Span != Between || period.Span != Period {
		t.Errorf("Span = %v, %v", between.Span, period.Span)
	}
	if between.Equal(period) {
		t.Error("BET and FROM/TO over the same ends compared equal")
	}
	if !between.Equal(NewBetween(a, b)) {
		t.Error("equal ranges compared unequal")
	}
	if _, err := (Range{Span: RangeKind(7), Start: &a}).ToGedcom(); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("unknown span error = %v, want ErrInvalidInput", err)
	}
}

func TestNonGregorianRendering(t *testing.T) {
	d, err := NewExact(calendar.Julian(), 1731, 2, 11)
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.ToGedcom()
	if err != nil {
		t.Fatal(err)
	}
	if want := "@#DJULIAN@ 11 FEB 1731"; got != want {
		t.Errorf("ToGedcom() = %q, want %q", got, want)
	}
	h, _ := NewExact(calendar.Hebrew(), 5784, 13, 0)
	if got, _ := h.ToGedcom(); got != "@#DHEBREW@ ELL 5784" {
		t.Errorf("Hebrew ToGedcom() = %q", got)
	}
}

func TestCompositeRendering(t *testing.T) {
	start := MustCreate(1900, 0, 0)
	end := MustCreate(1910, 6, 0)
	tests := []struct {
		name string
		date Date
		want string
	}{
		{"about", Approximate{Qualifier: About, Date: start}, "ABT 1900"},
		{"calculated", Approximate{Qualifier: Calculated, Date: end}, "CAL JUN 1910"},
		{"between", NewBetween(start, end), "BET 1900 AND JUN 1910"},
		{"from to", NewPeriod(&start, &end), "FROM 1900 TO JUN 1910"},
		{"from", NewPeriod(&start, nil), "FROM 1900"},
		{"to", NewPeriod(nil, &end), "TO JUN 1910"},
		{"phrase", Phrase{Text: "during the war"}, "(during the war)"},
		{"interpreted", Phrase{Text: "turn of the century", Interpreted: &start}, "INT 1900 (turn of the century)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.date.ToGedcom()
			if err != nil {
				t.Fatalf("ToGedcom failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToGedcom() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompositeRenderingErrors(t *testing.T) {
	bad := MustCreate(1900, 14, 0)
	tests := []struct {
		name string
		date Date
	}{
		{"unknown qualifier", Approximate{Qualifier: "NEAR", Date: MustCreate(1900, 0, 0)}},
		{"bad inner month", Approximate{Qualifier: About, Date: bad}},
		{"open between", Range{Span: Between, Start: &bad}},
		{"empty period", Range{Span: Period}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.date.ToGedcom(); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("ToGedcom() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestAnchor(t *testing.T) {
	a := MustCreate(1982, 0, 0)
	b := MustCreate(1984, 0, 0)
	tests := []struct {
		name string
		date Date
		want Exact
		ok   bool
	}{
		{"exact", a, a, true},
		{"approximate", Approximate{Qualifier: Before, Date: b}, b, true},
		{"between", NewBetween(a, b), a, true},
		{"to only", NewPeriod(nil, &b), b, true},
		{"interpreted", Phrase{Text: "x", Interpreted: &a}, a, true},
		{"phrase", Phrase{Text: "x"}, Exact{}, false},
		{"simple", Simple{year: "1982"}, Exact{}, false},
	}
	for _, tt := range tests {
		got, ok := Anchor(tt.date)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("%s: Anchor() = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCompareAcrossCalendars(t *testing.T) {
	g := MustCreate(1582, 10, 15)
	j, err := NewExact(calendar.Julian(), 1582, 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if c, err := g.Compare(j); err != nil || c != 0 {
		t.Errorf("Compare(reform day) = %d, %v, want 0", c, err)
	}
	later := MustCreate(1582, 10, 16)
	if c, _ := later.Compare(j); c != 1 {
		t.Errorf("Compare(later) = %d, want 1", c)
	}
	if c, err := MustCreate(1900, 0, 0).Compare(MustCreate(1900, 5, 0)); err != nil || c != -1 {
		t.Errorf("Compare(partial) = %d, %v, want -1", c, err)
	}
	jy, _ := NewExact(calendar.Julian(), 1900, 0, 0)
	if _, err := MustCreate(1900, 0, 0).Compare(jy); !errors.Is(err, apperrors.ErrUnsupported) {
		t.Errorf("Compare(partial, other calendar) error = %v, want ErrUnsupported", err)
	}
}

func TestIn(t *testing.T) {
	got, err := MustCreate(1582, 10, 15).In(calendar.Julian())
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 1582 || got.Month() != 10 || got.Day() != 5 || got.Calendar() != calendar.Julian() {
		t.Errorf("In(Julian) = %v", got)
	}
	if _, err := MustCreate(1582, 10, 0).In(calendar.Julian()); !errors.Is(err, apperrors.ErrUnsupported) {
		t.Errorf("In() on partial date error = %v, want ErrUnsupported", err)
	}
}

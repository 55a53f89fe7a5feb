package family

import (
	"errors"
	"testing"

	"github.com/FocuswithJustin/EasyTree/core/calendar"
	"github.com/FocuswithJustin/EasyTree/core/date"
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

func TestNameRendering(t *testing.T) {
	tests := []struct {
		name   Name
		full   string
		gedcom string
	}{
		{Name{Given: "John", Surname: "Doe"}, "John Doe", "John /Doe/"},
		{Name{Prefix: "Dr", Given: "Jan", SurnamePrefix: "van", Surname: "Dijk", Suffix: "Jr"}, "Dr Jan van Dijk Jr", "Dr Jan /van Dijk/ Jr"},
		{Name{Given: "Cher"}, "Cher", "Cher //"},
		{Name{}, "", "//"},
	}
	for _, tt := range tests {
		if got := tt.name.Full(); got != tt.full {
			t.Errorf("Full() = %q, want %q", got, tt.full)
		}
		if got := tt.name.Gedcom(); got != tt.gedcom {
			t.Errorf("Gedcom() = %q, want %q", got, tt.gedcom)
		}
	}
	if !(Name{}).IsEmpty() || (Name{Suffix: "Sr"}).IsEmpty() {
		t.Error("IsEmpty() wrong")
	}
}

func TestRestrictionFromGedcom(t *testing.T) {
	tests := []struct {
		value string
		want  Restriction
	}{
		{"locked", RestrictionLocked},
		{"LOCKED", RestrictionLocked},
		{"privacy", RestrictionPrivate},
		{"confidential", RestrictionPrivate},
		{"", RestrictionNone},
		{"whatever", RestrictionNone},
	}
	for _, tt := range tests {
		if got := RestrictionFromGedcom(tt.value); got != tt.want {
			t.Errorf("RestrictionFromGedcom(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
	if RestrictionFromGedcom(RestrictionPrivate.GedcomResn()) != RestrictionPrivate {
		t.Error("privacy does not round trip")
	}
}

func TestFactTypeTags(t *testing.T) {
	for _, ft := range append(PersonFactTypes, Marriage, Divorce) {
		got, ok := FactTypeFromTag(ft.GedcomTag())
		if !ok || got != ft {
			t.Errorf("FactTypeFromTag(%q) = %v, %v, want %v", ft.GedcomTag(), got, ok, ft)
		}
	}
	if _, ok := FactTypeFromTag("CHR"); ok {
		t.Error("FactTypeFromTag(CHR) should fail")
	}
}

func TestPersonFactsAndAge(t *testing.T) {
	p := NewPerson("I1")
	if !p.Living {
		t.Error("new person should be living")
	}
	if _, ok := p.Age(2000, 1, 1); ok {
		t.Error("Age without birth should fail")
	}
	p.AddFact(Fact{Type: Birth, Date: date.NewWrapper(date.MustCreate(1900, 6, 15))})
	tests := []struct {
		y, m, d int
		want    int
	}{
		{2000, 6, 15, 100},
		{2000, 6, 14, 99},
		{2000, 7, 1, 100},
		{2000, 1, 1, 99},
	}
	for _, tt := range tests {
		if got, _ := p.Age(tt.y, tt.m, tt.d); got != tt.want {
			t.Errorf("Age(%d-%d-%d) = %d, want %d", tt.y, tt.m, tt.d, got, tt.want)
		}
	}
	if p.HasDeathEvidence() {
		t.Error("HasDeathEvidence() with birth only")
	}
	p.AddFact(Fact{Type: Burial})
	if !p.HasDeathEvidence() {
		t.Error("HasDeathEvidence() ignores burial")
	}

	julian, _ := date.NewExact(calendar.Julian(), 1700, 12, 31)
	q := NewPerson("I2")
	q.AddFact(Fact{Type: Birth, Date: date.NewWrapper(julian)})
	// 31 Dec 1700 Julian is 11 Jan 1701 Gregorian.
	if got, _ := q.Age(1801, 1, 10); got != 99 {
		t.Errorf("Age of Julian birth = %d, want 99", got)
	}
}

func TestGraphMirrors(t *testing.T) {
	g := NewGraph()
	if err := g.AddParentChild("P", "C", Adopted); err != nil {
		t.Fatal(err)
	}
	if err := g.AddSpouse("P", "Q", Current, nil); err != nil {
		t.Fatal(err)
	}
	if err := g.AddSibling("C", "D"); err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		from string
		kind RelationshipType
		to   string
		mod  Modifier
	}{
		{"C", Parent, "P", Adopted},
		{"P", Child, "C", Adopted},
		{"P", Spouse, "Q", Current},
		{"Q", Spouse, "P", Current},
		{"C", Sibling, "D", Natural},
		{"D", Sibling, "C", Natural},
	}
	for _, c := range checks {
		r, ok := g.Relationship(c.from, c.kind, c.to)
		if !ok {
			t.Errorf("%s has no %v relationship to %s", c.from, c.kind, c.to)
			continue
		}
		if r.Modifier != c.mod {
			t.Errorf("%s -%v-> %s modifier = %v, want %v", c.from, c.kind, c.to, r.Modifier, c.mod)
		}
	}
	if err := g.CheckMirrors(); err != nil {
		t.Errorf("CheckMirrors() = %v", err)
	}

	ps, _ := g.Relationship("P", Spouse, "Q")
	qs, _ := g.Relationship("Q", Spouse, "P")
	if ps.Union == nil || ps.Union != qs.Union {
		t.Error("spouses do not share one union")
	}
}

func TestGraphRejectsBadEdges(t *testing.T) {
	g := NewGraph()
	if err := g.AddSibling("A", "A"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("self sibling error = %v", err)
	}
	if err := g.AddSpouse("A", "B", Natural, nil); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("natural spouse error = %v", err)
	}
	if err := g.AddParentChild("A", "B", Former); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("former parent error = %v", err)
	}
}

func TestGraphAddIsIdempotent(t *testing.T) {
	g := NewGraph()
	_ = g.AddSibling("A", "B")
	_ = g.AddSibling("B", "A")
	_ = g.AddParentChild("P", "A", Natural)
	_ = g.AddParentChild("P", "A", Foster)
	if n := len(g.Relationships("A")); n != 2 {
		t.Errorf("A has %d relationships, want 2", n)
	}
	if r, _ := g.Relationship("A", Parent, "P"); r.Modifier != Natural {
		t.Errorf("second add changed modifier to %v", r.Modifier)
	}
}

func TestGraphRename(t *testing.T) {
	g := NewGraph()
	_ = g.AddParentChild("P", "C", Natural)
	_ = g.AddSibling("C", "D")
	if err := g.Rename("C", "new-c"); err != nil {
		t.Fatal(err)
	}
	if g.Has("C") {
		t.Error("old id still present")
	}
	if got := g.Related("P", Child); len(got) != 1 || got[0] != "new-c" {
		t.Errorf("P children = %v", got)
	}
	if got := g.Related("D", Sibling); len(got) != 1 || got[0] != "new-c" {
		t.Errorf("D siblings = %v", got)
	}
	if got := g.Related("new-c", Parent); len(got) != 1 || got[0] != "P" {
		t.Errorf("new-c parents = %v", got)
	}
	if err := g.Rename("missing", "x"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Rename(missing) error = %v", err)
	}
	if err := g.Rename("P", "D"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Rename onto existing id error = %v", err)
	}
	if err := g.CheckMirrors(); err != nil {
		t.Errorf("CheckMirrors() after rename = %v", err)
	}
}

func TestPeople(t *testing.T) {
	people := NewPeople()
	for _, id := range []string{"I1", "I2"} {
		if err := people.Add(NewPerson(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := people.Add(NewPerson("I1")); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("duplicate Add error = %v", err)
	}
	if err := people.Add(NewPerson("")); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("empty id Add error = %v", err)
	}
	if people.Current() != nil {
		t.Error("Current() set before SetCurrent")
	}
	if err := people.SetCurrent("I1"); err != nil {
		t.Fatal(err)
	}
	_ = people.Graph().AddSpouse("I1", "I2", Current, nil)

	if err := people.Rename("I1", "abc"); err != nil {
		t.Fatal(err)
	}
	if people.Get("I1") != nil || people.Get("abc") == nil || people.Get("abc").ID != "abc" {
		t.Error("Rename did not move the person")
	}
	if people.Current().ID != "abc" {
		t.Errorf("Current() = %q after rename", people.Current().ID)
	}
	if got := people.Relationships("I2"); len(got) != 1 || got[0].PersonID != "abc" {
		t.Errorf("I2 relationships = %+v", got)
	}
	if err := people.SetCurrent("nope"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("SetCurrent(nope) error = %v", err)
	}

	people.Clear()
	if people.Len() != 0 || people.Graph().Len() != 0 || people.Current() != nil {
		t.Error("Clear() left state behind")
	}
}

func TestTreeLookups(t *testing.T) {
	tree := NewTree()
	tree.Sources = append(tree.Sources, &Source{ID: "S1", RepositoryID: "R1"})
	tree.Repositories = append(tree.Repositories, &Repository{ID: "R1", Name: "Archive"})
	if tree.Source("S1") == nil || tree.Source("S2") != nil {
		t.Error("Source lookup wrong")
	}
	if r := tree.Repository(tree.Source("S1").RepositoryID); r == nil || r.Name != "Archive" {
		t.Error("Repository lookup wrong")
	}
	tree.Clear()
	if len(tree.Sources) != 0 || len(tree.Repositories) != 0 {
		t.Error("Clear() left sources behind")
	}
}

func TestZeroTreeClear(t *testing.T) {
	var tree Tree
	tree.Sources = []*Source{{ID: "S1"}}
	tree.Clear()
	if tree.People == nil || tree.People.Len() != 0 {
		t.Fatalf("Clear() left People = %v", tree.People)
	}
	if len(tree.Sources) != 0 {
		t.Error("Clear() left sources behind")
	}
	if err := tree.People.Add(NewPerson("p1")); err != nil {
		t.Errorf("Add() after Clear() error = %v", err)
	}
}

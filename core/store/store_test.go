package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FocuswithJustin/EasyTree/core/date"
	"github.com/FocuswithJustin/EasyTree/core/family"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "tree.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleTree is a couple with one natural and one adopted child, a
// source held in a repository and a divorced second marriage.
func sampleTree(t *testing.T) *family.Tree {
	t.Helper()
	tree := family.NewTree()
	tree.Repositories = []*family.Repository{{ID: "R1", Name: "County Archive", Address: "1 Main St\nSpringfield", Note: "closed mondays"}}
	tree.Sources = []*family.Source{
		{ID: "S1", Title: "Parish register", Author: "St Mary", RepositoryID: "R1"},
		{ID: "S2", Title: "Family bible"},
	}

	john := family.NewPerson("p-john")
	john.Name = family.Name{Prefix: "Dr", Given: "John", Surname: "Doe"}
	john.Living = false
	john.Facts = []family.Fact{
		{Type: family.Birth, Date: date.NewWrapper(date.MustCreate(1950, 3, 4)), Place: "Springfield",
			Citation: family.Citation{SourceID: "S1", Page: "p. 12", Note: "baptism entry", Link: "https://example.org/reg/12"}},
		{Type: family.Death, Date: date.NewWrapper(date.MustParse("ABT 2010"))},
		{Type: family.Occupation, Value: "Carpenter", Descriptor: "ABT ", Date: date.NewWrapper(date.MustCreate(1975, 0, 0))},
	}
	jane := family.NewPerson("p-jane")
	jane.Name = family.Name{Given: "Jane", SurnamePrefix: "van", Surname: "Dijk"}
	jane.Gender = family.Female
	jane.Restriction = family.RestrictionPrivate
	jane.Note = "line one\nline two"
	ann := family.NewPerson("p-ann")
	ann.Gender = family.Female
	ann.Name = family.Name{Given: "Ann", Surname: "Doe"}
	annBirth, err := date.NewSimple("1974")
	if err != nil {
		t.Fatal(err)
	}
	ann.Facts = []family.Fact{{Type: family.Birth, Date: date.NewWrapper(annBirth)}}
	bob := family.NewPerson("p-bob")
	bob.Name = family.Name{Given: "Bob", Surname: "Doe"}
	mary := family.NewPerson("p-mary")
	mary.Gender = family.Female
	mary.Name = family.Name{Given: "Mary", Surname: "Roe"}
	mary.Facts = []family.Fact{{Type: family.Birth, Date: date.NewWrapper(date.MustParse("BET 1940 AND 1945"))}}

	for _, p := range []*family.Person{john, jane, ann, bob, mary} {
		if err := tree.People.Add(p); err != nil {
			t.Fatal(err)
		}
	}

	g := tree.People.Graph()
	marriage := family.Fact{Type: family.Marriage, Date: date.NewWrapper(date.MustCreate(1972, 6, 1)), Place: "Springfield"}
	must(t, g.AddSpouse("p-john", "p-jane", family.Current, &family.Union{Marriage: &marriage}))
	first := family.Fact{Type: family.Marriage, Date: date.NewWrapper(date.MustCreate(1965, 0, 0))}
	div := family.Fact{Type: family.Divorce, Date: date.NewWrapper(date.MustCreate(1969, 0, 0))}
	must(t, g.AddSpouse("p-john", "p-mary", family.Former, &family.Union{Marriage: &first, Divorce: &div}))
	must(t, g.AddParentChild("p-john", "p-ann", family.Natural))
	must(t, g.AddParentChild("p-jane", "p-ann", family.Natural))
	must(t, g.AddParentChild("p-john", "p-bob", family.Adopted))
	must(t, g.AddParentChild("p-jane", "p-bob", family.Foster))
	must(t, g.AddSibling("p-ann", "p-bob"))
	must(t, tree.People.SetCurrent("p-jane"))
	return tree
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	tree := sampleTree(t)

	if _, err := s.Save(ctx, tree, Provenance{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.People.Len() != tree.People.Len() {
		t.Fatalf("loaded %d people, want %d", got.People.Len(), tree.People.Len())
	}
	for i, want := range tree.People.All() {
		p := got.People.All()[i]
		if p.ID != want.ID {
			t.Fatalf("person %d id = %s, want %s", i, p.ID, want.ID)
		}
		if p.Name != want.Name || p.Gender != want.Gender || p.Living != want.Living ||
			p.Restriction != want.Restriction || p.Note != want.Note {
			t.Errorf("person %s = %+v, want %+v", p.ID, p, want)
		}
		if len(p.Facts) != len(want.Facts) {
			t.Fatalf("person %s has %d facts, want %d", p.ID, len(p.Facts), len(want.Facts))
		}
		for j := range want.Facts {
			if !p.Facts[j].Equal(want.Facts[j]) {
				t.Errorf("person %s fact %d = %+v, want %+v", p.ID, j, p.Facts[j], want.Facts[j])
			}
		}
	}

	if cur := got.People.Current(); cur == nil || cur.ID != "p-jane" {
		t.Errorf("Current() = %v, want p-jane", cur)
	}
	if len(got.Sources) != 2 || *got.Sources[0] != *tree.Sources[0] || *got.Sources[1] != *tree.Sources[1] {
		t.Errorf("sources = %+v", got.Sources)
	}
	if len(got.Repositories) != 1 || *got.Repositories[0] != *tree.Repositories[0] {
		t.Errorf("repositories = %+v", got.Repositories)
	}

	g := got.People.Graph()
	if err := g.CheckMirrors(); err != nil {
		t.Errorf("CheckMirrors() = %v", err)
	}
	for _, id := range tree.People.Graph().IDs() {
		want := tree.People.Relationships(id)
		have := got.People.Relationships(id)
		if len(have) != len(want) {
			t.Errorf("%s has %d relationships, want %d", id, len(have), len(want))
		}
	}

	rel, ok := g.Relationship("p-bob", family.Parent, "p-jane")
	if !ok || rel.Modifier != family.Foster {
		t.Errorf("bob -> jane parent = %+v, %v; want foster", rel, ok)
	}
	if _, ok := g.Relationship("p-ann", family.Sibling, "p-bob"); !ok {
		t.Error("ann and bob are no longer siblings")
	}

	wed, ok := g.Relationship("p-jane", family.Spouse, "p-john")
	if !ok || wed.Modifier != family.Current || wed.Union == nil || wed.Union.Marriage == nil {
		t.Fatalf("jane spouse = %+v, %v", wed, ok)
	}
	if wed.Union.Marriage.Place != "Springfield" {
		t.Errorf("marriage place = %q", wed.Union.Marriage.Place)
	}
	mirror, _ := g.Relationship("p-john", family.Spouse, "p-jane")
	if mirror.Union != wed.Union {
		t.Error("spouses do not share one union after load")
	}
	ex, ok := g.Relationship("p-mary", family.Spouse, "p-john")
	if !ok || ex.Modifier != family.Former || ex.Union == nil || ex.Union.Divorce == nil {
		t.Fatalf("mary spouse = %+v, %v", ex, ok)
	}
	if !ex.Union.Divorce.Date.Equal(date.NewWrapper(date.MustCreate(1969, 0, 0))) {
		t.Errorf("divorce date = %v", ex.Union.Divorce.Date)
	}
}

func TestSimpleDateKeepsKind(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if _, err := s.Save(ctx, sampleTree(t), Provenance{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ann := got.People.Get("p-ann")
	if ann == nil {
		t.Fatal("p-ann missing after Load")
	}
	birth := ann.Fact(family.Birth)
	if birth == nil || birth.Date.IsEmpty() {
		t.Fatal("p-ann lost the birth date")
	}
	if k := birth.Date.Date().Kind(); k != date.KindSimple {
		t.Errorf("birth date kind = %v, want simple", k)
	}
	if got := birth.Date.String(); got != "1974" {
		t.Errorf("birth date = %q, want 1974", got)
	}
}

func TestSaveReplacesTree(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if _, err := s.Save(ctx, sampleTree(t), Provenance{}); err != nil {
		t.Fatal(err)
	}

	small := family.NewTree()
	must(t, small.People.Add(family.NewPerson("only")))
	if _, err := s.Save(ctx, small, Provenance{}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.People.Len() != 1 || got.People.Get("only") == nil {
		t.Errorf("people after replace = %d", got.People.Len())
	}
	if len(got.Sources) != 0 || len(got.Repositories) != 0 {
		t.Errorf("stale sources or repositories survived: %d, %d", len(got.Sources), len(got.Repositories))
	}
	if got.People.Current() != nil {
		t.Error("stale current person survived")
	}
}

func TestImportsRecorded(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	id, err := s.Save(ctx, sampleTree(t), Provenance{
		Path: "doe.ged", Fingerprint: "abc123", ImportedAt: at,
		People: 5, Sources: 2, Repositories: 1, Dropped: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Error("Save() returned no import id")
	}
	if _, err := s.Save(ctx, family.NewTree(), Provenance{Path: "empty.ged"}); err != nil {
		t.Fatal(err)
	}

	records, err := s.Imports(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d import records, want 2", len(records))
	}
	first := records[0]
	if first.ID != id || first.Path != "doe.ged" || first.Fingerprint != "abc123" ||
		!first.ImportedAt.Equal(at) || first.People != 5 || first.Dropped != 3 {
		t.Errorf("first record = %+v", first)
	}
	if records[1].Path != "empty.ged" || records[1].ImportedAt.IsZero() {
		t.Errorf("second record = %+v", records[1])
	}
}

func TestReopenKeepsTree(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tree.db")
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, sampleTree(t), Provenance{}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.People.Len() != 5 {
		t.Errorf("reopened tree has %d people", got.People.Len())
	}
}

func TestLoadEmpty(t *testing.T) {
	s := openTestStore(t)
	tree, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tree.People.Len() != 0 || tree.Sources != nil || tree.Repositories != nil {
		t.Errorf("empty database loaded %+v", tree)
	}
}

func TestSaveRejectsDanglingSource(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	tree := family.NewTree()
	p := family.NewPerson("p1")
	p.Facts = []family.Fact{{Type: family.Birth, Citation: family.Citation{SourceID: "S9"}}}
	must(t, tree.People.Add(p))

	if _, err := s.Save(ctx, tree, Provenance{}); err == nil {
		t.Fatal("Save() accepted a citation of a missing source")
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.People.Len() != 0 {
		t.Error("failed save left rows behind")
	}
}

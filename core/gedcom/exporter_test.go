package gedcom

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/FocuswithJustin/EasyTree/core/date"
	"github.com/FocuswithJustin/EasyTree/core/family"
)

func export(t *testing.T, tree *family.Tree) string {
	t.Helper()
	var buf bytes.Buffer
	if err := NewExporter().Export(&buf, tree); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	return buf.String()
}

func reimport(t *testing.T, text string) *family.Tree {
	t.Helper()
	tree := family.NewTree()
	stats, err := NewImporter(fixedOptions()).ImportReader(tree, strings.NewReader(text))
	if err != nil {
		t.Fatalf("ImportReader() error = %v", err)
	}
	if stats.Dropped != 0 {
		t.Errorf("exported text has %d unreadable lines:\n%s", stats.Dropped, text)
	}
	return tree
}

func TestExportHeader(t *testing.T) {
	text := export(t, family.NewTree())
	want := "0 HEAD\n1 SOUR EasyTree\n1 GEDC\n2 VERS 5.5\n2 FORM LINEAGE-LINKED\n1 CHAR ASCII\n0 TRLR\n"
	if text != want {
		t.Errorf("empty export =\n%s\nwant\n%s", text, want)
	}
}

func TestExportRoundTrip(t *testing.T) {
	orig := importSample(t)
	text := export(t, orig)
	got := reimport(t, text)

	if got.People.Len() != orig.People.Len() {
		t.Fatalf("round trip has %d people, want %d", got.People.Len(), orig.People.Len())
	}
	for _, want := range orig.People.All() {
		p := got.People.Get(want.ID)
		if p == nil {
			t.Errorf("person %s (%s) lost its id", want.ID, want.Name.Full())
			continue
		}
		if p.Name != want.Name || p.Gender != want.Gender || p.Restriction != want.Restriction ||
			p.Note != want.Note || p.Living != want.Living {
			t.Errorf("person %s = %+v, want %+v", want.ID, p, want)
		}
		if len(p.Facts) != len(want.Facts) {
			t.Errorf("person %s has %d facts, want %d", want.ID, len(p.Facts), len(want.Facts))
			continue
		}
		for i := range want.Facts {
			if !p.Facts[i].Equal(want.Facts[i]) {
				t.Errorf("person %s fact %d = %+v, want %+v", want.ID, i, p.Facts[i], want.Facts[i])
			}
		}

		wantRels := orig.People.Relationships(want.ID)
		for _, rel := range wantRels {
			back, ok := got.People.Graph().Relationship(want.ID, rel.Type, rel.PersonID)
			if !ok || back.Modifier != rel.Modifier {
				t.Errorf("%s %s of %s lost: %+v, %v", rel.PersonID, rel.Type, want.ID, back, ok)
			}
		}
		if n := len(got.People.Relationships(want.ID)); n != len(wantRels) {
			t.Errorf("%s has %d relationships, want %d", want.ID, n, len(wantRels))
		}
	}

	john := byGiven(t, got, "John")
	jane := byGiven(t, got, "Jane")
	wed, _ := got.People.Graph().Relationship(john.ID, family.Spouse, jane.ID)
	if wed.Union == nil || wed.Union.Marriage == nil ||
		!wed.Union.Marriage.Date.Equal(date.NewWrapper(date.MustCreate(1970, 0, 0))) {
		t.Errorf("marriage did not survive: %+v", wed.Union)
	}

	if len(got.Sources) != len(orig.Sources) || len(got.Repositories) != len(orig.Repositories) {
		t.Fatalf("sources/repositories = %d/%d", len(got.Sources), len(got.Repositories))
	}
	for i := range orig.Sources {
		if *got.Sources[i] != *orig.Sources[i] {
			t.Errorf("source %d = %+v, want %+v", i, got.Sources[i], orig.Sources[i])
		}
	}
	if *got.Repositories[0] != *orig.Repositories[0] {
		t.Errorf("repository = %+v, want %+v", got.Repositories[0], orig.Repositories[0])
	}
}

func TestExportNamePartsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		want family.Name
	}{
		{"all parts", family.Name{Prefix: "Dr", Given: "Jan", SurnamePrefix: "van", Surname: "Dijk", Suffix: "Jr"}},
		{"no given name", family.Name{Prefix: "Dr", SurnamePrefix: "van", Surname: "Dijk"}},
		{"surname only", family.Name{Surname: "Dijk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := family.NewTree()
			p := family.NewPerson("jan")
			p.Name = tt.want
			birth := family.Fact{Type: family.Birth, Date: date.NewWrapper(date.MustCreate(1901, 2, 3)), Place: "Leiden"}
			p.Facts = []family.Fact{birth}
			must(t, tree.People.Add(p))

			text := export(t, tree)
			if !strings.Contains(text, "1 BIRT\n2 DATE 3 FEB 1901\n") {
				t.Errorf("birth date not written in full:\n%s", text)
			}
			got := reimport(t, text)
			if got.People.Len() != 1 {
				t.Fatalf("round trip has %d people, want 1", got.People.Len())
			}
			back := got.People.All()[0]
			if back.Name != tt.want {
				t.Errorf("name = %+v, want %+v", back.Name, tt.want)
			}
			if len(back.Facts) != 1 || !back.Facts[0].Equal(birth) {
				t.Errorf("facts = %+v, want %+v", back.Facts, birth)
			}
		})
	}
}

func TestExportInlineCitation(t *testing.T) {
	tests := []struct {
		name     string
		citation family.Citation
		want     string
	}{
		{"page and note", family.Citation{Page: "folio 7", Note: "church book"},
			"1 BIRT\n2 SOUR\n3 PAGE folio 7\n3 NOTE church book\n"},
		{"page only", family.Citation{Page: "folio 7", Link: "https://example.org/7"},
			"1 BIRT\n2 SOUR\n3 PAGE folio 7\n3 _LINK https://example.org/7\n"},
		{"note only", family.Citation{Note: "church book"}, "1 BIRT\n2 NOTE church book\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := family.NewTree()
			p := family.NewPerson("ann")
			p.Name = family.Name{Given: "Ann"}
			birth := family.Fact{Type: family.Birth, Citation: tt.citation}
			p.Facts = []family.Fact{birth}
			must(t, tree.People.Add(p))

			text := export(t, tree)
			if !strings.Contains(text, tt.want) {
				t.Errorf("export missing %q:\n%s", tt.want, text)
			}
			back := reimport(t, text).People.All()[0]
			if len(back.Facts) != 1 || back.Facts[0].Citation != tt.citation {
				t.Errorf("citation = %+v, want %+v", back.Facts, tt.citation)
			}
		})
	}
}

func TestExportFamilies(t *testing.T) {
	tree := family.NewTree()
	add := func(id string, g family.Gender) {
		p := family.NewPerson(id)
		p.Name = family.Name{Given: id}
		p.Gender = g
		must(t, tree.People.Add(p))
	}
	add("wife", family.Female)
	add("husband", family.Male)
	add("kid", family.Male)
	add("mother", family.Female)
	add("orphan", family.Female)

	g := tree.People.Graph()
	must(t, g.AddSpouse("wife", "husband", family.Former, &family.Union{}))
	must(t, g.AddParentChild("wife", "kid", family.Natural))
	must(t, g.AddParentChild("husband", "kid", family.Foster))
	must(t, g.AddParentChild("mother", "orphan", family.Adopted))

	text := export(t, tree)
	wantFam1 := "0 @F1@ FAM\n1 HUSB @I2@\n1 WIFE @I1@\n1 CHIL @I3@\n2 _FREL Foster\n2 _MREL Natural\n1 DIV Y\n"
	if !strings.Contains(text, wantFam1) {
		t.Errorf("couple family missing, got:\n%s", text)
	}
	wantFam2 := "0 @F2@ FAM\n1 WIFE @I4@\n1 CHIL @I5@\n2 _MREL Adopted\n"
	if !strings.Contains(text, wantFam2) {
		t.Errorf("single parent family missing, got:\n%s", text)
	}
	if !strings.Contains(text, "0 @I3@ INDI\n1 NAME kid //\n2 GIVN kid\n1 SEX M\n1 FAMC @F1@\n") {
		t.Errorf("child record wrong:\n%s", text)
	}

	got := reimport(t, text)
	var wife, kid *family.Person
	for _, p := range got.People.All() {
		switch p.Name.Given {
		case "wife":
			wife = p
		case "kid":
			kid = p
		}
	}
	rel, ok := got.People.Graph().Relationship(wife.ID, family.Spouse, got.People.All()[1].ID)
	if !ok || rel.Modifier != family.Former {
		t.Errorf("former spouse = %+v, %v", rel, ok)
	}
	parents := got.People.Relationships(kid.ID)
	if len(parents) != 2 {
		t.Errorf("kid relationships = %+v", parents)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestExportEscapesAndContinues(t *testing.T) {
	long := strings.Repeat("word ", 90) // 450 bytes
	tree := family.NewTree()
	p := family.NewPerson("p1")
	p.Name = family.Name{Given: "Al", Surname: "X"}
	p.Note = "mail @home@\n" + long + "\n@N1@"
	must(t, tree.People.Add(p))

	text := export(t, tree)
	if !strings.Contains(text, "1 NOTE mail @@home@@\n2 CONT word word") {
		t.Errorf("at-signs not doubled:\n%s", text)
	}
	if !strings.Contains(text, "2 CONT @@N1@@\n") {
		t.Errorf("pointer-shaped text not escaped:\n%s", text)
	}
	if !strings.Contains(text, "\n2 CONC ") {
		t.Errorf("long line not split:\n%s", text)
	}
	for _, line := range strings.Split(text, "\n") {
		if len(line) > MaxLineValue+10 {
			t.Errorf("line of %d bytes written", len(line))
		}
	}

	got := reimport(t, text)
	if note := got.People.All()[0].Note; note != p.Note {
		t.Errorf("note round trip:\n%q\nwant\n%q", note, p.Note)
	}
}

func TestSplitValue(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		pieces int
	}{
		{"short", "abc", 1},
		{"exact", strings.Repeat("a", MaxLineValue), 1},
		{"no spaces", strings.Repeat("a", 450), 3},
		{"spaces", strings.Repeat("ab ", 150) + "c", 3},
		{"multibyte", strings.Repeat("é", 150), 2},
		{"space run", "a" + strings.Repeat(" ", 300) + "b", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pieces := splitValue(tt.in, MaxLineValue)
			if strings.Join(pieces, "") != tt.in {
				t.Fatal("pieces do not join back to the input")
			}
			if len(pieces) != tt.pieces {
				t.Errorf("got %d pieces, want %d", len(pieces), tt.pieces)
			}
			for i, piece := range pieces {
				if len(piece) > MaxLineValue || piece == "" {
					t.Errorf("piece %d has %d bytes", i, len(piece))
				}
				if !utf8.ValidString(piece) {
					t.Errorf("piece %d cuts a rune", i)
				}
				if strings.HasSuffix(piece, " ") && strings.TrimSpace(piece) != "" {
					t.Errorf("piece %d ends in a space: %q", i, piece)
				}
			}
		})
	}
}

func TestExportFileCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tree.ged.xz")
	orig := importSample(t)
	if err := NewExporter().ExportFile(path, orig); err != nil {
		t.Fatalf("ExportFile() error = %v", err)
	}
	tree := family.NewTree()
	res, err := NewImporter(fixedOptions()).ImportFile(context.Background(), tree, path)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if res.People != orig.People.Len() {
		t.Errorf("re-imported %d people, want %d", res.People, orig.People.Len())
	}
}

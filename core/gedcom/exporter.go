package gedcom

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/EasyTree/core/date"
	"github.com/FocuswithJustin/EasyTree/core/encoding"
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
	"github.com/FocuswithJustin/EasyTree/core/family"
	"github.com/FocuswithJustin/EasyTree/internal/archive"
	"github.com/FocuswithJustin/EasyTree/internal/logging"
)

// MaxLineValue is the longest value written on one line; longer values
// continue on CONC lines.
const MaxLineValue = 200

// ProductName is written as the HEAD source.
const ProductName = "EasyTree"

// Exporter writes family trees as GEDCOM 5.5.
type Exporter struct{}

// NewExporter returns an exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// exportFamily is a FAM record rebuilt from the relationship graph.
type exportFamily struct {
	xref     string
	husband  string
	wife     string
	union    *family.Union
	children []string
}

// exportPlan assigns record ids and groups relationships into families.
type exportPlan struct {
	people   map[string]string // person id -> xref
	sources  map[string]string
	repos    map[string]string
	families []*exportFamily
	fams     map[string][]string // person id -> FAMS xrefs
	famc     map[string][]string // person id -> FAMC xrefs
}

func newExportPlan(tree *family.Tree) *exportPlan {
	plan := &exportPlan{
		people:  make(map[string]string),
		sources: make(map[string]string),
		repos:   make(map[string]string),
		fams:    make(map[string][]string),
		famc:    make(map[string][]string),
	}
	order := make(map[string]int)
	for i, p := range tree.People.All() {
		plan.people[p.ID] = "I" + strconv.Itoa(i+1)
		order[p.ID] = i
	}
	for i, s := range tree.Sources {
		plan.sources[s.ID] = "S" + strconv.Itoa(i+1)
	}
	for i, r := range tree.Repositories {
		plan.repos[r.ID] = "R" + strconv.Itoa(i+1)
	}

	people := tree.People
	couples := make(map[[2]string]*exportFamily)
	singles := make(map[string]*exportFamily)
	newFamily := func(a, b string, u *family.Union) *exportFamily {
		f := &exportFamily{xref: "F" + strconv.Itoa(len(plan.families)+1), union: u}
		f.husband, f.wife = a, b
		if a != "" && b != "" {
			pa, pb := people.Get(a), people.Get(b)
			if pa.Gender == family.Female && pb.Gender != family.Female {
				f.husband, f.wife = b, a
			}
		} else if a != "" && people.Get(a).Gender == family.Female {
			f.husband, f.wife = "", a
		}
		plan.families = append(plan.families, f)
		for _, id := range []string{a, b} {
			if id != "" {
				plan.fams[id] = append(plan.fams[id], f.xref)
			}
		}
		return f
	}
	pairKey := func(a, b string) [2]string {
		if order[a] > order[b] {
			a, b = b, a
		}
		return [2]string{a, b}
	}

	for _, p := range people.All() {
		for _, rel := range people.Relationships(p.ID) {
			if rel.Type != family.Spouse || order[rel.PersonID] < order[p.ID] {
				continue
			}
			couples[pairKey(p.ID, rel.PersonID)] = newFamily(p.ID, rel.PersonID, rel.Union)
		}
	}

	for _, c := range people.All() {
		parents := people.Graph().Related(c.ID, family.Parent)
		sort.Slice(parents, func(i, j int) bool { return order[parents[i]] < order[parents[j]] })
		var targets []*exportFamily
		if len(parents) == 2 {
			if f, ok := couples[pairKey(parents[0], parents[1])]; ok {
				targets = append(targets, f)
			}
		}
		if targets == nil {
			for _, parent := range parents {
				f, ok := singles[parent]
				if !ok {
					f = newFamily(parent, "", nil)
					singles[parent] = f
				}
				targets = append(targets, f)
			}
		}
		for _, f := range targets {
			f.children = append(f.children, c.ID)
			plan.famc[c.ID] = append(plan.famc[c.ID], f.xref)
		}
	}
	return plan
}

// gedcomWriter writes lines and keeps the first error.
type gedcomWriter struct {
	w   *bufio.Writer
	err error
}

func (g *gedcomWriter) raw(s string) {
	if g.err != nil {
		return
	}
	_, g.err = g.w.WriteString(s)
}

func (g *gedcomWriter) record(xref, tag string) {
	g.raw("0 @" + xref + "@ " + tag + "\n")
}

func (g *gedcomWriter) pointer(level int, tag, xref string) {
	g.raw(strconv.Itoa(level) + " " + tag + " @" + xref + "@\n")
}

// line writes one tagged value. Line breaks become CONT lines and long
// lines are cut into CONC pieces.
func (g *gedcomWriter) line(level int, tag, value string) {
	for i, text := range strings.Split(value, "\n") {
		lineTag, lineLevel := tag, level
		if i > 0 {
			lineTag, lineLevel = tagCont, level+1
		}
		for j, piece := range splitValue(text, MaxLineValue) {
			if j > 0 {
				lineTag, lineLevel = tagConc, level+1
			}
			g.raw(formatLine(lineLevel, lineTag, piece))
		}
	}
}

// formatLine renders one line. Every at-sign in data is doubled, so
// pointers must go through pointer.
func formatLine(level int, tag, data string) string {
	if data == "" {
		return strconv.Itoa(level) + " " + tag + "\n"
	}
	return strconv.Itoa(level) + " " + tag + " " + encoding.EscapeGedcom(data) + "\n"
}

// optional writes the line only when value is set.
func (g *gedcomWriter) optional(level int, tag, value string) {
	if value != "" {
		g.line(level, tag, value)
	}
}

// splitValue cuts s into pieces of at most max bytes, on rune boundaries.
// A piece ends in a space only when it holds nothing but spaces.
func splitValue(s string, max int) []string {
	if len(s) <= max {
		return []string{s}
	}
	var pieces []string
	for len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		trimmed := cut
		for trimmed > 0 && s[trimmed-1] == ' ' {
			trimmed--
		}
		if trimmed > 0 {
			cut = trimmed
		}
		if cut <= 0 {
			cut = max
		}
		pieces = append(pieces, s[:cut])
		s = s[cut:]
	}
	return append(pieces, s)
}

// Export writes the tree as GEDCOM text.
func (e *Exporter) Export(w io.Writer, tree *family.Tree) error {
	plan := newExportPlan(tree)
	g := &gedcomWriter{w: bufio.NewWriter(w)}

	g.raw("0 HEAD\n")
	g.line(1, "SOUR", ProductName)
	g.line(1, "GEDC", "")
	g.line(2, "VERS", "5.5")
	g.line(2, "FORM", "LINEAGE-LINKED")
	g.line(1, "CHAR", "ASCII")

	for _, p := range tree.People.All() {
		e.writePerson(g, plan, p)
	}
	for _, f := range plan.families {
		e.writeFamily(g, plan, tree, f)
	}
	for _, s := range tree.Sources {
		g.record(plan.sources[s.ID], tagSource)
		g.optional(1, "TITL", s.Title)
		g.optional(1, "AUTH", s.Author)
		g.optional(1, "PUBL", s.Publisher)
		if xref, ok := plan.repos[s.RepositoryID]; ok {
			g.pointer(1, tagRepository, xref)
		}
		g.optional(1, tagNote, s.Note)
	}
	for _, r := range tree.Repositories {
		g.record(plan.repos[r.ID], tagRepository)
		g.optional(1, "NAME", r.Name)
		g.optional(1, "ADDR", r.Address)
		g.optional(1, tagNote, r.Note)
	}
	g.raw("0 TRLR\n")

	if g.err != nil {
		return apperrors.NewIO("write", "gedcom", g.err)
	}
	if err := g.w.Flush(); err != nil {
		return apperrors.NewIO("write", "gedcom", err)
	}
	return nil
}

func (e *Exporter) writePerson(g *gedcomWriter, plan *exportPlan, p *family.Person) {
	g.record(plan.people[p.ID], tagIndividual)
	g.line(1, "NAME", p.Name.Gedcom())
	g.optional(2, "NPFX", p.Name.Prefix)
	g.optional(2, "GIVN", p.Name.Given)
	g.optional(2, "SPFX", p.Name.SurnamePrefix)
	g.optional(2, "SURN", p.Name.Surname)
	g.optional(2, "NSFX", p.Name.Suffix)
	g.line(1, "SEX", p.Gender.GedcomSex())
	g.optional(1, "RESN", p.Restriction.GedcomResn())
	for _, f := range p.Facts {
		e.writeFact(g, plan, 1, f)
	}
	if id, err := uuid.Parse(p.ID); err == nil {
		if uid, err := GUIDToUID(id); err == nil {
			g.line(1, tagUID, uid)
		}
	}
	g.optional(1, tagNote, p.Note)
	for _, xref := range plan.fams[p.ID] {
		g.pointer(1, "FAMS", xref)
	}
	for _, xref := range plan.famc[p.ID] {
		g.pointer(1, "FAMC", xref)
	}
}

func (e *Exporter) writeFact(g *gedcomWriter, plan *exportPlan, level int, f family.Fact) {
	g.line(level, f.Type.GedcomTag(), f.Value)
	if text := factDate(f); text != "" {
		g.line(level+1, "DATE", text)
	}
	g.optional(level+1, "PLAC", f.Place)
	c := f.Citation
	if xref, ok := plan.sources[c.SourceID]; ok {
		g.pointer(level+1, tagSource, xref)
		g.optional(level+2, "PAGE", c.Page)
		g.optional(level+2, tagNote, c.Note)
		g.optional(level+2, "_LINK", c.Link)
		return
	}
	if c.Page != "" {
		// Inline citation: an empty SOUR holds the page.
		g.line(level+1, tagSource, "")
		g.line(level+2, "PAGE", c.Page)
		g.optional(level+2, tagNote, c.Note)
		g.optional(level+2, "_LINK", c.Link)
		return
	}
	g.optional(level+1, tagNote, c.Note)
	g.optional(level+1, "_LINK", c.Link)
}

// factDate renders the fact date. The descriptor is written in front of
// exact and year-only dates; the other kinds carry their own qualifier.
func factDate(f family.Fact) string {
	if f.Date.IsEmpty() {
		return ""
	}
	d := f.Date.Date()
	text, err := d.ToGedcom()
	if err != nil {
		logging.Warn("date not exported", "fact", f.Type.GedcomTag(), "error", err.Error())
		return ""
	}
	switch d.Kind() {
	case date.KindExact, date.KindSimple:
		return f.Descriptor + text
	default:
		return text
	}
}

func (e *Exporter) writeFamily(g *gedcomWriter, plan *exportPlan, tree *family.Tree, f *exportFamily) {
	g.record(f.xref, tagFamily)
	if f.husband != "" {
		g.pointer(1, "HUSB", plan.people[f.husband])
	}
	if f.wife != "" {
		g.pointer(1, "WIFE", plan.people[f.wife])
	}
	graph := tree.People.Graph()
	for _, child := range f.children {
		g.pointer(1, "CHIL", plan.people[child])
		if f.husband != "" {
			if rel, ok := graph.Relationship(child, family.Parent, f.husband); ok {
				g.line(2, "_FREL", modifierText(rel.Modifier))
			}
		}
		if f.wife != "" {
			if rel, ok := graph.Relationship(child, family.Parent, f.wife); ok {
				g.line(2, "_MREL", modifierText(rel.Modifier))
			}
		}
	}
	if f.union != nil {
		if f.union.Marriage != nil {
			e.writeFact(g, plan, 1, *f.union.Marriage)
		}
		if f.union.Divorce != nil {
			e.writeFact(g, plan, 1, *f.union.Divorce)
		} else if f.husband != "" && f.wife != "" {
			if rel, ok := graph.Relationship(f.husband, family.Spouse, f.wife); ok && rel.Modifier == family.Former {
				g.line(1, "DIV", "Y")
			}
		}
	}
}

func modifierText(m family.Modifier) string {
	s := m.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// ExportFile writes the tree to path, compressing by suffix.
func (e *Exporter) ExportFile(path string, tree *family.Tree) error {
	w, err := archive.CreateSink(path)
	if err != nil {
		return apperrors.NewIO("create", path, err)
	}
	if err := e.Export(w, tree); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return apperrors.NewIO("write", path, err)
	}
	return nil
}

package gedcom

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/EasyTree/core/cas"
	"github.com/FocuswithJustin/EasyTree/core/date"
	"github.com/FocuswithJustin/EasyTree/core/encoding"
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
	"github.com/FocuswithJustin/EasyTree/core/family"
	"github.com/FocuswithJustin/EasyTree/core/xml"
	"github.com/FocuswithJustin/EasyTree/internal/archive"
	"github.com/FocuswithJustin/EasyTree/internal/logging"
)

// Record and structure tags read by the importer.
const (
	tagIndividual = "INDI"
	tagFamily     = "FAM"
	tagSource     = "SOUR"
	tagRepository = "REPO"
	tagNote       = "NOTE"
	tagUID        = "_UID"
)

// Result describes a finished import.
type Result struct {
	Path         string
	Fingerprint  string // BLAKE3 of the source bytes, hex
	People       int
	Sources      int
	Repositories int
	Stats        Stats
	Duration     time.Duration
}

// Importer turns GEDCOM files into family trees.
type Importer struct {
	opts Options
}

// NewImporter returns an importer using opts. Continuations are always
// combined before import.
func NewImporter(opts Options) *Importer {
	opts.CombineContinuations = true
	if opts.LivingAgeLimit <= 0 {
		opts.LivingAgeLimit = DefaultOptions().LivingAgeLimit
	}
	return &Importer{opts: opts}
}

// Import fills tree from the GEDCOM file at path and reports success. The
// tree is cleared first; after a failure its content must be discarded.
func Import(tree *family.Tree, path string, disableCharacterCheck bool) bool {
	opts := DefaultOptions()
	opts.DisableCharacterCheck = disableCharacterCheck
	_, err := NewImporter(opts).ImportFile(context.Background(), tree, path)
	return err == nil
}

// ImportFile fills tree from the GEDCOM file at path, which may be
// compressed or bundled.
func (im *Importer) ImportFile(ctx context.Context, tree *family.Tree, path string) (Result, error) {
	start := time.Now()
	tree.Clear()
	logging.ImportStarted(ctx, path)

	fail := func(err error) (Result, error) {
		logging.ImportFailed(ctx, path, err)
		return Result{Path: path}, err
	}

	src, err := archive.OpenSource(path)
	if err != nil {
		return fail(apperrors.NewIO("open", path, err))
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		return fail(apperrors.NewIO("read", path, err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	stats, err := im.ImportReader(tree, bytes.NewReader(data))
	if err != nil {
		return fail(err)
	}

	res := Result{
		Path:         path,
		Fingerprint:  cas.Blake3Hash(data),
		People:       tree.People.Len(),
		Sources:      len(tree.Sources),
		Repositories: len(tree.Repositories),
		Stats:        stats,
		Duration:     time.Since(start),
	}
	logging.ImportFinished(ctx, path, res.People, res.Sources, res.Repositories, stats.Dropped, res.Duration)
	return res, nil
}

// ImportReader fills tree from GEDCOM text.
func (im *Importer) ImportReader(tree *family.Tree, r io.Reader) (Stats, error) {
	tree.Clear()
	doc, stats, err := NewConverter(im.opts).Build(r)
	if err != nil {
		return stats, err
	}
	return stats, im.ImportDocument(tree, doc)
}

// ImportDocument fills tree from an already built GEDCOM tree. The passes
// run in order: individuals, families, sources, repositories, then the
// renumbering of every id.
func (im *Importer) ImportDocument(tree *family.Tree, doc *xml.Document) error {
	tree.Clear()
	run := &importRun{
		opts:  im.opts,
		tree:  tree,
		doc:   doc,
		notes: noteRecords(doc),
		uids:  make(map[string]uuid.UUID),
	}
	if err := run.individuals(); err != nil {
		return err
	}
	if err := run.families(); err != nil {
		return err
	}
	run.sources()
	run.repositories()
	if err := run.remap(); err != nil {
		return err
	}
	if all := tree.People.All(); len(all) > 0 {
		return tree.People.SetCurrent(all[0].ID)
	}
	return nil
}

// importRun holds the state of one import.
type importRun struct {
	opts  Options
	tree  *family.Tree
	doc   *xml.Document
	notes map[string]string
	uids  map[string]uuid.UUID // GEDCOM id -> _UID
}

// recordID returns the GEDCOM id of a record ("@I1@" gives "I1").
func recordID(n *xml.Node) string {
	v := n.Value()
	if encoding.IsPointer(v) {
		return encoding.TrimPointer(v)
	}
	return ""
}

// noteRecords indexes level-0 NOTE records by id. The text of such a
// record follows its pointer in the merged value.
func noteRecords(doc *xml.Document) map[string]string {
	notes := make(map[string]string)
	for _, n := range doc.Records(tagNote) {
		v := n.Value()
		if !strings.HasPrefix(v, "@") {
			continue
		}
		end := strings.IndexByte(v[1:], '@')
		if end < 0 {
			continue
		}
		id := v[1 : end+1]
		text := v[end+2:]
		text = strings.TrimPrefix(text, "\n")
		notes[id] = strings.TrimPrefix(text, " ")
	}
	return notes
}

// noteText resolves a NOTE value that is either inline text or a pointer
// to a NOTE record.
func (r *importRun) noteText(n *xml.Node) string {
	if n == nil {
		return ""
	}
	v := n.Value()
	if encoding.IsPointer(v) {
		return r.notes[encoding.TrimPointer(v)]
	}
	return v
}

func (r *importRun) individuals() error {
	for _, n := range r.doc.Records(tagIndividual) {
		id := recordID(n)
		if id == "" {
			logging.Debug("individual without id skipped", "path", n.Path())
			continue
		}
		p := family.NewPerson(id)
		p.Name = importName(n.Child("NAME"))
		if p.Name.IsEmpty() {
			p.Name.Given = family.UnknownName
			p.Name.Surname = family.UnknownName
		}
		if strings.EqualFold(strings.TrimSpace(n.ValueAt("SEX")), "F") {
			p.Gender = family.Female
		}
		p.Restriction = family.RestrictionFromGedcom(n.ValueAt("RESN"))
		p.Note = r.noteText(n.Child(tagNote))

		for _, child := range n.Children() {
			ft, ok := family.FactTypeFromTag(child.Name())
			if !ok || ft == family.Marriage || ft == family.Divorce {
				continue
			}
			p.AddFact(r.importFact(ft, child))
		}

		p.Living = !p.HasDeathEvidence()
		if p.Living {
			now := r.opts.now()
			if age, ok := p.Age(now.Year(), int(now.Month()), now.Day()); ok && age > r.opts.LivingAgeLimit {
				p.Living = false
			}
		}

		if uid := n.ValueAt(tagUID); uid != "" {
			if guid, err := UIDToGUID(uid); err == nil {
				r.uids[id] = guid
			} else {
				logging.Debug("unreadable _UID ignored", "id", id, "error", err.Error())
			}
		}

		if err := r.tree.People.Add(p); err != nil {
			logging.Debug("individual skipped", "id", id, "error", err.Error())
		}
	}
	return nil
}

// importName reads the NAME structure. Sub-tags win over the parts found
// in the "Given /Surname/ Suffix" value.
func importName(n *xml.Node) family.Name {
	if n == nil {
		return family.Name{}
	}
	var name family.Name
	v := strings.TrimSpace(n.Value())
	if i := strings.IndexByte(v, '/'); i >= 0 {
		name.Given = strings.TrimSpace(v[:i])
		rest := v[i+1:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			name.Surname = strings.TrimSpace(rest[:j])
			name.Suffix = strings.TrimSpace(rest[j+1:])
		} else {
			name.Surname = strings.TrimSpace(rest)
		}
	} else {
		name.Given = v
	}

	set := func(dst *string, tag string) {
		if c := n.Child(tag); c != nil {
			*dst = strings.TrimSpace(c.Value())
		}
	}
	set(&name.Prefix, "NPFX")
	set(&name.Given, "GIVN")
	set(&name.SurnamePrefix, "SPFX")
	set(&name.Surname, "SURN")
	set(&name.Suffix, "NSFX")

	if name.SurnamePrefix != "" && n.Child("SURN") == nil {
		name.Surname = strings.TrimSpace(strings.TrimPrefix(name.Surname, name.SurnamePrefix))
	}
	if name.Prefix != "" && n.Child("GIVN") == nil {
		name.Given = strings.TrimSpace(strings.TrimPrefix(name.Given, name.Prefix))
	}
	return name
}

// importFact reads an event structure. Dates are best effort: text that
// does not parse leaves the date empty.
func (r *importRun) importFact(ft family.FactType, n *xml.Node) family.Fact {
	f := family.Fact{
		Type:  ft,
		Value: n.Value(),
		Place: n.ValueAt("PLAC"),
	}
	if raw := strings.TrimSpace(n.ValueAt("DATE")); raw != "" {
		f.Descriptor = ExtractDescriptor(raw)
		if d, ok := date.TryParse(raw); ok {
			f.Date = date.NewWrapper(d)
		} else {
			logging.Debug("unparseable date ignored", "path", n.Path(), "date", raw)
		}
	}

	if src := n.Child(tagSource); src != nil {
		v := strings.TrimSpace(src.Value())
		if encoding.IsPointer(v) {
			f.Citation.SourceID = encoding.TrimPointer(v)
			f.Citation.Note = r.noteText(src.Child(tagNote))
		} else {
			f.Citation.Note = joinLines(v, r.noteText(src.Child(tagNote)))
		}
		f.Citation.Page = src.ValueAt("PAGE")
		f.Citation.Link = src.ValueAt("_LINK")
	}
	if f.Citation.Note == "" {
		f.Citation.Note = r.noteText(n.Child(tagNote))
	}
	if f.Citation.Link == "" {
		f.Citation.Link = n.ValueAt("_LINK")
	}
	return f
}

func joinLines(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}

func (r *importRun) person(pointer string) string {
	id := encoding.TrimPointer(strings.TrimSpace(pointer))
	if id == "" || r.tree.People.Get(id) == nil {
		return ""
	}
	return id
}

func (r *importRun) families() error {
	graph := r.tree.People.Graph()
	pedigrees, err := r.pedigrees()
	if err != nil {
		return err
	}
	for _, fam := range r.doc.Records(tagFamily) {
		famPointer := strings.TrimSpace(fam.Value())
		husband := r.person(fam.ValueAt("HUSB"))
		wife := r.person(fam.ValueAt("WIFE"))

		if husband != "" && wife != "" {
			union := &family.Union{}
			modifier := family.Current
			if n := fam.Child("MARR"); n != nil {
				f := r.importFact(family.Marriage, n)
				union.Marriage = &f
			}
			if n := fam.Child("DIV"); n != nil {
				f := r.importFact(family.Divorce, n)
				union.Divorce = &f
				modifier = family.Former
			}
			if err := graph.AddSpouse(husband, wife, modifier, union); err != nil {
				logging.Debug("spouse link skipped", "family", famPointer, "error", err.Error())
			}
		}

		var fullSiblings []string
		for _, chil := range fam.ChildrenNamed("CHIL") {
			child := r.person(chil.Value())
			if child == "" {
				continue
			}
			pedigree := pedigrees[childLink{child, famPointer}]
			fatherMod := relationModifier(chil.ValueAt("_FREL"), pedigree)
			motherMod := relationModifier(chil.ValueAt("_MREL"), pedigree)

			if husband != "" {
				if err := graph.AddParentChild(husband, child, fatherMod); err != nil {
					logging.Debug("parent link skipped", "family", famPointer, "error", err.Error())
				}
			}
			if wife != "" {
				if err := graph.AddParentChild(wife, child, motherMod); err != nil {
					logging.Debug("parent link skipped", "family", famPointer, "error", err.Error())
				}
			}
			if husband != "" && wife != "" && fatherMod == family.Natural && motherMod == family.Natural {
				fullSiblings = append(fullSiblings, child)
			}
		}

		for i := 0; i < len(fullSiblings); i++ {
			for j := i + 1; j < len(fullSiblings); j++ {
				if err := graph.AddSibling(fullSiblings[i], fullSiblings[j]); err != nil {
					logging.Debug("sibling link skipped", "family", famPointer, "error", err.Error())
				}
			}
		}
	}
	return nil
}

// childLink is a FAMC entry: the child's GEDCOM id and the family pointer.
type childLink struct {
	child, family string
}

// pedigrees collects the PEDI value of every FAMC entry. The first entry
// for a child and family wins.
func (r *importRun) pedigrees() (map[childLink]string, error) {
	famcs, err := r.doc.XPath("/GEDCOM/INDI/FAMC[PEDI]")
	if err != nil {
		return nil, apperrors.Wrap(err, "reading pedigrees")
	}
	result := make(map[childLink]string, len(famcs))
	for _, famc := range famcs {
		link := childLink{recordID(famc.Parent()), strings.TrimSpace(famc.Value())}
		if _, seen := result[link]; !seen {
			result[link] = famc.ValueAt("PEDI")
		}
	}
	return result, nil
}

// relationModifier picks the parent-child modifier from a _FREL or _MREL
// value, then the PEDI value, defaulting to natural.
func relationModifier(rel, pedigree string) family.Modifier {
	if m, ok := family.ParseModifier(rel); ok {
		return m
	}
	if m, ok := family.ParseModifier(pedigree); ok {
		return m
	}
	return family.Natural
}

func (r *importRun) sources() {
	for _, n := range r.doc.Records(tagSource) {
		id := recordID(n)
		if id == "" {
			continue
		}
		r.tree.Sources = append(r.tree.Sources, &family.Source{
			ID:           id,
			Title:        n.ValueAt("TITL"),
			Author:       n.ValueAt("AUTH"),
			Publisher:    n.ValueAt("PUBL"),
			Note:         r.noteText(n.Child(tagNote)),
			RepositoryID: encoding.TrimPointer(strings.TrimSpace(n.ValueAt("REPO"))),
		})
	}
}

func (r *importRun) repositories() {
	for _, n := range r.doc.Records(tagRepository) {
		id := recordID(n)
		if id == "" {
			continue
		}
		r.tree.Repositories = append(r.tree.Repositories, &family.Repository{
			ID:      id,
			Name:    n.ValueAt("NAME"),
			Address: importAddress(n.Child("ADDR")),
			Note:    r.noteText(n.Child(tagNote)),
		})
	}
}

// importAddress returns the ADDR value, or the structured address lines
// when the value is empty.
func importAddress(n *xml.Node) string {
	if n == nil {
		return ""
	}
	if v := n.Value(); v != "" {
		return v
	}
	var lines []string
	for _, tag := range []string{"ADR1", "ADR2", "ADR3", "CITY", "STAE", "POST", "CTRY"} {
		if v := n.ValueAt(tag); v != "" {
			lines = append(lines, v)
		}
	}
	return strings.Join(lines, "\n")
}

// remap replaces the transient GEDCOM ids. People get their _UID GUID when
// it is unused, or a random one; sources and repositories are numbered
// S1, S2, ... and R1, R2, ... in file order. Every reference is rewritten
// once from the old-to-new table; references to unknown records are
// cleared.
func (r *importRun) remap() error {
	people := r.tree.People
	taken := make(map[string]bool)
	for _, p := range append([]*family.Person(nil), people.All()...) {
		newID := ""
		if guid, ok := r.uids[p.ID]; ok && !taken[guid.String()] && people.Get(guid.String()) == nil {
			newID = guid.String()
		}
		for newID == "" || taken[newID] || (people.Get(newID) != nil && newID != p.ID) {
			newID = uuid.New().String()
		}
		taken[newID] = true
		if err := people.Rename(p.ID, newID); err != nil {
			return apperrors.Wrap(err, "renumbering people")
		}
	}

	sourceIDs := make(map[string]string, len(r.tree.Sources))
	for i, s := range r.tree.Sources {
		newID := "S" + strconv.Itoa(i+1)
		if _, dup := sourceIDs[s.ID]; !dup {
			sourceIDs[s.ID] = newID
		}
		s.ID = newID
	}
	repoIDs := make(map[string]string, len(r.tree.Repositories))
	for i, repo := range r.tree.Repositories {
		newID := "R" + strconv.Itoa(i+1)
		if _, dup := repoIDs[repo.ID]; !dup {
			repoIDs[repo.ID] = newID
		}
		repo.ID = newID
	}

	for _, s := range r.tree.Sources {
		s.RepositoryID = rewriteRef(repoIDs, s.RepositoryID)
	}
	for _, p := range people.All() {
		for i := range p.Facts {
			p.Facts[i].Citation.SourceID = rewriteRef(sourceIDs, p.Facts[i].Citation.SourceID)
		}
	}
	seen := make(map[*family.Union]bool)
	for _, id := range people.Graph().IDs() {
		for _, rel := range people.Relationships(id) {
			if rel.Union == nil || seen[rel.Union] {
				continue
			}
			seen[rel.Union] = true
			for _, f := range []*family.Fact{rel.Union.Marriage, rel.Union.Divorce} {
				if f != nil {
					f.Citation.SourceID = rewriteRef(sourceIDs, f.Citation.SourceID)
				}
			}
		}
	}
	return nil
}

func rewriteRef(table map[string]string, old string) string {
	if old == "" {
		return ""
	}
	if newID, ok := table[old]; ok {
		return newID
	}
	logging.Debug("dangling reference cleared", "id", old)
	return ""
}

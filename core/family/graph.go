package family

import (
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

// RelationshipType names how the related person stands to the holder: a
// Parent relationship held by A naming B means B is A's parent.
type RelationshipType int

const (
	Parent RelationshipType = iota
	Child
	Sibling
	Spouse
)

func (t RelationshipType) String() string {
	switch t {
	case Parent:
		return "parent"
	case Child:
		return "child"
	case Sibling:
		return "sibling"
	case Spouse:
		return "spouse"
	default:
		return "relationship(" + strconv.Itoa(int(t)) + ")"
	}
}

// mirror is the type the other endpoint holds.
func (t RelationshipType) mirror() RelationshipType {
	switch t {
	case Parent:
		return Child
	case Child:
		return Parent
	default:
		return t
	}
}

// Modifier qualifies a relationship: Natural, Adopted or Foster for
// parents and children, Current or Former for spouses.
type Modifier int

const (
	Natural Modifier = iota
	Adopted
	Foster
	Current
	Former
)

func (m Modifier) String() string {
	switch m {
	case Natural:
		return "natural"
	case Adopted:
		return "adopted"
	case Foster:
		return "foster"
	case Current:
		return "current"
	case Former:
		return "former"
	default:
		return "modifier(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseModifier maps the text of _FREL, _MREL or PEDI values.
func ParseModifier(value string) (Modifier, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "natural", "birth":
		return Natural, true
	case "adopted":
		return Adopted, true
	case "foster":
		return Foster, true
	}
	return Natural, false
}

func (m Modifier) validFor(t RelationshipType) bool {
	switch t {
	case Parent, Child:
		return m == Natural || m == Adopted || m == Foster
	case Spouse:
		return m == Current || m == Former
	case Sibling:
		return m == Natural
	}
	return false
}

// Union holds the marriage and divorce of a spouse pair. Both sides of
// the pair share one Union.
type Union struct {
	Marriage *Fact
	Divorce  *Fact
}

// Relationship is one edge as seen from its holder.
type Relationship struct {
	Type     RelationshipType
	PersonID string
	Modifier Modifier
	Union    *Union
}

type edge struct {
	kind     RelationshipType
	to       int
	modifier Modifier
	union    *Union
}

// Graph stores relationships as mirrored edges between person handles.
// Ids map to handles, so renaming a person touches one map entry and no
// edge.
type Graph struct {
	handles map[string]int
	ids     []string
	edges   [][]edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{handles: make(map[string]int)}
}

func (g *Graph) handle(id string) int {
	if h, ok := g.handles[id]; ok {
		return h
	}
	h := len(g.ids)
	g.handles[id] = h
	g.ids = append(g.ids, id)
	g.edges = append(g.edges, nil)
	return h
}

// AddPerson makes id known to the graph.
func (g *Graph) AddPerson(id string) {
	g.handle(id)
}

// Has reports whether id is known to the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.handles[id]
	return ok
}

// Len returns how many people the graph knows.
func (g *Graph) Len() int { return len(g.handles) }

func (g *Graph) find(from int, kind RelationshipType, to int) int {
	for i, e := range g.edges[from] {
		if e.kind == kind && e.to == to {
			return i
		}
	}
	return -1
}

// link adds the edge from a to b and its mirror. An existing pair is left
// untouched.
func (g *Graph) link(a, b string, kind RelationshipType, m Modifier, u *Union) error {
	if a == b {
		return apperrors.NewValidation("relationship", a, "a person cannot be related to themselves")
	}
	if !m.validFor(kind) {
		return apperrors.NewValidation("modifier", m.String(), "not valid for a "+kind.String()+" relationship")
	}
	ha, hb := g.handle(a), g.handle(b)
	if g.find(ha, kind, hb) >= 0 {
		return nil
	}
	g.edges[ha] = append(g.edges[ha], edge{kind: kind, to: hb, modifier: m, union: u})
	g.edges[hb] = append(g.edges[hb], edge{kind: kind.mirror(), to: ha, modifier: m, union: u})
	return nil
}

// AddParentChild records parentID as a parent of childID and childID as a
// child of parentID.
func (g *Graph) AddParentChild(parentID, childID string, m Modifier) error {
	return g.link(childID, parentID, Parent, m, nil)
}

// AddSpouse records a and b as each other's spouse. The union may be nil.
func (g *Graph) AddSpouse(a, b string, m Modifier, u *Union) error {
	if u == nil {
		u = &Union{}
	}
	return g.link(a, b, Spouse, m, u)
}

// AddSibling records a and b as each other's sibling.
func (g *Graph) AddSibling(a, b string) error {
	return g.link(a, b, Sibling, Natural, nil)
}

// Relationships returns every relationship held by id, in insertion order.
func (g *Graph) Relationships(id string) []Relationship {
	h, ok := g.handles[id]
	if !ok {
		return nil
	}
	out := make([]Relationship, 0, len(g.edges[h]))
	for _, e := range g.edges[h] {
		out = append(out, Relationship{Type: e.kind, PersonID: g.ids[e.to], Modifier: e.modifier, Union: e.union})
	}
	return out
}

// Related returns the ids id holds a relationship of the given type with.
func (g *Graph) Related(id string, kind RelationshipType) []string {
	var out []string
	for _, r := range g.Relationships(id) {
		if r.Type == kind {
			out = append(out, r.PersonID)
		}
	}
	return out
}

// Relationship returns the edge of the given type from a to b.
func (g *Graph) Relationship(a string, kind RelationshipType, b string) (Relationship, bool) {
	ha, ok := g.handles[a]
	if !ok {
		return Relationship{}, false
	}
	hb, ok := g.handles[b]
	if !ok {
		return Relationship{}, false
	}
	i := g.find(ha, kind, hb)
	if i < 0 {
		return Relationship{}, false
	}
	e := g.edges[ha][i]
	return Relationship{Type: e.kind, PersonID: b, Modifier: e.modifier, Union: e.union}, true
}

// Rename replaces oldID with newID everywhere.
func (g *Graph) Rename(oldID, newID string) error {
	h, ok := g.handles[oldID]
	if !ok {
		return apperrors.NewNotFound("person", oldID)
	}
	if oldID == newID {
		return nil
	}
	if _, taken := g.handles[newID]; taken {
		return apperrors.NewValidation("id", newID, "already in use")
	}
	delete(g.handles, oldID)
	g.handles[newID] = h
	g.ids[h] = newID
	return nil
}

// IDs returns the known ids, sorted.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.handles))
	for id := range g.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CheckMirrors verifies that every edge has its mirror with the same
// modifier and union.
func (g *Graph) CheckMirrors() error {
	for ha, edges := range g.edges {
		for _, e := range edges {
			i := g.find(e.to, e.kind.mirror(), ha)
			if i < 0 {
				return apperrors.NewValidation("relationship", g.ids[ha]+" -> "+g.ids[e.to], "missing mirror "+e.kind.mirror().String())
			}
			m := g.edges[e.to][i]
			if m.modifier != e.modifier || m.union != e.union {
				return apperrors.NewValidation("relationship", g.ids[ha]+" -> "+g.ids[e.to], "mirror differs")
			}
		}
	}
	return nil
}

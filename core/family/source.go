package family

// Source is a document facts can cite.
type Source struct {
	ID           string
	Title        string
	Author       string
	Publisher    string
	Note         string
	RepositoryID string
}

// Repository is where sources are kept.
type Repository struct {
	ID      string
	Name    string
	Address string
	Note    string
}

// Tree is everything an import produces.
type Tree struct {
	People       *People
	Sources      []*Source
	Repositories []*Repository
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{People: NewPeople()}
}

// Source returns the source with id, or nil.
func (t *Tree) Source(id string) *Source {
	for _, s := range t.Sources {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Repository returns the repository with id, or nil.
func (t *Tree) Repository(id string) *Repository {
	for _, r := range t.Repositories {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Clear empties all three collections. A zero Tree gets its People
// collection here.
func (t *Tree) Clear() {
	if t.People == nil {
		t.People = NewPeople()
	} else {
		t.People.Clear()
	}
	t.Sources = nil
	t.Repositories = nil
}

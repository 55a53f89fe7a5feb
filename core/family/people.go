package family

import (
	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

// People is the ordered collection of persons of a tree together with
// their relationship graph and the current selection.
type People struct {
	list    []*Person
	byID    map[string]*Person
	graph   *Graph
	current string
}

// NewPeople returns an empty collection.
func NewPeople() *People {
	return &People{byID: make(map[string]*Person), graph: NewGraph()}
}

// Clear removes every person and relationship.
func (p *People) Clear() {
	p.list = nil
	p.byID = make(map[string]*Person)
	p.graph = NewGraph()
	p.current = ""
}

// Add appends a person. Ids must be unique.
func (p *People) Add(person *Person) error {
	if person.ID == "" {
		return apperrors.NewValidation("id", "", "person id is empty")
	}
	if _, dup := p.byID[person.ID]; dup {
		return apperrors.NewValidation("id", person.ID, "duplicate person id")
	}
	p.list = append(p.list, person)
	p.byID[person.ID] = person
	p.graph.AddPerson(person.ID)
	return nil
}

// Get returns the person with id, or nil.
func (p *People) Get(id string) *Person { return p.byID[id] }

// All returns the persons in insertion order.
func (p *People) All() []*Person { return p.list }

// Len returns the number of persons.
func (p *People) Len() int { return len(p.list) }

// Graph returns the relationship graph.
func (p *People) Graph() *Graph { return p.graph }

// Relationships returns the relationships held by id.
func (p *People) Relationships(id string) []Relationship {
	return p.graph.Relationships(id)
}

// Current returns the selected person, or nil.
func (p *People) Current() *Person { return p.byID[p.current] }

// SetCurrent selects the person with id.
func (p *People) SetCurrent(id string) error {
	if _, ok := p.byID[id]; !ok {
		return apperrors.NewNotFound("person", id)
	}
	p.current = id
	return nil
}

// Rename changes a person's id, keeping its relationships.
func (p *People) Rename(oldID, newID string) error {
	person, ok := p.byID[oldID]
	if !ok {
		return apperrors.NewNotFound("person", oldID)
	}
	if oldID == newID {
		return nil
	}
	if _, taken := p.byID[newID]; taken {
		return apperrors.NewValidation("id", newID, "already in use")
	}
	if err := p.graph.Rename(oldID, newID); err != nil {
		return err
	}
	delete(p.byID, oldID)
	person.ID = newID
	p.byID[newID] = person
	if p.current == oldID {
		p.current = newID
	}
	return nil
}

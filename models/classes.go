package models

import (
	"fmt"

	"github.com/nvr-ai/go-phenodet/models/model"
	"github.com/pkg/errors"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Family model.Family
	// Classes in index order.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// PlantClasses is the single-class label set used when a configuration
// names no labels.
var PlantClasses = []string{"plant"}

// NewOutputClassSet builds a label set. Names are indexed in order.
//
// Arguments:
//   - family: The model family the labels belong to.
//   - names: One label per class index.
//
// Returns:
//   - *OutputClassSet: The label set.
//   - error: If a name is empty or repeated.
func NewOutputClassSet(family model.Family, names ...string) (*OutputClassSet, error) {
	set := &OutputClassSet{
		Family:    family,
		Classes:   make([]OutputClass, 0, len(names)),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, errors.Errorf("class %d has an empty name", i)
		}
		if prev, ok := set.nameToIdx[name]; ok {
			return nil, errors.Errorf("class name %q used by both %d and %d", name, prev, i)
		}
		set.nameToIdx[name] = i
		set.Classes = append(set.Classes, OutputClass{Index: i, Name: name})
	}
	return set, nil
}

// Len returns the number of classes.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// GetName returns the class name for an index.
func (s *OutputClassSet) GetName(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", errors.Errorf("index %d out of range for family %q", idx, s.Family)
	}
	return s.Classes[idx].Name, nil
}

// GetIndex returns the class index for a name.
func (s *OutputClassSet) GetIndex(name string) (int, error) {
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, errors.Errorf("name %q not found in family %q", name, s.Family)
	}
	return idx, nil
}

// Label returns the class name for an index, or "class <idx>" when the set
// does not name it.
func (s *OutputClassSet) Label(idx int) string {
	if name, err := s.GetName(idx); err == nil {
		return name
	}
	return fmt.Sprintf("class %d", idx)
}

package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// ErrUnknownClass is returned when a class index or name has no entry.
var ErrUnknownClass = errors.New("unknown class")

// ClassSet is the ordered list of class names one model family predicts.
type ClassSet struct {
	// Family the set belongs to.
	Family model.Family
	// Names indexed by class.
	Names []string
	// index for lookup by name
	index map[string]int
}

// NewClassSet creates a set and indexes its names.
func NewClassSet(family model.Family, names []string) *ClassSet {
	s := &ClassSet{Family: family, Names: names, index: make(map[string]int, len(names))}
	for i, name := range names {
		s.index[name] = i
	}
	return s
}

// Name returns the name of class idx.
func (s *ClassSet) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Names) {
		return "", errors.Wrapf(ErrUnknownClass, "index %d out of range for %q", idx, s.Family)
	}
	return s.Names[idx], nil
}

// Index returns the class index of name.
func (s *ClassSet) Index(name string) (int, error) {
	idx, ok := s.index[name]
	if !ok {
		return -1, errors.Wrapf(ErrUnknownClass, "name %q not found in %q", name, s.Family)
	}
	return idx, nil
}

// ClassManager holds the class sets of all registered families.
type ClassManager struct {
	sets map[model.Family]*ClassSet
}

// NewClassManager registers the given sets.
func NewClassManager(sets ...*ClassSet) *ClassManager {
	m := &ClassManager{sets: make(map[model.Family]*ClassSet, len(sets))}
	for _, set := range sets {
		m.sets[set.Family] = set
	}
	return m
}

// Set returns the class set of family.
func (m *ClassManager) Set(family model.Family) (*ClassSet, error) {
	set, ok := m.sets[family]
	if !ok {
		return nil, errors.Errorf("family %q not registered", family)
	}
	return set, nil
}

// GetName returns the class name for a given family and index.
func (m *ClassManager) GetName(family model.Family, idx int) (string, error) {
	set, err := m.Set(family)
	if err != nil {
		return "", err
	}
	return set.Name(idx)
}

// GetIndex returns the class index for a given family and name.
func (m *ClassManager) GetIndex(family model.Family, name string) (int, error) {
	set, err := m.Set(family)
	if err != nil {
		return -1, err
	}
	return set.Index(name)
}

// Label resolves the class names of detections produced by a model of family.
func (m *ClassManager) Label(family model.Family, d *postprocess.Detections) ([]postprocess.Labelled, error) {
	set, err := m.Set(family)
	if err != nil {
		return nil, err
	}
	return d.Labelled(set.Names), nil
}

// COCONames are the 80 COCO classes in the zero-based order YOLO predicts them.
var COCONames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane",
	"bus", "train", "truck", "boat", "traffic light",
	"fire hydrant", "stop sign", "parking meter", "bench", "bird",
	"cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat",
	"baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed",
	"dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven",
	"toaster", "sink", "refrigerator", "book", "clock",
	"vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// YOLOClasses is the class set of the YOLO family.
var YOLOClasses = NewClassSet(model.ModelFamilyYOLO, COCONames)

// DefaultClassManager knows every built-in family.
var DefaultClassManager = NewClassManager(YOLOClasses)

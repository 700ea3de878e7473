package layout

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrEmptyLabel     = errors.New("empty seat label")
	ErrDuplicateLabel = errors.New("duplicate seat label")
)

// LabelMap is a bijection from seat index to display label. Labels need not
// follow index order.
type LabelMap struct {
	labels []string
	index  map[string]int
}

func NewLabelMap(labels []string) (LabelMap, error) {
	m := LabelMap{
		labels: append([]string(nil), labels...),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if l == "" {
			return LabelMap{}, fmt.Errorf("%w at index %d", ErrEmptyLabel, i)
		}
		if prev, ok := m.index[l]; ok {
			return LabelMap{}, fmt.Errorf("%w %q at index %d and %d", ErrDuplicateLabel, l, prev, i)
		}
		m.index[l] = i
	}
	return m, nil
}

// DefaultLabels numbers seats 1..n in index order.
func DefaultLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

func (m LabelMap) Len() int { return len(m.labels) }

func (m LabelMap) Label(index int) (string, error) {
	if index < 0 || index >= len(m.labels) {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return m.labels[index], nil
}

// Index is the reverse lookup of Label.
func (m LabelMap) Index(label string) (int, bool) {
	i, ok := m.index[label]
	return i, ok
}

func (m LabelMap) Labels() []string {
	return append([]string(nil), m.labels...)
}

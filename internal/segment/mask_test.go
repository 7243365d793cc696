package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxLabel_DenseLabels(t *testing.T) {
	// Labels 0..7 all present: count is 7.
	labels := []uint16{0, 1, 2, 3, 4, 5, 6, 7}
	m := &LabelMask{Rows: 2, Cols: 4, Labels: labels}
	assert.Equal(t, 7, m.MaxLabel())
}

func TestMaxLabel_AllBackground(t *testing.T) {
	m := &LabelMask{Rows: 2, Cols: 2, Labels: []uint16{0, 0, 0, 0}}
	assert.Equal(t, 0, m.MaxLabel())
}

func TestMaxLabel_SparseLabelsOvercount(t *testing.T) {
	// Known limitation: sparse label IDs overcount. 2 instances, count 9.
	m := &LabelMask{Rows: 1, Cols: 4, Labels: []uint16{0, 3, 0, 9}}
	assert.Equal(t, 9, m.MaxLabel())
}

func TestLabelMask_At(t *testing.T) {
	m := &LabelMask{Rows: 2, Cols: 3, Labels: []uint16{0, 1, 2, 3, 4, 5}}
	assert.Equal(t, uint16(0), m.At(0, 0))
	assert.Equal(t, uint16(2), m.At(0, 2))
	assert.Equal(t, uint16(3), m.At(1, 0))
	assert.Equal(t, uint16(5), m.At(1, 2))
}

package segment

import (
	"fmt"

	"gocv.io/x/gocv"
)

// LabelMask is an integer label image: 0 = background, 1..N = colony
// instances. It is a plain Go value so counting and the runner's tests do
// not depend on OpenCV; only reading a mask from disk does.
type LabelMask struct {
	Rows   int
	Cols   int
	Labels []uint16 // Row-major, len = Rows*Cols.
}

// At returns the label at (row, col). No bounds checking beyond the slice's own.
func (m *LabelMask) At(row, col int) uint16 {
	return m.Labels[row*m.Cols+col]
}

// MaxLabel returns the highest label value, which is the colony count under
// the dense-label assumption (labels 1..N with no gaps). If the model ever
// returns sparse label IDs this overcounts; that is a known limitation of
// the counting heuristic, not corrected here.
func (m *LabelMask) MaxLabel() int {
	max := uint16(0)
	for _, v := range m.Labels {
		if v > max {
			max = v
		}
	}
	return int(max)
}

// ReadMask loads a label mask PNG written by the worker. Masks are single
// channel, 8- or 16-bit unsigned; anything else is a protocol violation.
func ReadMask(path string) (*LabelMask, error) {
	flags := gocv.IMReadFlag(int(gocv.IMReadAnyDepth) | int(gocv.IMReadGrayScale))
	mat := gocv.IMRead(path, flags)
	if mat.Empty() {
		return nil, fmt.Errorf("cannot read label mask %s", path)
	}
	defer mat.Close()

	rows, cols := mat.Rows(), mat.Cols()
	labels := make([]uint16, rows*cols)

	switch mat.Type() {
	case gocv.MatTypeCV16U:
		data, err := mat.DataPtrUint16()
		if err != nil {
			return nil, fmt.Errorf("access mask data %s: %w", path, err)
		}
		copy(labels, data)
	case gocv.MatTypeCV8U:
		data, err := mat.DataPtrUint8()
		if err != nil {
			return nil, fmt.Errorf("access mask data %s: %w", path, err)
		}
		for i, v := range data {
			labels[i] = uint16(v)
		}
	default:
		return nil, fmt.Errorf("%w: mask %s has unexpected pixel type %v", ErrWorkerProtocol, path, mat.Type())
	}

	return &LabelMask{Rows: rows, Cols: cols, Labels: labels}, nil
}

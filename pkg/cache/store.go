// Package cache resolves frame indices into precomputed per-segment
// basis libraries and emissivity weights.
//
// A long camera sequence is split offline into contiguous segments,
// one per equilibrium window, each with its own basis library and a
// matrix of inverted weights (one row per frame). The store maps a
// global frame index to the owning segment and its local offset via
// prefix sums, and reads the batch files that an offline inversion
// job produces.
package cache

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/sballin/signal-tools/internal/models"
	"github.com/sballin/signal-tools/pkg/fieldline"
)

// Segment is a contiguous run of frames sharing one basis library
// and one precomputed weight matrix
type Segment struct {
	library *fieldline.Library
	weights *mat.Dense
}

// NewSegment pairs a basis library with its precomputed weights.
// The weight matrix must have one column per basis element.
func NewSegment(library *fieldline.Library, weights *mat.Dense) (*Segment, error) {
	_, cols := weights.Dims()
	if cols != library.Len() {
		return nil, fmt.Errorf("cache: weight matrix has %d columns for %d basis elements", cols, library.Len())
	}
	return &Segment{library: library, weights: weights}, nil
}

// Library returns the segment's basis library
func (s *Segment) Library() *fieldline.Library {
	return s.library
}

// Frames returns the number of frames covered by this segment
func (s *Segment) Frames() int {
	rows, _ := s.weights.Dims()
	return rows
}

// Weights returns a copy of the weight row for a frame offset
// within the segment
func (s *Segment) Weights(offset int) ([]float64, error) {
	rows, cols := s.weights.Dims()
	if offset < 0 || offset >= rows {
		return nil, &IndexOutOfRangeError{Index: offset, Total: rows}
	}
	w := make([]float64, cols)
	mat.Row(w, offset, s.weights)
	return w, nil
}

// SegmentStore maps global frame indices onto ordered,
// non-overlapping segments. Boundaries are fixed at load time.
type SegmentStore struct {
	segments []*Segment

	// cum[i] is the number of frames before segment i; the last
	// entry is the total frame count
	cum []int

	bounds models.Bounds
}

// NewStore builds a store from segments in temporal order. At least
// one segment is required, and every segment's library must have
// coordinates so the union display bounds can be derived.
func NewStore(segments []*Segment) (*SegmentStore, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("cache: store needs at least one segment")
	}

	cum := make([]int, len(segments)+1)
	var bounds models.Bounds
	for i, seg := range segments {
		cum[i+1] = cum[i] + seg.Frames()
		b, err := seg.Library().CoordinateBounds()
		if err != nil {
			return nil, fmt.Errorf("cache: segment %d: %w", i, err)
		}
		if i == 0 {
			bounds = b
		} else {
			bounds = bounds.Union(b)
		}
	}

	return &SegmentStore{segments: segments, cum: cum, bounds: bounds}, nil
}

// NumSegments returns the number of segments
func (st *SegmentStore) NumSegments() int {
	return len(st.segments)
}

// NumFrames returns the total frame count across all segments
func (st *SegmentStore) NumFrames() int {
	return st.cum[len(st.cum)-1]
}

// Segment returns the segment at position i in temporal order
func (st *SegmentStore) Segment(i int) *Segment {
	return st.segments[i]
}

// Bounds returns the union of all segment coordinate bounds. Replay
// gridders share this one extent across segment changes.
func (st *SegmentStore) Bounds() models.Bounds {
	return st.bounds
}

// Resolve maps a global frame index to its segment and the offset
// within that segment. It fails with IndexOutOfRangeError when the
// index is negative or past the total frame count.
func (st *SegmentStore) Resolve(frame int) (segment, offset int, err error) {
	total := st.NumFrames()
	if frame < 0 || frame >= total {
		return 0, 0, &IndexOutOfRangeError{Index: frame, Total: total}
	}
	// First segment whose cumulative end exceeds the frame index
	segment = sort.SearchInts(st.cum, frame+1) - 1
	return segment, frame - st.cum[segment], nil
}

// FrameWeights resolves a global frame index and returns the owning
// segment together with a copy of that frame's weight row
func (st *SegmentStore) FrameWeights(frame int) (*Segment, []float64, error) {
	segment, offset, err := st.Resolve(frame)
	if err != nil {
		return nil, nil, err
	}
	w, err := st.segments[segment].Weights(offset)
	if err != nil {
		return nil, nil, err
	}
	return st.segments[segment], w, nil
}

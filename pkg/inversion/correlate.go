package inversion

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sballin/signal-tools/internal/models"
	"github.com/sballin/signal-tools/pkg/fieldline"
)

// Correlator matches frames against the basis library by zero-mean
// normalized cross-correlation. It is the cheap, approximate
// alternative to LeastSquares: no weights are solved for, and the
// proposed reconstruction is a single basis image rather than a
// recombination.
type Correlator struct {
	lib  *fieldline.Library
	geom *fieldline.Geometry
	rank int
}

// NewCorrelator creates a correlation-matching engine. rank selects
// which entry of the ranking becomes the proposed reconstruction:
// 0 is the best match, 1 the runner-up, and so on.
func NewCorrelator(lib *fieldline.Library, rank int) (*Correlator, error) {
	geom, err := lib.Geometry()
	if err != nil {
		return nil, err
	}
	if rank < 0 || rank >= lib.Len() {
		return nil, fmt.Errorf("inversion: match rank %d outside library of %d elements", rank, lib.Len())
	}
	return &Correlator{lib: lib, geom: geom, rank: rank}, nil
}

// Rank returns the configured match rank
func (c *Correlator) Rank() int {
	return c.rank
}

// Invert scores the frame against every basis element and returns
// the scores, the ranking, and the rank-selected basis image as the
// proposed reconstruction
func (c *Correlator) Invert(frame *models.Frame) (*Result, error) {
	if err := c.geom.CheckFrame(frame); err != nil {
		return nil, err
	}

	scores := make([]float64, c.lib.Len())
	for i := range scores {
		scores[i] = stat.Correlation(frame.Data, c.lib.Image(i).Data, nil)
	}
	ranked := rankDescending(scores)

	return &Result{
		Scores:        scores,
		Ranked:        ranked,
		Reconstructed: c.lib.Image(ranked[c.rank]).Clone(),
	}, nil
}

// rankDescending orders basis indices by descending score. Equal
// scores keep ascending index order, and NaN scores (constant
// images, which have no defined correlation) sort after every
// finite score.
func rankDescending(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		sa, sb := scores[idx[a]], scores[idx[b]]
		if math.IsNaN(sb) {
			return !math.IsNaN(sa)
		}
		if math.IsNaN(sa) {
			return false
		}
		return sa > sb
	})
	return idx
}

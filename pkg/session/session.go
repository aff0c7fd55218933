// Package session orchestrates per-frame reconstruction: it owns the
// frame index, reruns the inversion and regridding whenever the index
// moves, and exposes each outcome as an immutable View snapshot.
//
// A session is strictly single-goroutine. Every navigation call runs
// one full synchronous recompute and blocks until it finishes; there
// is no cancellation. The cached geometry operator and gridders are
// owned by the session and reused across frames, so sessions must
// not be shared.
package session

import (
	"fmt"
	"math"

	"github.com/sballin/signal-tools/internal/models"
	"github.com/sballin/signal-tools/pkg/cache"
	"github.com/sballin/signal-tools/pkg/fieldline"
	"github.com/sballin/signal-tools/pkg/interpolation"
	"github.com/sballin/signal-tools/pkg/inversion"
)

// FrameSource supplies observed camera frames in time order. Frames
// returned by Frame must be safe for the caller to keep.
type FrameSource interface {
	// Frame returns the observed frame at the given index
	Frame(index int) (*models.Frame, error)

	// Len returns the number of available frames
	Len() int
}

// ProgressCallback reports batch progress. completed and total count
// frames; a non-empty message is informational.
type ProgressCallback func(completed, total int, message string)

// ExportWriter consumes one View per exported frame
type ExportWriter interface {
	WriteView(view *View) error
}

// View is an immutable snapshot of one fully recomputed frame.
// Residual and Weights are nil when the algorithm does not produce
// them (correlation matching), Scores and Ranked when it does not
// score (least squares).
type View struct {
	// FrameIndex is the frame this snapshot was computed for
	FrameIndex int

	// Time is the camera timestamp of the frame, NaN when no time
	// series was supplied
	Time float64

	// Observed is the camera frame as fetched
	Observed *models.Frame

	// Reconstructed is the predicted camera image
	Reconstructed *models.Frame

	// Residual is observed minus reconstructed, signed
	Residual *models.Frame

	// Field is the per-field-line value vector spread on the (R, Z)
	// display grid
	Field *models.SpatialField

	// Weights holds the recovered emissivities, Scores and Ranked
	// the correlation alternative
	Weights []float64
	Scores  []float64
	Ranked  []int

	// EquilibriumIndex is the nearest equilibrium snapshot for the
	// frame time, -1 when no equilibrium series was supplied
	EquilibriumIndex int
}

// Params configures a session. Source is always required. Exactly
// one of Inverter (live inversion, with its Library) or Store
// (precomputed replay) must be set.
type Params struct {
	// Source supplies observed frames
	Source FrameSource

	// Times holds the camera timestamp per frame, optional
	Times []float64

	// EquilibriumTimes holds the equilibrium snapshot times,
	// optional, strictly increasing
	EquilibriumTimes []float64

	// Inverter and Library select live per-frame inversion
	Inverter inversion.Inverter
	Library  *fieldline.Library

	// Store selects replay of precomputed per-segment weights
	Store *cache.SegmentStore

	// GridNR and GridNZ set the display grid resolution; zero
	// means the interpolation default
	GridNR int
	GridNZ int
}

// Session is the reconstruction state machine over one frame index
type Session struct {
	source  FrameSource
	times   []float64
	eqTimes []float64

	inverter inversion.Inverter
	store    *cache.SegmentStore

	gridNR, gridNZ int
	gridder        *interpolation.Gridder
	gridders       map[int]*interpolation.Gridder

	numFrames  int
	frameIndex int
	view       *View

	progress ProgressCallback
}

// NewSession validates the parameters and builds the session. In
// live mode the display gridder is derived from the library
// coordinates immediately, so a degenerate coordinate set fails
// here rather than on the first frame.
func NewSession(params *Params) (*Session, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("session: frame source is required")
	}
	live := params.Inverter != nil
	replay := params.Store != nil
	if live == replay {
		return nil, fmt.Errorf("session: exactly one of Inverter or Store must be set")
	}

	s := &Session{
		source:   params.Source,
		times:    params.Times,
		eqTimes:  params.EquilibriumTimes,
		inverter: params.Inverter,
		store:    params.Store,
		gridNR:   params.GridNR,
		gridNZ:   params.GridNZ,
	}
	if s.gridNR == 0 {
		s.gridNR = interpolation.DefaultGridSize
	}
	if s.gridNZ == 0 {
		s.gridNZ = interpolation.DefaultGridSize
	}

	if live {
		if params.Library == nil {
			return nil, fmt.Errorf("session: live inversion requires the basis library")
		}
		g, err := interpolation.NewGridder(params.Library.R(), params.Library.Z(),
			interpolation.WithResolution(s.gridNR, s.gridNZ))
		if err != nil {
			return nil, err
		}
		s.gridder = g
		s.numFrames = params.Source.Len()
	} else {
		s.gridders = make(map[int]*interpolation.Gridder)
		s.numFrames = params.Source.Len()
		if n := params.Store.NumFrames(); n < s.numFrames {
			s.numFrames = n
		}
	}
	if s.numFrames <= 0 {
		return nil, fmt.Errorf("session: no frames available")
	}
	return s, nil
}

// SetProgressCallback installs a callback for batch export progress.
// A nil callback keeps the session quiet.
func (s *Session) SetProgressCallback(callback ProgressCallback) {
	s.progress = callback
}

func (s *Session) reportProgress(completed, total int, message string) {
	if s.progress != nil {
		s.progress(completed, total, message)
	}
}

// NumFrames returns the number of addressable frames
func (s *Session) NumFrames() int {
	return s.numFrames
}

// FrameIndex returns the current frame index
func (s *Session) FrameIndex() int {
	return s.frameIndex
}

// Current returns the last successfully computed view, nil before
// the first successful recompute. After a failed recompute this
// remains the previous, last-known-good snapshot.
func (s *Session) Current() *View {
	return s.view
}

// Advance moves the frame index by delta, clamped to the valid
// range, and recomputes
func (s *Session) Advance(delta int) (*View, error) {
	return s.Seek(s.frameIndex + delta)
}

// Seek sets the frame index, clamped to the valid range, and
// recomputes
func (s *Session) Seek(index int) (*View, error) {
	if index < 0 {
		index = 0
	}
	if index > s.numFrames-1 {
		index = s.numFrames - 1
	}
	s.frameIndex = index
	return s.Recompute()
}

// Recompute fetches the current frame, reruns the inversion (or the
// precomputed-weight lookup), regrids the values and refreshes the
// equilibrium match. On success the returned View also becomes
// Current; on error the previous view is left untouched.
func (s *Session) Recompute() (*View, error) {
	observed, err := s.source.Frame(s.frameIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch frame %d: %w", s.frameIndex, err)
	}

	view := &View{
		FrameIndex:       s.frameIndex,
		Time:             s.frameTime(),
		Observed:         observed,
		EquilibriumIndex: -1,
	}

	if s.inverter != nil {
		result, err := s.inverter.Invert(observed)
		if err != nil {
			return nil, err
		}
		view.Reconstructed = result.Reconstructed
		view.Residual = result.Residual
		view.Weights = result.Weights
		view.Scores = result.Scores
		view.Ranked = result.Ranked

		view.Field, err = s.gridder.Grid(result.Values())
		if err != nil {
			return nil, err
		}
	} else {
		segIdx, offset, err := s.store.Resolve(s.frameIndex)
		if err != nil {
			return nil, err
		}
		seg := s.store.Segment(segIdx)
		weights, err := seg.Weights(offset)
		if err != nil {
			return nil, err
		}
		geom, err := seg.Library().Geometry()
		if err != nil {
			return nil, err
		}
		view.Weights = weights
		view.Reconstructed, err = geom.Project(weights)
		if err != nil {
			return nil, err
		}
		view.Residual = observed.Clone()
		for i := range view.Residual.Data {
			view.Residual.Data[i] -= view.Reconstructed.Data[i]
		}

		gridder, err := s.replayGridder(segIdx, seg)
		if err != nil {
			return nil, err
		}
		view.Field, err = gridder.Grid(weights)
		if err != nil {
			return nil, err
		}
	}

	if len(s.eqTimes) > 0 && !math.IsNaN(view.Time) {
		view.EquilibriumIndex = NearestIndex(s.eqTimes, view.Time)
	}

	s.view = view
	return view, nil
}

// frameTime returns the timestamp of the current frame, NaN when
// unavailable
func (s *Session) frameTime() float64 {
	if s.frameIndex < len(s.times) {
		return s.times[s.frameIndex]
	}
	return math.NaN()
}

// replayGridder returns the display gridder for a segment, building
// it on first use. All segment gridders share the store's union
// bounds.
func (s *Session) replayGridder(segIdx int, seg *cache.Segment) (*interpolation.Gridder, error) {
	if g, ok := s.gridders[segIdx]; ok {
		return g, nil
	}
	lib := seg.Library()
	g, err := interpolation.NewGridder(lib.R(), lib.Z(),
		interpolation.WithBounds(s.store.Bounds()),
		interpolation.WithResolution(s.gridNR, s.gridNZ))
	if err != nil {
		return nil, err
	}
	s.gridders[segIdx] = g
	return g, nil
}

// Export recomputes the half-open frame range [from, to) in strict
// ascending order and hands each view to the writer. The first
// failing frame aborts the export; frames always run one at a time
// through the session's cached operators.
func (s *Session) Export(w ExportWriter, from, to int) error {
	if from < 0 || to > s.numFrames || from >= to {
		return fmt.Errorf("session: invalid export range [%d, %d) with %d frames", from, to, s.numFrames)
	}

	s.reportProgress(0, to-from, fmt.Sprintf("Exporting frames %d through %d", from, to-1))
	for i := from; i < to; i++ {
		view, err := s.Seek(i)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := w.WriteView(view); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		s.reportProgress(i-from+1, to-from, "")
	}
	return nil
}

package cache

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/sballin/signal-tools/internal/models"
	"github.com/sballin/signal-tools/pkg/fieldline"
)

// Segment files follow the batch handoff contract of the offline
// inversion job. Per segment, a shot produces
//
//	fl_data_<region>_<shot>_<seg>.npz          basis library
//	fl_emissivities_<region>_<shot>_sp<smoothing>_<seg>.npy   weight rows
//
// where the .npz archive holds the members fl_image (basis images
// flattened to rows), fl_image_shape (height, width), fieldline_r
// and fieldline_z. Segment numbers are zero-padded so filename order
// is temporal order.

// DataFileName returns the basis-library filename for a segment
func DataFileName(region string, shot, segment int) string {
	return fmt.Sprintf("fl_data_%s_%d_%02d.npz", region, shot, segment)
}

// WeightsFileName returns the precomputed-weights filename for a
// segment at a given smoothing parameter
func WeightsFileName(region string, shot int, smoothing float64, segment int) string {
	return fmt.Sprintf("fl_emissivities_%s_%d_sp%v_%02d.npy", region, shot, smoothing, segment)
}

// WriteSegmentData writes a basis library to an .npz segment file
func WriteSegmentData(path string, lib *fieldline.Library) error {
	if lib.Len() == 0 {
		return &fieldline.EmptyLibraryError{}
	}
	// Geometry validates that all images share one resolution
	geom, err := lib.Geometry()
	if err != nil {
		return err
	}

	stack := mat.NewDense(lib.Len(), geom.Pixels(), nil)
	for i := 0; i < lib.Len(); i++ {
		stack.SetRow(i, lib.Image(i).Data)
	}
	shape := []int64{int64(geom.FrameHeight()), int64(geom.FrameWidth())}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create segment data file: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	members := []struct {
		name string
		val  interface{}
	}{
		{"fl_image", stack},
		{"fl_image_shape", shape},
		{"fieldline_r", lib.R()},
		{"fieldline_z", lib.Z()},
	}
	for _, m := range members {
		w, err := zw.Create(m.name + ".npy")
		if err != nil {
			return fmt.Errorf("failed to add member %s: %w", m.name, err)
		}
		if err := npyio.Write(w, m.val); err != nil {
			return fmt.Errorf("failed to write member %s: %w", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize segment data file: %w", err)
	}
	return nil
}

// ReadSegmentData loads a basis library from an .npz segment file
func ReadSegmentData(path string) (*fieldline.Library, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment data file: %w", err)
	}
	defer zr.Close()

	var stack mat.Dense
	if err := readMember(&zr.Reader, "fl_image", &stack); err != nil {
		return nil, err
	}
	var shape []int64
	if err := readMember(&zr.Reader, "fl_image_shape", &shape); err != nil {
		return nil, err
	}
	var r, z []float64
	if err := readMember(&zr.Reader, "fieldline_r", &r); err != nil {
		return nil, err
	}
	if err := readMember(&zr.Reader, "fieldline_z", &z); err != nil {
		return nil, err
	}

	if len(shape) != 2 {
		return nil, fmt.Errorf("cache: fl_image_shape has %d entries, want 2", len(shape))
	}
	height := int(shape[0])
	width := int(shape[1])
	rows, cols := stack.Dims()
	if cols != height*width {
		return nil, fmt.Errorf("cache: fl_image rows have %d pixels, shape says %dx%d", cols, height, width)
	}

	images := make([]*models.Frame, rows)
	for i := 0; i < rows; i++ {
		data := make([]float64, cols)
		mat.Row(data, i, &stack)
		images[i] = &models.Frame{Data: data, Height: height, Width: width}
	}
	return fieldline.NewLibrary(images, r, z)
}

// readMember reads one npy member of an npz archive into ptr. Member
// names match with or without the .npy suffix.
func readMember(zr *zip.Reader, name string, ptr interface{}) error {
	for _, f := range zr.File {
		if strings.TrimSuffix(f.Name, ".npy") != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open member %s: %w", name, err)
		}
		defer rc.Close()
		if err := npyio.Read(rc, ptr); err != nil {
			return fmt.Errorf("failed to read member %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("cache: archive has no member %s", name)
}

// WriteWeights writes a weight matrix (one row per frame) to an
// .npy file
func WriteWeights(path string, weights *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	defer f.Close()
	if err := npyio.Write(f, weights); err != nil {
		return fmt.Errorf("failed to write weights: %w", err)
	}
	return nil
}

// ReadWeights loads a weight matrix from an .npy file
func ReadWeights(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open weights file: %w", err)
	}
	defer f.Close()
	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}
	return &m, nil
}

// LoadLibraries reads every segment basis library of a shot from dir
// in temporal order. Weight files are not required, so this also
// serves the precompute job that produces them.
func LoadLibraries(dir, region string, shot int) ([]*fieldline.Library, error) {
	dataFiles, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("fl_data_%s_%d_*.npz", region, shot)))
	if err != nil {
		return nil, err
	}
	sort.Strings(dataFiles)
	if len(dataFiles) == 0 {
		return nil, fmt.Errorf("cache: no segment data files for region %s shot %d in %s", region, shot, dir)
	}

	libs := make([]*fieldline.Library, len(dataFiles))
	for i, path := range dataFiles {
		if libs[i], err = ReadSegmentData(path); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return libs, nil
}

// Load reads every segment of a shot from dir at the given smoothing
// parameter. Data and weight files pair up in sorted filename order,
// which the zero-padded segment numbering makes temporal order.
func Load(dir, region string, shot int, smoothing float64) (*SegmentStore, error) {
	libs, err := LoadLibraries(dir, region, shot)
	if err != nil {
		return nil, err
	}
	weightFiles, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("fl_emissivities_%s_%d_sp%v_*.npy", region, shot, smoothing)))
	if err != nil {
		return nil, err
	}
	sort.Strings(weightFiles)

	if len(libs) != len(weightFiles) {
		return nil, fmt.Errorf("cache: %d data files but %d weight files (smoothing %v)", len(libs), len(weightFiles), smoothing)
	}

	segments := make([]*Segment, len(libs))
	for i := range libs {
		weights, err := ReadWeights(weightFiles[i])
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		segments[i], err = NewSegment(libs[i], weights)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return NewStore(segments)
}

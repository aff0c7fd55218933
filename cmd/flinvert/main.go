package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/sballin/signal-tools/internal/models"
	"github.com/sballin/signal-tools/pkg/acquire"
	"github.com/sballin/signal-tools/pkg/cache"
	"github.com/sballin/signal-tools/pkg/config"
	"github.com/sballin/signal-tools/pkg/fieldline"
	"github.com/sballin/signal-tools/pkg/inversion"
	"github.com/sballin/signal-tools/pkg/session"
	"github.com/sballin/signal-tools/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "flinvert.yaml", "Path to the YAML configuration file")
	mode := flag.String("mode", "invert", "Operation mode: invert, replay, or precompute")
	segment := flag.Int("segment", 0, "Basis segment to invert against in invert mode")
	from := flag.Int("from", 0, "First frame to export (inclusive)")
	to := flag.Int("to", -1, "Frame to stop exporting at (exclusive, -1 for all frames)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("================================")
	fmt.Printf("FIELD LINE INVERSION: shot %d, region %s\n", cfg.Data.Shot, cfg.Data.Region)
	fmt.Println("================================")

	startTime := time.Now()
	switch *mode {
	case "invert":
		err = runInvert(cfg, *segment, *from, *to)
	case "replay":
		err = runReplay(cfg, *from, *to)
	case "precompute":
		err = runPrecompute(cfg)
	default:
		log.Fatalf("Unknown mode: %s (must be invert, replay, or precompute)", *mode)
	}
	if err != nil {
		log.Fatalf("Mode %s failed: %v", *mode, err)
	}

	fmt.Printf("\nCompleted in %.2f seconds\n", time.Since(startTime).Seconds())
}

// frameStack serves preprocessed camera frames from memory and
// implements session.FrameSource
type frameStack struct {
	frames []*models.Frame
}

func (s *frameStack) Frame(index int) (*models.Frame, error) {
	if index < 0 || index >= len(s.frames) {
		return nil, fmt.Errorf("frame index %d outside %d frames", index, len(s.frames))
	}
	return s.frames[index], nil
}

func (s *frameStack) Len() int {
	return len(s.frames)
}

// loadStack reads the camera video and applies the configured
// preprocessing to every frame
func loadStack(cfg *config.Config) (*frameStack, error) {
	src, err := acquire.OpenVideo(cfg.Data.VideoFile)
	if err != nil {
		return nil, err
	}

	frames := make([]*models.Frame, src.Len())
	for i := range frames {
		if frames[i], err = src.Frame(i); err != nil {
			return nil, err
		}
	}

	if cfg.Preprocessing.SubtractWindow > 0 {
		if err := acquire.SubtractBackground(frames, cfg.Preprocessing.SubtractWindow); err != nil {
			return nil, err
		}
	}
	if cfg.Preprocessing.Sobel {
		for i, f := range frames {
			frames[i] = acquire.Sobel(f)
		}
	}

	h, w := src.Resolution()
	fmt.Printf("Loaded %d frames at %dx%d from %s\n", len(frames), h, w, cfg.Data.VideoFile)
	return &frameStack{frames: frames}, nil
}

// loadTimes reads an optional time series. An empty path or a
// missing file means no series.
func loadTimes(path string) ([]float64, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return acquire.ReadTimes(path)
}

// buildInverter constructs the configured inversion engine for one
// basis library
func buildInverter(cfg *config.Config, lib *fieldline.Library) (inversion.Inverter, error) {
	switch cfg.Inversion.Algorithm {
	case "leastsquares":
		geom, err := lib.Geometry()
		if err != nil {
			return nil, err
		}
		return inversion.NewLeastSquares(geom, cfg.Inversion.Smoothing)
	case "correlation":
		return inversion.NewCorrelator(lib, cfg.Inversion.CorrelationRank)
	default:
		return nil, fmt.Errorf("unknown algorithm: %s (must be leastsquares or correlation)", cfg.Inversion.Algorithm)
	}
}

// progressPrinter reports batch progress on the console
func progressPrinter(completed, total int, message string) {
	if message != "" {
		fmt.Println(message)
	}
	fmt.Printf("\rFrame %d/%d", completed, total)
	if completed == total {
		fmt.Println()
	}
}

// exportViews drives a session export over the requested frame range
func exportViews(cfg *config.Config, sess *session.Session, from, to int) error {
	writer, err := visualization.NewSessionWriter(cfg.Export.OutputDir, cfg.Export.Colormap, cfg.Export.Overlay)
	if err != nil {
		return err
	}
	if to < 0 || to > sess.NumFrames() {
		to = sess.NumFrames()
	}
	sess.SetProgressCallback(progressPrinter)
	if err := sess.Export(writer, from, to); err != nil {
		return err
	}
	fmt.Printf("Rendered frames saved to: %s\n", cfg.Export.OutputDir)
	return nil
}

// runInvert inverts camera frames live against one basis segment and
// renders the results
func runInvert(cfg *config.Config, segment, from, to int) error {
	stack, err := loadStack(cfg)
	if err != nil {
		return err
	}
	times, err := loadTimes(cfg.Data.TimesFile)
	if err != nil {
		return err
	}
	eqTimes, err := loadTimes(cfg.Data.EquilibriumTimesFile)
	if err != nil {
		return err
	}

	dataPath := filepath.Join(cfg.Data.CacheDir, cache.DataFileName(cfg.Data.Region, cfg.Data.Shot, segment))
	lib, err := cache.ReadSegmentData(dataPath)
	if err != nil {
		return err
	}
	fmt.Printf("Basis segment %d: %d field lines\n", segment, lib.Len())

	inverter, err := buildInverter(cfg, lib)
	if err != nil {
		return err
	}
	sess, err := session.NewSession(&session.Params{
		Source:           stack,
		Times:            times,
		EquilibriumTimes: eqTimes,
		Inverter:         inverter,
		Library:          lib,
		GridNR:           cfg.Grid.ResolutionR,
		GridNZ:           cfg.Grid.ResolutionZ,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Inverting with %s...\n", cfg.Inversion.Algorithm)
	return exportViews(cfg, sess, from, to)
}

// runReplay renders frames from precomputed per-segment weights
func runReplay(cfg *config.Config, from, to int) error {
	stack, err := loadStack(cfg)
	if err != nil {
		return err
	}
	times, err := loadTimes(cfg.Data.TimesFile)
	if err != nil {
		return err
	}
	eqTimes, err := loadTimes(cfg.Data.EquilibriumTimesFile)
	if err != nil {
		return err
	}

	store, err := cache.Load(cfg.Data.CacheDir, cfg.Data.Region, cfg.Data.Shot, cfg.Inversion.Smoothing)
	if err != nil {
		return err
	}
	fmt.Printf("Replaying %d precomputed frames in %d segments\n", store.NumFrames(), store.NumSegments())

	sess, err := session.NewSession(&session.Params{
		Source:           stack,
		Times:            times,
		EquilibriumTimes: eqTimes,
		Store:            store,
		GridNR:           cfg.Grid.ResolutionR,
		GridNZ:           cfg.Grid.ResolutionZ,
	})
	if err != nil {
		return err
	}

	return exportViews(cfg, sess, from, to)
}

// runPrecompute solves every frame against its equilibrium segment
// and caches the recovered weights
func runPrecompute(cfg *config.Config) error {
	stack, err := loadStack(cfg)
	if err != nil {
		return err
	}
	times, err := loadTimes(cfg.Data.TimesFile)
	if err != nil {
		return err
	}
	eqTimes, err := loadTimes(cfg.Data.EquilibriumTimesFile)
	if err != nil {
		return err
	}

	libs, err := cache.LoadLibraries(cfg.Data.CacheDir, cfg.Data.Region, cfg.Data.Shot)
	if err != nil {
		return err
	}
	assigned, err := assignFrames(stack.Len(), times, eqTimes, len(libs))
	if err != nil {
		return err
	}

	numWorkers := cfg.Precompute.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(libs) {
		numWorkers = len(libs)
	}
	fmt.Printf("Precomputing %d segments on %d workers at smoothing %v...\n",
		len(libs), numWorkers, cfg.Inversion.Smoothing)

	// Each worker takes a contiguous range of segments and owns the
	// engines it builds for them.
	var wg sync.WaitGroup
	errChan := make(chan error, len(libs))
	segmentsPerWorker := (len(libs) + numWorkers - 1) / numWorkers
	for c := 0; c < numWorkers; c++ {
		wg.Add(1)

		go func(workerID int) {
			defer wg.Done()

			start := workerID * segmentsPerWorker
			end := start + segmentsPerWorker
			if end > len(libs) {
				end = len(libs)
			}
			for seg := start; seg < end; seg++ {
				if err := precomputeSegment(cfg, seg, libs[seg], assigned[seg], stack); err != nil {
					errChan <- fmt.Errorf("segment %d: %w", seg, err)
					return
				}
				fmt.Printf("Segment %d: %d frames solved\n", seg, len(assigned[seg]))
			}
		}(c)
	}
	wg.Wait()
	close(errChan)

	if err, ok := <-errChan; ok {
		return err
	}
	fmt.Printf("Weight files saved to: %s\n", cfg.Data.CacheDir)
	return nil
}

// assignFrames partitions frame indices among basis segments by the
// nearest equilibrium time. Assignments come out contiguous because
// both time series are ascending.
func assignFrames(numFrames int, times, eqTimes []float64, numSegments int) ([][]int, error) {
	assigned := make([][]int, numSegments)
	if numSegments == 1 || len(times) == 0 || len(eqTimes) == 0 {
		if numSegments > 1 {
			return nil, fmt.Errorf("%d basis segments but no time series to assign frames with", numSegments)
		}
		for i := 0; i < numFrames; i++ {
			assigned[0] = append(assigned[0], i)
		}
		return assigned, nil
	}

	if len(times) < numFrames {
		return nil, fmt.Errorf("camera time series has %d entries for %d frames", len(times), numFrames)
	}
	for i := 0; i < numFrames; i++ {
		seg := session.NearestIndex(eqTimes, times[i])
		if seg >= numSegments {
			seg = numSegments - 1
		}
		assigned[seg] = append(assigned[seg], i)
	}
	for seg, frames := range assigned {
		if len(frames) == 0 {
			return nil, fmt.Errorf("segment %d covers no frames; check the equilibrium time series", seg)
		}
	}
	return assigned, nil
}

// precomputeSegment solves the assigned frames against one basis
// library and writes the weights file
func precomputeSegment(cfg *config.Config, segment int, lib *fieldline.Library, frames []int, stack *frameStack) error {
	geom, err := lib.Geometry()
	if err != nil {
		return err
	}
	engine, err := inversion.NewLeastSquares(geom, cfg.Inversion.Smoothing)
	if err != nil {
		return err
	}

	weights := mat.NewDense(len(frames), lib.Len(), nil)
	for row, fi := range frames {
		frame, err := stack.Frame(fi)
		if err != nil {
			return err
		}
		result, err := engine.Invert(frame)
		if err != nil {
			return fmt.Errorf("frame %d: %w", fi, err)
		}
		weights.SetRow(row, result.Weights)
	}

	path := filepath.Join(cfg.Data.CacheDir, cache.WeightsFileName(cfg.Data.Region, cfg.Data.Shot, cfg.Inversion.Smoothing, segment))
	return cache.WriteWeights(path, weights)
}

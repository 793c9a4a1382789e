package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dicomvolume/pkg/config"
	"dicomvolume/pkg/discovery"
	"dicomvolume/pkg/reconstruction"
	"dicomvolume/pkg/server"
	"dicomvolume/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "dicomvolume.yaml", "Path to the YAML configuration file")
	inputDir := flag.String("input", "", "Directory containing the DICOM slices of one study")
	serve := flag.Bool("serve", false, "Serve studies from the configured data directory over HTTP")
	numWorkers := flag.Int("workers", 0, "Number of files to read and parse concurrently (default: from config)")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save slices of the assembled volume along all axes")
	slicesDir := flag.String("slices-dir", "volume_slices", "Directory to save extracted slices")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *numWorkers > 0 {
		cfg.Processing.NumWorkers = *numWorkers
	}

	var logger *log.Logger
	if cfg.Output.Verbose {
		logger = log.Default()
	}
	reconstructor := reconstruction.NewReconstructor(reconstruction.Params{
		NumWorkers:        cfg.Processing.NumWorkers,
		PositionTolerance: cfg.Processing.PositionTolerance,
		Logger:            logger,
	})

	if *serve {
		if err := runServer(cfg, reconstructor); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	studyDir, err := filepath.Abs(*inputDir)
	if err != nil {
		log.Fatalf("Invalid input directory: %v", err)
	}
	resolver := discovery.DirResolver{Root: filepath.Dir(studyDir)}
	files, err := resolver.Resolve(context.Background(), filepath.Base(studyDir))
	if err != nil {
		log.Fatalf("Failed to find slices: %v", err)
	}

	fmt.Printf("Assembling %d slices with %d workers...\n", len(files), cfg.Processing.NumWorkers)
	startTime := time.Now()
	vol, err := reconstructor.Load(context.Background(), files)
	if err != nil {
		log.Fatalf("Reconstruction failed: %v", err)
	}
	processingTime := time.Since(startTime)

	stats := visualization.ComputeStats(vol)
	fmt.Printf("\nVolume assembled in %.2f seconds\n", processingTime.Seconds())
	fmt.Printf("=======================================\n")
	fmt.Printf("Dimensions: %d x %d x %d\n", vol.Columns, vol.Rows, vol.Slices)
	fmt.Printf("Pixel spacing (mm): %.4f, %.4f, %.4f\n", vol.PixelSpacing[0], vol.PixelSpacing[1], vol.PixelSpacing[2])
	fmt.Printf("Position of first slice: %.3f, %.3f, %.3f\n", vol.PositionPatient[0], vol.PositionPatient[1], vol.PositionPatient[2])
	for i, axis := range vol.ImageOrientationPatient {
		fmt.Printf("Axis %d: %.4f, %.4f, %.4f\n", i+1, axis[0], axis[1], axis[2])
	}
	fmt.Printf("Intensity range: %.1f to %.1f (mean %.1f)\n", stats.Min, stats.Max, stats.Mean)

	// Extract and save slices if requested
	if *extractSlices {
		viewer := visualization.NewViewer(vol, visualization.Window{
			Center: cfg.Output.WindowCenter,
			Width:  cfg.Output.WindowWidth,
		})
		w := viewer.Window()
		fmt.Printf("\nExtracting slices with window %.1f/%.1f...\n", w.Center, w.Width)

		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(*slicesDir, axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir, cfg.Output.SliceFormat); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}

		fmt.Println("Slice extraction completed!")
	}
}

// runServer serves the configured data directory until interrupted
func runServer(cfg *config.Config, loader server.VolumeLoader) error {
	srv := server.New(discovery.DirResolver{Root: cfg.Server.DataDir}, loader, log.Default())
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving studies from %s on %s", cfg.Server.DataDir, cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

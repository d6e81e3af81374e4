package stats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// FamilyTiming holds timing and metadata for one filter family of a sweep.
type FamilyTiming struct {
	Family      string
	Steps       int
	KernelSizes []int
	TotalTime   float64
	AverageTime float64

	// Tiled execution only
	Workers  *int
	TileSize *int
}

// SweepReport is everything written for one smoothing run.
type SweepReport struct {
	InputPath  string
	Width      int
	Height     int
	Cumulative bool
	Cancelled  bool
	Timestamp  time.Time
	Families   []FamilyTiming
}

// WriteSweepReport writes a single results file into dir and returns its
// path. Nothing is written for a report without families.
func WriteSweepReport(dir string, report SweepReport) (string, error) {
	if len(report.Families) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := report.Timestamp.Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(dir, fmt.Sprintf("smoothing_%s.txt", timestamp))

	file, err := os.Create(resultsFile)
	if err != nil {
		return "", fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	if err := writeReport(file, report); err != nil {
		return "", fmt.Errorf("failed to write results file: %w", err)
	}

	return resultsFile, file.Close()
}

func writeReport(w io.Writer, report SweepReport) error {
	mode := "cumulative"
	if !report.Cumulative {
		mode = "from source"
	}

	fmt.Fprintf(w, "=== Smoothing Sweep Results ===\n")
	fmt.Fprintf(w, "Timestamp: %s\n", report.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Input: %s (%dx%d)\n", report.InputPath, report.Width, report.Height)
	fmt.Fprintf(w, "Mode: %s\n", mode)
	if report.Cancelled {
		fmt.Fprintf(w, "Cancelled: yes\n")
	}
	fmt.Fprintf(w, "\n")

	for _, family := range report.Families {
		fmt.Fprintf(w, "=== %s ===\n", family.Family)
		fmt.Fprintf(w, "Steps: %d\n", family.Steps)
		fmt.Fprintf(w, "Kernel sizes: %v\n", family.KernelSizes)
		fmt.Fprintf(w, "Total filter time: %.4fs\n", family.TotalTime)
		fmt.Fprintf(w, "Average time per step: %.4fs\n", family.AverageTime)

		if family.Workers != nil {
			fmt.Fprintf(w, "Workers: %d\n", *family.Workers)
		}
		if family.TileSize != nil {
			fmt.Fprintf(w, "Tile size: %d\n", *family.TileSize)
		}

		_, err := fmt.Fprintf(w, "\n")
		if err != nil {
			return err
		}
	}

	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"studyguide.cvdemos/internal/config"
	"studyguide.cvdemos/pkg/blur"
	"studyguide.cvdemos/pkg/display"
	"studyguide.cvdemos/pkg/imageio"
	"studyguide.cvdemos/pkg/queue"
	"studyguide.cvdemos/pkg/stats"
	"studyguide.cvdemos/pkg/sweep"
	"studyguide.cvdemos/pkg/tiles"
)

const defaultImage = "lena.jpg"

func smoothingUsage(out io.Writer, prog string) {
	fmt.Fprintf(out, " Usage:\n%s [image_name -- default %s]\n", prog, defaultImage)
}

type smoothingFlags struct {
	configPath   string
	sampleDir    string
	surface      string
	outputDir    string
	redisAddr    string
	window       string
	captionDelay int
	blurDelay    int
	maxKernel    int
	workers      int
	tileSize     int
	fromSource   bool
	reportDir    string
	verbose      bool
}

// RunSmoothing loads an image and runs the filter sweep on the configured
// surface. stdin, when it is a terminal, supplies key presses for the dir
// surface. args[0] is the program name.
func RunSmoothing(ctx context.Context, stdin *os.File, out, errOut io.Writer, args []string, workDir string) int {
	prog := "smoothing"
	if len(args) > 0 {
		prog = filepath.Base(args[0])
		args = args[1:]
	}
	logger := log.New(errOut, "", log.LstdFlags)

	var f smoothingFlags
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(errOut)
	flags.StringVarP(&f.configPath, "config", "c", "", "config file (JSONC)")
	flags.StringVar(&f.sampleDir, "sample-dir", "", "directory holding the default image")
	flags.StringVar(&f.surface, "surface", "", "display surface: none, dir, redis or window")
	flags.StringVar(&f.outputDir, "output-dir", "", "frame directory for the dir surface")
	flags.StringVar(&f.redisAddr, "redis", "", "Redis address for the redis surface")
	flags.StringVar(&f.window, "window", "", "window name")
	flags.IntVar(&f.captionDelay, "caption-delay", 0, "caption delay in milliseconds")
	flags.IntVar(&f.blurDelay, "blur-delay", 0, "delay after each filter step in milliseconds")
	flags.IntVar(&f.maxKernel, "max-kernel", 0, "kernel sizes run over the odd numbers below this")
	flags.IntVar(&f.workers, "workers", 0, "tile workers per filter step")
	flags.IntVar(&f.tileSize, "tile-size", 0, "tile edge length in pixels")
	flags.BoolVar(&f.fromSource, "from-source", false, "filter every step from the source image")
	flags.StringVar(&f.reportDir, "report-dir", "", "write a timing report into this directory")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "log every filter step")
	flags.Usage = func() {
		smoothingUsage(errOut, prog)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if flags.NArg() > 1 {
		smoothingUsage(errOut, prog)
		return 1
	}

	cfg, err := config.Load(workDir, f.configPath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	applySmoothingFlags(flags, &f, &cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	s := cfg.Smoothing

	filename := filepath.Join(config.Resolve(workDir, cfg.SampleDir), defaultImage)
	if flags.NArg() == 1 {
		filename = config.Resolve(workDir, flags.Arg(0))
	}

	src, err := imageio.Load(filename)
	if err != nil {
		logger.Printf("Smoothing: %v", err)
		fmt.Fprintln(errOut, "Error opening image")
		smoothingUsage(errOut, prog)
		return 1
	}

	surface, cleanup, err := openSurface(ctx, cfg, stdin, workDir, out, logger)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer cleanup()

	pool := tiles.New(s.TileSize, s.Workers)
	opts := sweep.Options{
		CaptionDelay:    s.CaptionDelay(),
		BlurDelay:       s.BlurDelay(),
		MaxKernelLength: s.MaxKernelLength,
		FromSource:      s.FromSource,
		Apply: func(img *image.RGBA, filter blur.Filter) *image.RGBA {
			return pool.Apply(img, filter)
		},
	}
	if f.verbose {
		opts.Logger = logger
	}

	start := time.Now()
	result, err := sweep.Run(ctx, src, surface, opts)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	if s.ReportDir != "" {
		report := sweepReport(filename, src, start, s, pool, result)
		path, err := stats.WriteSweepReport(config.Resolve(workDir, s.ReportDir), report)
		if err != nil {
			logger.Printf("Smoothing: %v", err)
		} else if path != "" {
			fmt.Fprintf(out, "Results written to %s\n", path)
		}
	}

	return 0
}

func applySmoothingFlags(flags *flag.FlagSet, f *smoothingFlags, cfg *config.Config) {
	s := &cfg.Smoothing
	if flags.Changed("sample-dir") {
		cfg.SampleDir = f.sampleDir
	}
	if flags.Changed("surface") {
		s.Surface = f.surface
	}
	if flags.Changed("output-dir") {
		s.OutputDir = f.outputDir
	}
	if flags.Changed("redis") {
		s.RedisAddr = f.redisAddr
	}
	if flags.Changed("window") {
		s.WindowName = f.window
	}
	if flags.Changed("caption-delay") {
		s.CaptionDelayMS = f.captionDelay
	}
	if flags.Changed("blur-delay") {
		s.BlurDelayMS = f.blurDelay
	}
	if flags.Changed("max-kernel") {
		s.MaxKernelLength = f.maxKernel
	}
	if flags.Changed("workers") {
		s.Workers = f.workers
	}
	if flags.Changed("tile-size") {
		s.TileSize = f.tileSize
	}
	if flags.Changed("from-source") {
		s.FromSource = f.fromSource
	}
	if flags.Changed("report-dir") {
		s.ReportDir = f.reportDir
	}
}

// openSurface builds the configured display surface. cleanup is never nil.
func openSurface(ctx context.Context, cfg config.Config, stdin *os.File, workDir string, out io.Writer, logger *log.Logger) (display.Surface, func(), error) {
	s := cfg.Smoothing
	noop := func() {}

	switch s.Surface {
	case config.SurfaceNone:
		return &display.Headless{}, noop, nil

	case config.SurfaceDir:
		var keys <-chan int
		restore := func() error { return nil }
		if stdin != nil {
			k, r, err := display.TerminalKeys(stdin)
			if err != nil {
				logger.Printf("Smoothing: key input disabled: %v", err)
			} else {
				keys, restore = k, r
			}
		}

		dir := config.Resolve(workDir, s.OutputDir)
		surface, err := display.NewDirSurface(dir, s.WindowName, keys)
		if err != nil {
			restore()
			return nil, noop, err
		}
		fmt.Fprintf(out, "Writing frames to %s\n", dir)
		return surface, func() {
			if err := restore(); err != nil {
				logger.Printf("Smoothing: failed to restore terminal: %v", err)
			}
		}, nil

	case config.SurfaceRedis:
		client, err := queue.NewRedisClient(ctx, s.RedisAddr)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		surface := display.NewStreamSurface(client, s.WindowName)
		fmt.Fprintf(out, "Session: %s\n", surface.Session())
		return surface, func() { client.Close() }, nil

	case config.SurfaceWindow:
		w, err := display.NewWindow(s.WindowName)
		if err != nil {
			return nil, noop, err
		}
		return w, func() { w.Close() }, nil
	}

	return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownSurface, s.Surface)
}

func sweepReport(filename string, src *image.RGBA, start time.Time, s config.Smoothing, pool *tiles.Pool, result sweep.Result) stats.SweepReport {
	report := stats.SweepReport{
		InputPath:  filename,
		Width:      src.Bounds().Dx(),
		Height:     src.Bounds().Dy(),
		Cumulative: !s.FromSource,
		Cancelled:  result.Cancelled,
		Timestamp:  start,
	}

	workers, tileSize := pool.Workers(), pool.TileSize()
	for _, fr := range result.Families {
		timing := stats.FamilyTiming{
			Family:      fr.Family,
			Steps:       len(fr.KernelSizes),
			KernelSizes: fr.KernelSizes,
			TotalTime:   fr.Elapsed.Seconds(),
		}
		if timing.Steps > 0 {
			timing.AverageTime = timing.TotalTime / float64(timing.Steps)
		}
		if workers > 1 {
			timing.Workers = &workers
			timing.TileSize = &tileSize
		}
		report.Families = append(report.Families, timing)
	}

	return report
}

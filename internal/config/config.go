// Package config loads settings for the demo programs: built-in defaults,
// then an optional JSONC file, then command-line overrides applied by the
// caller.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/tailscale/hujson"
)

// FileName is the project config file looked up in the working directory.
const FileName = ".cvdemos.json"

// Surfaces the smoothing demo can draw on.
const (
	SurfaceNone   = "none"
	SurfaceDir    = "dir"
	SurfaceRedis  = "redis"
	SurfaceWindow = "window"
)

var surfaces = []string{SurfaceNone, SurfaceDir, SurfaceRedis, SurfaceWindow}

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrStoreDirEmpty      = errors.New("store-dir cannot be empty")
	ErrSampleDirEmpty     = errors.New("sample-dir cannot be empty")
	ErrWindowNameEmpty    = errors.New("window name cannot be empty")
	ErrUnknownSurface     = errors.New("unknown display surface")
	ErrOutputDirEmpty     = errors.New("output-dir cannot be empty for the dir surface")
	ErrRedisAddrEmpty     = errors.New("redis address cannot be empty for the redis surface")
	ErrNegativeDelay      = errors.New("delays cannot be negative")
	ErrKernelLength       = errors.New("max kernel length must be at least 2")
	ErrWorkers            = errors.New("workers must be positive")
	ErrTileSize           = errors.New("tile size must be positive")
)

type Config struct {
	// StoreDir is where the file storage demo writes its output file.
	StoreDir string `json:"store_dir"`
	// SampleDir holds the default sample images.
	SampleDir string    `json:"sample_dir"`
	Smoothing Smoothing `json:"smoothing"`

	// Source is the config file that was loaded, if any.
	Source string `json:"-"`
}

type Smoothing struct {
	WindowName      string `json:"window_name"`
	Surface         string `json:"surface"`
	OutputDir       string `json:"output_dir"`
	RedisAddr       string `json:"redis_addr"`
	CaptionDelayMS  int    `json:"caption_delay_ms"`
	BlurDelayMS     int    `json:"blur_delay_ms"`
	MaxKernelLength int    `json:"max_kernel_length"`
	Workers         int    `json:"workers"`
	TileSize        int    `json:"tile_size"`
	FromSource      bool   `json:"from_source"`
	// ReportDir, when set, receives a timing report per run.
	ReportDir string `json:"report_dir,omitempty"`
}

func (s Smoothing) CaptionDelay() time.Duration {
	return time.Duration(s.CaptionDelayMS) * time.Millisecond
}

func (s Smoothing) BlurDelay() time.Duration {
	return time.Duration(s.BlurDelayMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StoreDir:  filepath.Join("data", "sampleFile"),
		SampleDir: filepath.Join("data", "SampleImage"),
		Smoothing: Smoothing{
			WindowName:      "Smoothing Demo",
			Surface:         SurfaceDir,
			OutputDir:       filepath.Join("data", "frames"),
			RedisAddr:       "localhost:6379",
			CaptionDelayMS:  1500,
			BlurDelayMS:     100,
			MaxKernelLength: 31,
			Workers:         runtime.NumCPU(),
			TileSize:        256,
		},
	}
}

// Load returns the defaults overlaid with the config file. An explicit
// configPath must exist; otherwise FileName in workDir is used when present.
// The result is not validated, so callers can apply flag overrides first.
func Load(workDir, configPath string) (Config, error) {
	cfg := Default()

	path := configPath
	mustExist := path != ""
	if mustExist {
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		path = filepath.Join(workDir, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !mustExist && os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	if err := parse(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	cfg.Source = path
	return cfg, nil
}

// parse decodes JSONC over cfg, leaving fields the file omits untouched.
func parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// ValidateStorage checks only the settings the file storage demo uses.
func (c Config) ValidateStorage() error {
	if c.StoreDir == "" {
		return ErrStoreDirEmpty
	}
	if c.SampleDir == "" {
		return ErrSampleDirEmpty
	}
	return nil
}

// Validate checks the shared settings plus the smoothing section.
func (c Config) Validate() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}

	s := c.Smoothing
	if s.WindowName == "" {
		return ErrWindowNameEmpty
	}
	if !slices.Contains(surfaces, s.Surface) {
		return fmt.Errorf("%w: %q", ErrUnknownSurface, s.Surface)
	}
	if s.Surface == SurfaceDir && s.OutputDir == "" {
		return ErrOutputDirEmpty
	}
	if s.Surface == SurfaceRedis && s.RedisAddr == "" {
		return ErrRedisAddrEmpty
	}
	if s.CaptionDelayMS < 0 || s.BlurDelayMS < 0 {
		return ErrNegativeDelay
	}
	if s.MaxKernelLength < 2 {
		return ErrKernelLength
	}
	if s.Workers <= 0 {
		return ErrWorkers
	}
	if s.TileSize <= 0 {
		return ErrTileSize
	}

	return nil
}

// Resolve returns path joined to workDir unless it is already absolute.
func Resolve(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

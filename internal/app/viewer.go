package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"studyguide.cvdemos/internal/config"
	"studyguide.cvdemos/pkg/common"
	"studyguide.cvdemos/pkg/display"
	"studyguide.cvdemos/pkg/queue"
)

const viewerBlock = time.Second

// RunViewer follows the frame stream of a smoothing session published on
// the redis surface. Frames are saved as PNG files and key presses on
// stdin are sent back to the session. It runs until ctx is done.
func RunViewer(ctx context.Context, stdin *os.File, out, errOut io.Writer, args []string, workDir string) int {
	prog := "frameviewer"
	if len(args) > 0 {
		prog = filepath.Base(args[0])
		args = args[1:]
	}
	logger := log.New(errOut, "", log.LstdFlags)

	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(errOut)
	configPath := flags.StringP("config", "c", "", "config file (JSONC)")
	redisAddr := flags.String("redis", "", "Redis address")
	session := flags.String("session", "", "session printed by the smoothing demo")
	outDir := flags.String("out", filepath.Join("data", "viewer"), "directory frames are saved to")
	flags.Usage = func() {
		fmt.Fprintf(errOut, "usage:\n%s --session <id> [flags]\n", prog)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *session == "" || flags.NArg() != 0 {
		flags.Usage()
		return 1
	}

	cfg, err := config.Load(workDir, *configPath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	addr := cfg.Smoothing.RedisAddr
	if flags.Changed("redis") {
		addr = *redisAddr
	}

	client, err := queue.NewRedisClient(ctx, addr)
	if err != nil {
		logger.Printf("Failed to connect to Redis: %v", err)
		return 1
	}
	defer client.Close()

	dir := config.Resolve(workDir, *outDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Printf("Failed to create output directory: %v", err)
		return 1
	}

	if stdin != nil {
		keys, restore, err := display.TerminalKeys(stdin)
		if err != nil {
			logger.Printf("Viewer: key input disabled: %v", err)
		} else {
			defer restore()
			go forwardKeys(ctx, client, *session, keys, logger)
		}
	}

	fmt.Fprintf(out, "Following session %s, saving frames to %s\n", *session, dir)
	n, err := followFrames(ctx, client, *session, dir, logger)
	fmt.Fprintf(out, "Saved %d frames\n", n)
	if err != nil {
		logger.Printf("Viewer: %v", err)
		return 1
	}
	return 0
}

// followFrames saves every frame of session into dir as <seq>.png until
// ctx is done. It returns the number of frames saved.
func followFrames(ctx context.Context, client *queue.RedisClient, session, dir string, logger *log.Logger) (int, error) {
	lastID := "0"
	saved := 0

	for ctx.Err() == nil {
		entries, err := client.ReadFrames(ctx, session, lastID, 16, viewerBlock)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return saved, fmt.Errorf("failed to read frames: %w", err)
		}

		for _, e := range entries {
			lastID = e.ID
			if e.Frame == nil {
				logger.Printf("Viewer: skipping undecodable entry %s", e.ID)
				continue
			}
			path := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", e.Frame.Seq))
			if err := atomic.WriteFile(path, bytes.NewReader(e.Frame.PNG)); err != nil {
				return saved, fmt.Errorf("failed to save frame %d: %w", e.Frame.Seq, err)
			}
			saved++
		}
	}

	return saved, nil
}

func forwardKeys(ctx context.Context, client *queue.RedisClient, session string, keys <-chan int, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case k, ok := <-keys:
			if !ok {
				return
			}
			if _, err := client.PublishKey(ctx, &common.KeyMessage{Session: session, Key: k}); err != nil {
				logger.Printf("Viewer: failed to send key %d: %v", k, err)
			}
		}
	}
}

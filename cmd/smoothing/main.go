// Command smoothing shows homogeneous, Gaussian, median and bilateral
// blurring over growing kernel sizes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"studyguide.cvdemos/internal/app"
)

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := app.RunSmoothing(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args, wd)
	stop()

	os.Exit(code)
}

// Command filestorage writes a sample document with the structured storage
// package and prints it back.
package main

import (
	"fmt"
	"os"

	"studyguide.cvdemos/internal/app"
)

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	os.Exit(app.RunFileStorage(os.Stdout, os.Stderr, os.Args, wd))
}

// Package app implements the two demo programs. Each Run function takes its
// streams and arguments explicitly and returns the process exit code.
package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"studyguide.cvdemos/internal/config"
	"studyguide.cvdemos/pkg/record"
	"studyguide.cvdemos/pkg/storage"
)

func fileStorageHelp(out io.Writer, prog string) {
	fmt.Fprintf(out, "%s shows the usage of the structured storage functionality.\n", prog)
	fmt.Fprintf(out, "usage:\n")
	fmt.Fprintf(out, "%s [flags] outputfile.yml.gz\n", prog)
	fmt.Fprintf(out, "The output file may be either XML (xml) or YAML (yml/yaml).\n")
	fmt.Fprintf(out, "You can even compress it by specifying this in its extension like xml.gz yaml.gz etc...\n")
	fmt.Fprintf(out, "The file is written to the store directory (--store-dir, default %s).\n", config.Default().StoreDir)
}

// RunFileStorage writes the sample document to <store-dir>/<outputfile>,
// reads it back and prints every value. args[0] is the program name.
func RunFileStorage(out, errOut io.Writer, args []string, workDir string) int {
	prog := "filestorage"
	if len(args) > 0 {
		prog = filepath.Base(args[0])
		args = args[1:]
	}
	logger := log.New(errOut, "", log.LstdFlags)

	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(errOut)
	configPath := flags.StringP("config", "c", "", "config file (JSONC)")
	storeDir := flags.String("store-dir", "", "directory the output file is written to")
	sampleDir := flags.String("sample-dir", "", "sample image directory recorded in the document")
	flags.Usage = func() {
		fileStorageHelp(errOut, prog)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if flags.NArg() != 1 {
		fileStorageHelp(out, prog)
		return 1
	}

	cfg, err := config.Load(workDir, *configPath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	if flags.Changed("store-dir") {
		cfg.StoreDir = *storeDir
	}
	if flags.Changed("sample-dir") {
		cfg.SampleDir = *sampleDir
	}
	if err := cfg.ValidateStorage(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	dir := config.Resolve(workDir, cfg.StoreDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintln(errOut, "error: cannot create store directory:", err)
		return 1
	}
	filename := filepath.Join(dir, flags.Arg(0))

	if err := writeSampleDocument(filename, cfg.SampleDir); err != nil {
		logger.Printf("FileStorage: write %s: %v", filename, err)
		fmt.Fprintf(out, "Failed to write %s\n", filename)
		return 1
	}
	fmt.Fprintln(out, "Write Done.")

	if code := readSampleDocument(out, logger, filename); code != 0 {
		return code
	}

	fmt.Fprintf(out, "\nTip: Open up %s with a text editor to see the serialized data.\n", filename)
	return 0
}

// writeSampleDocument writes iterationNr, strings, Mapping, R, T and MyData.
func writeSampleDocument(filename, sampleDir string) error {
	fs, err := storage.Create(filename)
	if err != nil {
		return err
	}

	r := storage.Eye(storage.U8, 3)
	t := storage.Zeros(storage.F64, 3, 1)

	if err := fs.WriteInt("iterationNr", 100); err != nil {
		return err
	}

	if err := fs.BeginSeq("strings"); err != nil {
		return err
	}
	for _, s := range []string{"sample image", "Awesomeness", filepath.Join(sampleDir, "baboon.jpg")} {
		if err := fs.WriteString("", s); err != nil {
			return err
		}
	}
	if err := fs.EndSeq(); err != nil {
		return err
	}

	if err := fs.BeginMap("Mapping"); err != nil {
		return err
	}
	if err := fs.WriteInt("One", 1); err != nil {
		return err
	}
	if err := fs.WriteInt("Two", 2); err != nil {
		return err
	}
	if err := fs.EndMap(); err != nil {
		return err
	}

	if err := fs.WriteMat("R", r); err != nil {
		return err
	}
	if err := fs.WriteMat("T", t); err != nil {
		return err
	}

	if err := fs.Write("MyData", record.Sample()); err != nil {
		return err
	}

	return fs.Release()
}

// readSampleDocument prints the document back. It returns the exit code.
func readSampleDocument(out io.Writer, logger *log.Logger, filename string) int {
	fmt.Fprintf(out, "\nReading: \n")

	fs, err := storage.Open(filename)
	if err != nil || !fs.IsOpened() {
		logger.Printf("FileStorage: open %s: %v", filename, err)
		fmt.Fprintf(out, "Failed to open %s\n", filename)
		return 1
	}
	defer fs.Release()

	fmt.Fprintf(out, "iterationNr: %d\n", fs.Get("iterationNr").Int())

	n := fs.Get("strings")
	if n.Type() != storage.Seq {
		fmt.Fprintln(out, "strings is not a sequence! FAIL")
		return 1
	}
	items, err := n.Elements()
	if err != nil {
		logger.Printf("FileStorage: %v", err)
		return 1
	}
	for _, item := range items {
		fmt.Fprintf(out, "%s ", item.String())
	}
	fmt.Fprintln(out)

	n = fs.Get("Mapping")
	fmt.Fprintf(out, "Two: %d; ", n.Get("Two").Int())
	fmt.Fprintf(out, "One: %d\n\n", n.Get("One").Int())

	r, err := fs.Get("R").Mat()
	if err != nil {
		logger.Printf("FileStorage: %v", err)
		return 1
	}
	t, err := fs.Get("T").Mat()
	if err != nil {
		logger.Printf("FileStorage: %v", err)
		return 1
	}
	fmt.Fprintf(out, "R =\n%s\n", r)
	fmt.Fprintf(out, "T =\n%s\n\n", t)

	var m record.Record
	if err := fs.Get("MyData").Decode(&m); err != nil {
		logger.Printf("FileStorage: %v", err)
		return 1
	}
	fmt.Fprintf(out, "MyData = \n%s\n\n", m)

	fmt.Fprint(out, "Attempt to read NonExisting (should initialize the data structure with its default).")
	m, err = record.Read(fs.Get("NonExisting"), record.Record{})
	if err != nil {
		logger.Printf("FileStorage: %v", err)
		return 1
	}
	fmt.Fprintf(out, "\nNonExisting = \n%s\n", m)

	return 0
}

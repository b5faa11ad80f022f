// Command memray-dump decodes a record stream capture and prints one
// line per record to stdout, for manual inspection of a capture file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/cclauss/memray/pkg/recordstream"
)

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

var cfg struct {
	file string
}

func main() {
	app := kingpin.New("memray-dump", "Dump a record stream capture as text.")
	app.HelpFlag.Short('h')
	app.Arg("file", "Path to the capture file.").Required().StringVar(&cfg.file)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		level.Error(logger).Log("msg", "dump failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	f, err := os.Open(cfg.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.file, err)
	}
	defer f.Close()

	src := recordstream.NewReaderSource(f)
	return recordstream.DumpRecords(context.Background(), os.Stdout, src)
}

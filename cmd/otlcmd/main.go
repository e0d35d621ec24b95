package main

import (
	"log"
	"os"

	"github.com/tdewolff/argp"
)

var (
	Error   *log.Logger
	Warning *log.Logger
)

func main() {
	Error = log.New(os.Stderr, "ERROR: ", 0)
	Warning = log.New(os.Stderr, "WARNING: ", 0)

	cmd := argp.New("Command line toolkit for OpenType layout features in TTF and OTF files")
	cmd.AddCmd(&Audit{}, "audit", "Audit GSUB/GPOS features against glyph naming")
	cmd.AddCmd(&Apply{}, "apply", "Apply a feature definition file to fonts")
	cmd.AddCmd(&Sort{}, "sort", "Sort out-of-order coverage tables")
	cmd.AddCmd(&SSNames{}, "ssnames", "Audit or fix stylistic set UI names")
	cmd.Parse()
}

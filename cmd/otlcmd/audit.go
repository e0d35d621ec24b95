package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/tdewolff/otl"
)

type Audit struct {
	Quiet  bool     `short:"q" desc:"Suppress output except for errors."`
	Force  bool     `short:"f" desc:"Force overwriting existing files."`
	JSON   bool     `short:"j" desc:"Write a JSON report instead of feature-definition text."`
	Index  int      `short:"i" desc:"Index into font collection (used with TTC or OTC)."`
	Output string   `short:"o" desc:"Output file, default stdout. Only valid with a single input."`
	Inputs []string `index:"*" desc:"Input font files."`
}

func (cmd *Audit) Run() error {
	if cmd.Quiet {
		Warning = log.New(ioutil.Discard, "", 0)
	}
	if len(cmd.Inputs) == 0 {
		return fmt.Errorf("input file names not set")
	} else if cmd.Output != "" && 1 < len(cmd.Inputs) {
		return fmt.Errorf("cannot use output file with multiple inputs")
	}

	conv := otl.DefaultConventions()
	failed := 0
	for _, input := range cmd.Inputs {
		sfnt, _, _, err := readFont(input, cmd.Index)
		if err != nil {
			Warning.Printf("%v: %v", input, err)
			failed++
			continue
		}
		result, err := otl.AuditFont(sfnt, conv)
		if err != nil {
			Warning.Printf("%v: %v", input, err)
			failed++
			continue
		}
		for _, skipped := range result.Skipped {
			Warning.Printf("%v: %v", input, skipped)
		}

		var out []byte
		if cmd.JSON {
			if out, err = result.Report(); err != nil {
				return err
			}
			out = append(out, '\n')
		} else {
			if 1 < len(cmd.Inputs) {
				out = append(out, fmt.Sprintf("# %s\n", input)...)
			}
			out = append(out, result.Fea()...)
		}
		if cmd.Output == "" {
			os.Stdout.Write(out)
		} else if err := writeTextFile(cmd.Output, cmd.Force, out); err != nil {
			return err
		}
	}
	if 0 < failed {
		return fmt.Errorf("%d of %d fonts failed", failed, len(cmd.Inputs))
	}
	return nil
}

func writeTextFile(filename string, force bool, b []byte) error {
	if _, err := os.Stat(filename); err == nil && !force {
		return fmt.Errorf("%s already exists", filename)
	}
	return ioutil.WriteFile(filename, b, 0644)
}

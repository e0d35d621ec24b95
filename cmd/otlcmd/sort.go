package main

import (
	"fmt"
	"io/ioutil"
	"log"

	"github.com/tdewolff/otl"
)

type Sort struct {
	Quiet  bool     `short:"q" desc:"Suppress output except for errors."`
	DryRun bool     `short:"n" desc:"Report out-of-order coverage tables without writing."`
	Backup bool     `short:"b" desc:"Write a tilde backup (Font~001.ttf) next to each font before overwriting."`
	Index  int      `short:"i" desc:"Index into font collection (used with TTC or OTC)."`
	Inputs []string `index:"*" desc:"Input font files."`
}

func (cmd *Sort) Run() error {
	if cmd.Quiet {
		Warning = log.New(ioutil.Discard, "", 0)
	}
	if len(cmd.Inputs) == 0 {
		return fmt.Errorf("input file names not set")
	}

	failed := 0
	for _, input := range cmd.Inputs {
		if err := cmd.sortOne(input); err != nil {
			Warning.Printf("%v: %v", input, err)
			failed++
		}
	}
	if 0 < failed {
		return fmt.Errorf("%d of %d fonts failed", failed, len(cmd.Inputs))
	}
	return nil
}

func (cmd *Sort) sortOne(input string) error {
	sfnt, mimetype, _, err := readFont(input, cmd.Index)
	if err != nil {
		return err
	}
	fixed, err := otl.SortFontCoverage(sfnt)
	if err != nil {
		return err
	}
	if len(fixed) == 0 {
		if !cmd.Quiet {
			fmt.Printf("%s: coverage tables in order\n", input)
		}
		return nil
	}
	for _, name := range []string{"GSUB", "GPOS"} {
		if n, ok := fixed[name]; ok && !cmd.Quiet {
			fmt.Printf("%s: %s: %d coverage tables sorted\n", input, name, n)
		}
	}
	if cmd.DryRun {
		return nil
	}
	if cmd.Backup {
		backup, err := backupFont(input)
		if err != nil {
			return err
		}
		if !cmd.Quiet {
			fmt.Printf("%s: backup written to %s\n", input, backup)
		}
	}
	_, err = writeFont(input, mimetype, true, sfnt)
	return err
}

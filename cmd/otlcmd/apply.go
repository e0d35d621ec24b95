package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"
	"strings"

	"github.com/tdewolff/otl"
)

type Apply struct {
	Quiet   bool     `short:"q" desc:"Suppress output except for errors."`
	Force   bool     `short:"f" desc:"Force overwriting existing files."`
	Replace bool     `short:"r" desc:"Replace the wired rules of each applied feature instead of merging."`
	Backup  bool     `short:"b" desc:"Write a tilde backup (Font~001.ttf) next to each font before overwriting."`
	Index   int      `short:"i" desc:"Index into font collection (used with TTC or OTC)."`
	Type    string   `short:"t" desc:"Explicitly set output mimetype, eg. font/woff2."`
	Output  string   `short:"o" desc:"Output font file, default overwrite input. Only valid with a single input."`
	Fea     string   `index:"0" desc:"Feature definition file."`
	Inputs  []string `index:"*" desc:"Input font files."`
}

func (cmd *Apply) Run() error {
	if cmd.Quiet {
		Warning = log.New(ioutil.Discard, "", 0)
	}
	if cmd.Fea == "" {
		return fmt.Errorf("feature definition file not set")
	} else if len(cmd.Inputs) == 0 {
		return fmt.Errorf("input file names not set")
	} else if cmd.Output != "" && 1 < len(cmd.Inputs) {
		return fmt.Errorf("cannot use output file with multiple inputs")
	}

	b, err := ioutil.ReadFile(cmd.Fea)
	if err != nil {
		return err
	}
	blocks, err := otl.ParseFeatureFile(b)
	if err != nil {
		return fmt.Errorf("%v: %v", cmd.Fea, err)
	} else if len(blocks) == 0 {
		return fmt.Errorf("%v: no feature blocks", cmd.Fea)
	}

	mode := otl.Merge
	if cmd.Replace {
		mode = otl.Replace
	}

	failed := 0
	for _, input := range cmd.Inputs {
		if err := cmd.applyOne(input, blocks, mode); err != nil {
			Warning.Printf("%v: %v", input, err)
			failed++
		}
	}
	if 0 < failed {
		return fmt.Errorf("%d of %d fonts failed", failed, len(cmd.Inputs))
	}
	return nil
}

func (cmd *Apply) applyOne(input string, blocks []otl.FeatureBlock, mode otl.Mode) error {
	sfnt, mimetype, _, err := readFont(input, cmd.Index)
	if err != nil {
		return err
	}

	result, err := otl.Apply(sfnt, blocks, mode)
	if err != nil {
		return err
	}
	for _, conflict := range result.Conflicts {
		Warning.Printf("%v: %v", input, conflict)
	}
	if 0 < result.Contextual {
		Warning.Printf("%v: %d contextual rules not compiled", input, result.Contextual)
	}

	output := cmd.Output
	if output == "" {
		output = input
	}
	if cmd.Type != "" {
		mimetype = cmd.Type
	} else if output != input {
		if m, ok := extMimetype[filepath.Ext(output)]; ok {
			mimetype = m
		}
	}

	if cmd.Backup && output == input && output != "-" {
		backup, err := backupFont(input)
		if err != nil {
			return err
		}
		if !cmd.Quiet {
			fmt.Printf("%s: backup written to %s\n", input, backup)
		}
	}
	force := cmd.Force || output == input
	if _, err := writeFont(output, mimetype, force, sfnt); err != nil {
		return err
	}
	if !cmd.Quiet {
		fmt.Printf("%s: applied %s\n", output, strings.Join(result.Applied, " "))
	}
	if 0 < len(result.Conflicts) {
		return fmt.Errorf("%d features skipped due to conflicts", len(result.Conflicts))
	}
	return nil
}

package main

import (
	"fmt"
	"io/ioutil"
	"log"

	"github.com/tdewolff/otl"
)

type SSNames struct {
	Quiet  bool     `short:"q" desc:"Suppress output except for errors."`
	Fix    bool     `short:"x" name:"fix" desc:"Write the suggested labels into the fonts."`
	Backup bool     `short:"b" desc:"Write a tilde backup (Font~001.ttf) next to each font before overwriting."`
	Index  int      `short:"i" desc:"Index into font collection (used with TTC or OTC)."`
	Inputs []string `index:"*" desc:"Input font files."`
}

func (cmd *SSNames) Run() error {
	if cmd.Quiet {
		Warning = log.New(ioutil.Discard, "", 0)
	}
	if len(cmd.Inputs) == 0 {
		return fmt.Errorf("input file names not set")
	}

	conv := otl.DefaultConventions()
	failed := 0
	for _, input := range cmd.Inputs {
		if err := cmd.auditOne(input, conv); err != nil {
			Warning.Printf("%v: %v", input, err)
			failed++
		}
	}
	if 0 < failed {
		return fmt.Errorf("%d of %d fonts failed", failed, len(cmd.Inputs))
	}
	return nil
}

func (cmd *SSNames) auditOne(input string, conv otl.Conventions) error {
	sfnt, mimetype, _, err := readFont(input, cmd.Index)
	if err != nil {
		return err
	}
	issues, err := otl.AuditSSNames(sfnt, conv)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		if !cmd.Quiet {
			fmt.Printf("%s: all stylistic sets labeled\n", input)
		}
		return nil
	}
	for _, issue := range issues {
		what := "no name record"
		if issue.NameID == 0 {
			what = "no feature parameters"
		}
		if !cmd.Quiet {
			fmt.Printf("%s: %s: %s, suggest %q\n", input, issue.Tag, what, issue.Suggested)
		}
	}
	if !cmd.Fix {
		return nil
	}

	n, err := otl.FixSSNames(sfnt, conv)
	if err != nil {
		return err
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
	if _, err := writeFont(input, mimetype, true, sfnt); err != nil {
		return err
	}
	if !cmd.Quiet {
		fmt.Printf("%s: %d stylistic sets labeled\n", input, n)
	}
	return nil
}

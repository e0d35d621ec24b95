// Package otl inspects, extracts, generates, and applies OpenType layout
// features (GSUB and GPOS) in TrueType and OpenType fonts.
package otl

import (
	"fmt"
	"strings"
)

// GlyphCatalog is an ordered list of glyph names, indexed by glyph ID when
// taken from a font.
type GlyphCatalog []string

// GlyphPair links a base glyph to a variant glyph inferred from naming.
type GlyphPair struct {
	Base    string
	Variant string
}

// NamingGroup maps a feature tag to the glyph pairs detected for it.
type NamingGroup map[string][]GlyphPair

// Status indicates whether a feature is wired into the font, merely present
// as glyphs, or only weakly suggested by naming.
type Status int

const (
	Active Status = iota
	Inactive
	Suggested
)

func (status Status) String() string {
	switch status {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	case Suggested:
		return "suggested"
	}
	return "unknown"
}

// Rule is a single feature-definition statement.
type Rule interface {
	String() string
}

// SingleSubst substitutes one glyph by another.
type SingleSubst struct {
	From string
	To   string
}

func (rule SingleSubst) String() string {
	return fmt.Sprintf("sub %s by %s;", rule.From, rule.To)
}

// LigatureSubst substitutes a glyph sequence by a ligature glyph.
type LigatureSubst struct {
	Components []string
	Result     string
}

func (rule LigatureSubst) String() string {
	return fmt.Sprintf("sub %s by %s;", strings.Join(rule.Components, " "), rule.Result)
}

// ClassSubst substitutes a glyph by another when preceded by any glyph of a
// class.
type ClassSubst struct {
	Class []string
	From  string
	To    string
}

func (rule ClassSubst) String() string {
	return fmt.Sprintf("sub [%s] %s' by %s;", strings.Join(rule.Class, " "), rule.From, rule.To)
}

// ChainSubst substitutes a glyph by another within a fixed glyph context.
type ChainSubst struct {
	Prefix []string
	From   string
	Suffix []string
	To     string
}

func (rule ChainSubst) String() string {
	sb := strings.Builder{}
	sb.WriteString("sub ")
	for _, name := range rule.Prefix {
		sb.WriteString(name)
		sb.WriteByte(' ')
	}
	sb.WriteString(rule.From)
	sb.WriteByte('\'')
	for _, name := range rule.Suffix {
		sb.WriteByte(' ')
		sb.WriteString(name)
	}
	sb.WriteString(" by ")
	sb.WriteString(rule.To)
	sb.WriteByte(';')
	return sb.String()
}

// SinglePos adjusts the placement and advance of a single glyph.
type SinglePos struct {
	Glyph      string
	XPlacement int16
	YPlacement int16
	XAdvance   int16
	YAdvance   int16
}

func (rule SinglePos) String() string {
	return fmt.Sprintf("pos %s <%d %d %d %d>;", rule.Glyph, rule.XPlacement, rule.YPlacement, rule.XAdvance, rule.YAdvance)
}

// PairKern adjusts the horizontal advance between two glyphs.
type PairKern struct {
	Left     string
	Right    string
	XAdvance int16
}

func (rule PairKern) String() string {
	return fmt.Sprintf("pos %s %s %d;", rule.Left, rule.Right, rule.XAdvance)
}

// Skipped records a lookup subtable that was not decoded. It is an outcome,
// not an error: unsupported subtypes pass through untouched.
type Skipped struct {
	Table      string
	LookupType uint16
}

func (skipped Skipped) String() string {
	return fmt.Sprintf("%s lookup type %d not supported", skipped.Table, skipped.LookupType)
}

// FeatureBlock is a feature tag with its rules and detection status.
type FeatureBlock struct {
	Tag    string
	Rules  []Rule
	Status Status
}

// Fea returns the block as feature-definition text.
func (block FeatureBlock) Fea() string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "feature %s {\n", block.Tag)
	for _, rule := range block.Rules {
		sb.WriteString("  ")
		sb.WriteString(rule.String())
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "} %s;", block.Tag)
	return sb.String()
}

// Conventions is the catalog of recognized feature tags and the glyph naming
// conventions that detect them. Classification and generation are driven
// entirely by this value.
type Conventions struct {
	Tags     []string            // catalog order, also output order
	Suffixes map[string][]string // tag => recognized glyph name suffixes
	Slashes  []string            // candidate fraction slash glyph names
	Numbers  []string            // figure glyph names for contextual rules
	Ordinals []string            // base letters eligible for contextual ordn
}

// DefaultConventions returns the built-in feature catalog.
func DefaultConventions() Conventions {
	tags := make([]string, 0, 44)
	suffixes := map[string][]string{}
	for i := 1; i <= 20; i++ {
		tag := fmt.Sprintf("ss%02d", i)
		tags = append(tags, tag)
		suffixes[tag] = []string{"." + tag}
	}
	tags = append(tags, "smcp", "c2sc", "liga", "dlig", "onum", "lnum", "tnum", "pnum", "frac", "numr", "dnom", "sups", "subs", "sinf", "ordn", "salt", "zero", "case", "titl", "swsh", "calt", "hist", "kern")
	suffixes["smcp"] = []string{".sc", ".smallcap"}
	suffixes["c2sc"] = []string{".c2sc"}
	suffixes["onum"] = []string{".oldstyle", ".onum"}
	suffixes["lnum"] = []string{".lining", ".lnum"}
	suffixes["tnum"] = []string{".tabular", ".tnum"}
	suffixes["pnum"] = []string{".proportional", ".pnum"}
	suffixes["frac"] = []string{".numerator", ".denominator", ".numr", ".dnom"}
	suffixes["numr"] = []string{".numr"}
	suffixes["dnom"] = []string{".dnom"}
	suffixes["sups"] = []string{".superior", ".sups"}
	suffixes["subs"] = []string{".inferior", ".subs"}
	suffixes["sinf"] = []string{".sinf"}
	suffixes["ordn"] = []string{".ordn"}
	suffixes["salt"] = []string{".alt", ".alt01", ".alt02"}
	suffixes["zero"] = []string{".slash", ".zero"}
	suffixes["case"] = []string{".case"}
	suffixes["titl"] = []string{".titling", ".titl"}
	suffixes["swsh"] = []string{".swash", ".swsh"}
	suffixes["calt"] = []string{".calt"}
	suffixes["hist"] = []string{".hist"}
	return Conventions{
		Tags:     tags,
		Suffixes: suffixes,
		Slashes:  []string{"fraction", "fraction_slash", "slash", "fractionbar"},
		Numbers:  []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"},
		Ordinals: []string{"a", "o", "n", "h", "r", "t", "s"},
	}
}

// GlyphNotFoundError is returned when a feature file references a glyph that
// the target font does not have.
type GlyphNotFoundError struct {
	Tag   string
	Glyph string
}

func (e GlyphNotFoundError) Error() string {
	return fmt.Sprintf("%s: glyph not found in font: %s", e.Tag, e.Glyph)
}

// ConflictError is reported when merging would bind a glyph to two different
// substitutes under the same feature tag.
type ConflictError struct {
	Tag      string
	Glyph    string
	Existing string
	New      string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s: conflicting substitutions for %s: %s and %s", e.Tag, e.Glyph, e.Existing, e.New)
}

// CompileError is returned when feature-definition text cannot be parsed or
// compiled against a font.
type CompileError struct {
	Tag  string
	Line int
	Msg  string
}

func (e CompileError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("line %d: feature %s: %s", e.Line, e.Tag, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

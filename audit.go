package otl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tdewolff/font"
)

// AuditResult holds the outcome of a full feature audit of one font.
type AuditResult struct {
	Blocks  []FeatureBlock
	Groups  NamingGroup
	Skipped []Skipped
}

// Audit classifies the glyph catalog, extracts wired features from the parsed
// GSUB and GPOS tables, and generates blocks for everything naming suggests.
// Either layout may be nil when the font lacks that table.
func Audit(catalog GlyphCatalog, gsub, gpos *Layout, name Namer, conv Conventions) AuditResult {
	extracted, skipped := Extract(gsub, gpos, name)
	active := map[string]bool{}
	for _, layout := range []*Layout{gsub, gpos} {
		if layout != nil {
			for _, tag := range layout.Tags() {
				active[tag] = true
			}
		}
	}
	groups := Classify(catalog, conv)
	blocks := Generate(catalog, groups, extracted, active, conv)
	return AuditResult{Blocks: blocks, Groups: groups, Skipped: skipped}
}

// AuditFont parses the layout tables of an SFNT font and audits them.
func AuditFont(sfnt *font.SFNT, conv Conventions) (AuditResult, error) {
	gsub, gpos, err := ParseLayoutTables(sfnt)
	if err != nil {
		return AuditResult{}, err
	}
	catalog := FontCatalog(sfnt)
	return Audit(catalog, gsub, gpos, sfnt.GlyphName, conv), nil
}

// FontCatalog returns the glyph names of a font in glyph ID order.
func FontCatalog(sfnt *font.SFNT) GlyphCatalog {
	catalog := make(GlyphCatalog, sfnt.NumGlyphs())
	for i := range catalog {
		catalog[i] = sfnt.GlyphName(uint16(i))
	}
	return catalog
}

// ParseLayoutTables parses the GSUB and GPOS tables of a font. A missing
// table yields a nil layout, not an error.
func ParseLayoutTables(sfnt *font.SFNT) (*Layout, *Layout, error) {
	var gsub, gpos *Layout
	var err error
	if b, ok := sfnt.Tables["GSUB"]; ok {
		if gsub, err = ParseLayout("GSUB", b); err != nil {
			return nil, nil, err
		}
	}
	if b, ok := sfnt.Tables["GPOS"]; ok {
		if gpos, err = ParseLayout("GPOS", b); err != nil {
			return nil, nil, err
		}
	}
	return gsub, gpos, nil
}

// Fea renders the audit as feature-definition text in three sections. Active
// blocks are emitted as-is, inactive and suggested blocks are commented out
// so the file can be edited and fed back to apply.
func (result AuditResult) Fea() string {
	sb := strings.Builder{}
	sections := []struct {
		status Status
		title  string
	}{
		{Active, "Active features"},
		{Inactive, "Inactive features (glyphs present, not wired)"},
		{Suggested, "Suggested features (weak naming evidence)"},
	}
	for _, section := range sections {
		blocks := []FeatureBlock{}
		for _, block := range result.Blocks {
			if block.Status == section.status {
				blocks = append(blocks, block)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if 0 < sb.Len() {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "# ==== %s ====\n", section.title)
		for _, block := range blocks {
			sb.WriteByte('\n')
			if section.status == Active {
				sb.WriteString(block.Fea())
				sb.WriteByte('\n')
				continue
			}
			pairs := result.Groups[block.Tag]
			fmt.Fprintf(&sb, "# %s: %d glyphs\n", block.Tag, len(pairs))
			if 0 < len(pairs) {
				sb.WriteString("# Detected glyphs: ")
				sb.WriteString(samplePairs(pairs, 3))
				sb.WriteByte('\n')
			}
			for _, line := range strings.Split(block.Fea(), "\n") {
				sb.WriteString("# ")
				sb.WriteString(line)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

func samplePairs(pairs []GlyphPair, n int) string {
	sb := strings.Builder{}
	for i, pair := range pairs {
		if i == n {
			fmt.Fprintf(&sb, " (%d more)", len(pairs)-n)
			break
		}
		if 0 < i {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s→%s", pair.Base, pair.Variant)
	}
	return sb.String()
}

type reportFeature struct {
	Tag    string   `json:"tag"`
	Status string   `json:"status"`
	Glyphs int      `json:"glyphs"`
	Rules  []string `json:"rules"`
}

type reportSkipped struct {
	Table      string `json:"table"`
	LookupType uint16 `json:"lookupType"`
}

type report struct {
	Features []reportFeature `json:"features"`
	Skipped  []reportSkipped `json:"skipped"`
}

// Report renders the audit as an indented JSON document.
func (result AuditResult) Report() ([]byte, error) {
	doc := report{
		Features: []reportFeature{},
		Skipped:  []reportSkipped{},
	}
	for _, block := range result.Blocks {
		rules := make([]string, len(block.Rules))
		for i, rule := range block.Rules {
			rules[i] = rule.String()
		}
		doc.Features = append(doc.Features, reportFeature{
			Tag:    block.Tag,
			Status: block.Status.String(),
			Glyphs: len(result.Groups[block.Tag]),
			Rules:  rules,
		})
	}
	for _, skipped := range result.Skipped {
		doc.Skipped = append(doc.Skipped, reportSkipped{Table: skipped.Table, LookupType: skipped.LookupType})
	}
	return json.MarshalIndent(doc, "", "  ")
}

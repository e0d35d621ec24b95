package otl

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tdewolff/test"
)

func TestAudit(t *testing.T) {
	idx := glyphIndex{".notdef", "a", "b", "a.ss01", "b.ss01", "a.sc", "b.sc", "a.ss02"}
	wired := []FeatureBlock{{Tag: "ss01", Rules: []Rule{
		SingleSubst{From: "a", To: "a.ss01"},
		SingleSubst{From: "b", To: "b.ss01"},
	}}}
	gsub, _, _, err := ApplyLayout(nil, nil, wired, idx, Merge)
	test.Error(t, err)

	result := Audit(GlyphCatalog(idx), gsub, nil, idx.GlyphName, DefaultConventions())
	test.T(t, len(result.Blocks), 3)
	test.T(t, result.Blocks[0].Tag, "ss01")
	test.T(t, result.Blocks[0].Status, Active)
	test.T(t, result.Blocks[1].Tag, "smcp")
	test.T(t, result.Blocks[1].Status, Inactive)
	test.T(t, result.Blocks[2].Tag, "ss02")
	test.T(t, result.Blocks[2].Status, Suggested)
}

func TestAuditFea(t *testing.T) {
	idx := glyphIndex{".notdef", "a", "b", "a.ss01", "b.ss01", "a.sc", "b.sc"}
	wired := []FeatureBlock{{Tag: "ss01", Rules: []Rule{SingleSubst{From: "a", To: "a.ss01"}, SingleSubst{From: "b", To: "b.ss01"}}}}
	gsub, _, _, err := ApplyLayout(nil, nil, wired, idx, Merge)
	test.Error(t, err)

	result := Audit(GlyphCatalog(idx), gsub, nil, idx.GlyphName, DefaultConventions())
	fea := result.Fea()

	test.That(t, strings.Contains(fea, "# ==== Active features ====\n"))
	test.That(t, strings.Contains(fea, "feature ss01 {\n  sub a by a.ss01;\n  sub b by b.ss01;\n} ss01;\n"))
	test.That(t, strings.Contains(fea, "# ==== Inactive features (glyphs present, not wired) ====\n"))
	test.That(t, strings.Contains(fea, "# smcp: 2 glyphs\n"))
	test.That(t, strings.Contains(fea, "# Detected glyphs: a→a.sc, b→b.sc\n"))
	test.That(t, strings.Contains(fea, "# feature smcp {\n#   sub a by a.sc;\n#   sub b by b.sc;\n# } smcp;\n"))

	// a second audit of the same input renders identically
	test.T(t, Audit(GlyphCatalog(idx), gsub, nil, idx.GlyphName, DefaultConventions()).Fea(), fea)
}

func TestAuditFeaSample(t *testing.T) {
	pairs := []GlyphPair{{"a", "a.sc"}, {"b", "b.sc"}, {"c", "c.sc"}, {"d", "d.sc"}, {"e", "e.sc"}}
	test.T(t, samplePairs(pairs, 3), "a→a.sc, b→b.sc, c→c.sc (2 more)")
	test.T(t, samplePairs(pairs[:2], 3), "a→a.sc, b→b.sc")
}

func TestAuditFeaRoundTrip(t *testing.T) {
	// active blocks of the audit output parse back to the same rules
	idx := glyphIndex{".notdef", "a", "b", "a.ss01", "b.ss01"}
	wired := []FeatureBlock{{Tag: "ss01", Rules: []Rule{SingleSubst{From: "a", To: "a.ss01"}, SingleSubst{From: "b", To: "b.ss01"}}}}
	gsub, _, _, err := ApplyLayout(nil, nil, wired, idx, Merge)
	test.Error(t, err)

	result := Audit(GlyphCatalog(idx), gsub, nil, idx.GlyphName, DefaultConventions())
	blocks, err := ParseFeatureFile([]byte(result.Fea()))
	test.Error(t, err)
	test.T(t, len(blocks), 1)
	test.T(t, blocks[0].Tag, "ss01")
	test.T(t, blocks[0].Rules, wired[0].Rules)
}

func TestAuditReport(t *testing.T) {
	idx := glyphIndex{".notdef", "a", "a.sc", "b", "b.sc"}
	result := Audit(GlyphCatalog(idx), nil, nil, idx.GlyphName, DefaultConventions())
	result.Skipped = append(result.Skipped, Skipped{Table: "GSUB", LookupType: 6})

	b, err := result.Report()
	test.Error(t, err)

	var doc struct {
		Features []struct {
			Tag    string   `json:"tag"`
			Status string   `json:"status"`
			Glyphs int      `json:"glyphs"`
			Rules  []string `json:"rules"`
		} `json:"features"`
		Skipped []struct {
			Table      string `json:"table"`
			LookupType uint16 `json:"lookupType"`
		} `json:"skipped"`
	}
	test.Error(t, json.Unmarshal(b, &doc))
	test.T(t, len(doc.Features), 1)
	test.T(t, doc.Features[0].Tag, "smcp")
	test.T(t, doc.Features[0].Status, "inactive")
	test.T(t, doc.Features[0].Glyphs, 2)
	test.T(t, doc.Features[0].Rules, []string{"sub a by a.sc;", "sub b by b.sc;"})
	test.T(t, doc.Skipped[0].Table, "GSUB")
	test.T(t, doc.Skipped[0].LookupType, uint16(6))
}

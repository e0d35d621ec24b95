package otl

import (
	"testing"

	"github.com/tdewolff/test"
)

// glyphIndex is an in-memory GlyphIndexer for tests.
type glyphIndex []string

func (idx glyphIndex) FindGlyphName(name string) uint16 {
	for i, s := range idx {
		if s == name {
			return uint16(i)
		}
	}
	return 0
}

func (idx glyphIndex) GlyphName(glyphID uint16) string {
	if int(glyphID) < len(idx) {
		return idx[glyphID]
	}
	return ""
}

func TestApplyLayoutNew(t *testing.T) {
	idx := glyphIndex{".notdef", "a", "b", "a.ss01", "b.ss01", "f", "i", "fi"}
	blocks := []FeatureBlock{{Tag: "ss01", Rules: []Rule{
		SingleSubst{From: "a", To: "a.ss01"},
		SingleSubst{From: "b", To: "b.ss01"},
	}}, {Tag: "liga", Rules: []Rule{
		LigatureSubst{Components: []string{"f", "i"}, Result: "fi"},
	}}}

	gsub, gpos, result, err := ApplyLayout(nil, nil, blocks, idx, Merge)
	test.Error(t, err)
	test.That(t, gpos == nil)
	test.T(t, result.Applied, []string{"ss01", "liga"})

	// a default script must have been created and wired
	test.T(t, len(gsub.Scripts), 1)
	test.T(t, gsub.Scripts[0].Tag, "DFLT")
	test.T(t, gsub.Scripts[0].Default.FeatureIndices, []uint16{0, 1})

	// feature list sorted by tag
	test.T(t, gsub.Features[0].Tag, "liga")
	test.T(t, gsub.Features[1].Tag, "ss01")

	rules, skipped := Extract(gsub, nil, idx.GlyphName)
	test.T(t, len(skipped), 0)
	test.T(t, rules["ss01"], blocks[0].Rules)
	test.T(t, rules["liga"], blocks[1].Rules)
}

func TestApplyLayoutPositioning(t *testing.T) {
	idx := glyphIndex{".notdef", "A", "V", "T"}
	blocks := []FeatureBlock{{Tag: "kern", Rules: []Rule{
		PairKern{Left: "A", Right: "V", XAdvance: -70},
	}}, {Tag: "cpsp", Rules: []Rule{
		SinglePos{Glyph: "T", XAdvance: 15},
	}}}

	gsub, gpos, result, err := ApplyLayout(nil, nil, blocks, idx, Merge)
	test.Error(t, err)
	test.That(t, gsub == nil)
	test.T(t, result.Applied, []string{"kern", "cpsp"})

	rules, _ := Extract(nil, gpos, idx.GlyphName)
	test.T(t, rules["kern"], blocks[0].Rules)
	test.T(t, rules["cpsp"], blocks[1].Rules)
}

func TestApplyLayoutMergeConflict(t *testing.T) {
	idx := glyphIndex{".notdef", "a", "b", "a.ss01", "a.alt", "b.ss01"}
	wired := []FeatureBlock{{Tag: "ss01", Rules: []Rule{SingleSubst{From: "a", To: "a.ss01"}}}}
	gsub, _, _, err := ApplyLayout(nil, nil, wired, idx, Merge)
	test.Error(t, err)

	blocks := []FeatureBlock{
		{Tag: "ss01", Rules: []Rule{SingleSubst{From: "a", To: "a.alt"}}},
		{Tag: "ss02", Rules: []Rule{SingleSubst{From: "b", To: "b.ss01"}}},
	}
	gsub, _, result, err := ApplyLayout(gsub, nil, blocks, idx, Merge)
	test.Error(t, err)

	// the conflicting tag is skipped, the clean one applied
	test.T(t, result.Applied, []string{"ss02"})
	test.T(t, len(result.Conflicts), 1)
	test.T(t, result.Conflicts[0].Tag, "ss01")
	test.T(t, result.Conflicts[0].Glyph, "a")
	test.T(t, result.Conflicts[0].Existing, "a.ss01")
	test.T(t, result.Conflicts[0].New, "a.alt")

	rules, _ := Extract(gsub, nil, idx.GlyphName)
	test.T(t, rules["ss01"], []Rule{SingleSubst{From: "a", To: "a.ss01"}})
	test.T(t, rules["ss02"], []Rule{SingleSubst{From: "b", To: "b.ss01"}})
}

func TestApplyLayoutMergeDuplicates(t *testing.T) {
	idx := glyphIndex{".notdef", "a", "b", "a.ss01", "b.ss01"}
	wired := []FeatureBlock{{Tag: "ss01", Rules: []Rule{SingleSubst{From: "a", To: "a.ss01"}}}}
	gsub, _, _, err := ApplyLayout(nil, nil, wired, idx, Merge)
	test.Error(t, err)

	blocks := []FeatureBlock{{Tag: "ss01", Rules: []Rule{
		SingleSubst{From: "a", To: "a.ss01"},
		SingleSubst{From: "b", To: "b.ss01"},
	}}}
	gsub, _, result, err := ApplyLayout(gsub, nil, blocks, idx, Merge)
	test.Error(t, err)
	test.T(t, result.Duplicates, 1)
	test.T(t, result.Applied, []string{"ss01"})

	// still one feature record for the tag
	test.T(t, len(gsub.Features), 1)
	rules, _ := Extract(gsub, nil, idx.GlyphName)
	test.T(t, rules["ss01"], []Rule{
		SingleSubst{From: "a", To: "a.ss01"},
		SingleSubst{From: "b", To: "b.ss01"},
	})
}

func TestApplyLayoutReplace(t *testing.T) {
	idx := glyphIndex{".notdef", "a", "b", "a.ss01", "a.alt", "b.ss01"}
	wired := []FeatureBlock{
		{Tag: "ss01", Rules: []Rule{SingleSubst{From: "a", To: "a.ss01"}}},
		{Tag: "ss02", Rules: []Rule{SingleSubst{From: "b", To: "b.ss01"}}},
	}
	gsub, _, _, err := ApplyLayout(nil, nil, wired, idx, Merge)
	test.Error(t, err)

	blocks := []FeatureBlock{{Tag: "ss01", Rules: []Rule{SingleSubst{From: "a", To: "a.alt"}}}}
	gsub, _, result, err := ApplyLayout(gsub, nil, blocks, idx, Replace)
	test.Error(t, err)
	test.T(t, result.Applied, []string{"ss01"})
	test.T(t, len(result.Conflicts), 0)

	// ss01 replaced wholesale, ss02 untouched
	rules, _ := Extract(gsub, nil, idx.GlyphName)
	test.T(t, rules["ss01"], []Rule{SingleSubst{From: "a", To: "a.alt"}})
	test.T(t, rules["ss02"], []Rule{SingleSubst{From: "b", To: "b.ss01"}})
	test.T(t, len(gsub.Lookups), 2)
}

func TestApplyLayoutGlyphNotFound(t *testing.T) {
	idx := glyphIndex{".notdef", "a"}
	blocks := []FeatureBlock{{Tag: "ss01", Rules: []Rule{SingleSubst{From: "a", To: "a.ss01"}}}}
	_, _, _, err := ApplyLayout(nil, nil, blocks, idx, Merge)
	test.That(t, err != nil)
	nfe, ok := err.(GlyphNotFoundError)
	test.That(t, ok)
	test.T(t, nfe.Glyph, "a.ss01")
}

func TestApplyLayoutContextualSkipped(t *testing.T) {
	idx := glyphIndex{".notdef", "one", "fraction", "one.numr"}
	blocks := []FeatureBlock{{Tag: "frac", Rules: []Rule{
		ClassSubst{Class: []string{"one"}, From: "fraction", To: "fraction"},
		ChainSubst{From: "one", Suffix: []string{"fraction"}, To: "one.numr"},
	}}}
	gsub, _, result, err := ApplyLayout(nil, nil, blocks, idx, Merge)
	test.Error(t, err)
	test.T(t, result.Contextual, 2)
	test.That(t, gsub == nil)
}

func TestApplyRoundTrip(t *testing.T) {
	// extract, regenerate, replace: the wire representation must be stable
	idx := glyphIndex{".notdef", "a", "b", "a.ss01", "b.ss01", "A", "V"}
	blocks := []FeatureBlock{
		{Tag: "ss01", Rules: []Rule{
			SingleSubst{From: "a", To: "a.ss01"},
			SingleSubst{From: "b", To: "b.ss01"},
		}},
		{Tag: "kern", Rules: []Rule{PairKern{Left: "A", Right: "V", XAdvance: -70}}},
	}
	gsub, gpos, _, err := ApplyLayout(nil, nil, blocks, idx, Merge)
	test.Error(t, err)
	first, err := gsub.Write()
	test.Error(t, err)
	second, err := gpos.Write()
	test.Error(t, err)

	rules, skipped := Extract(gsub, gpos, idx.GlyphName)
	test.T(t, len(skipped), 0)
	regenerated := []FeatureBlock{
		{Tag: "ss01", Rules: rules["ss01"], Status: Active},
		{Tag: "kern", Rules: rules["kern"], Status: Active},
	}
	gsub2, err := ParseLayout("GSUB", first)
	test.Error(t, err)
	gpos2, err := ParseLayout("GPOS", second)
	test.Error(t, err)
	gsub2, gpos2, _, err = ApplyLayout(gsub2, gpos2, regenerated, idx, Replace)
	test.Error(t, err)

	b, err := gsub2.Write()
	test.Error(t, err)
	test.T(t, b, first)
	b, err = gpos2.Write()
	test.Error(t, err)
	test.T(t, b, second)
}

package otl

import (
	"testing"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/test"
)

func testNamer(names ...string) Namer {
	return func(glyphID uint16) string {
		if int(glyphID) < len(names) {
			return names[glyphID]
		}
		return ""
	}
}

func TestExtract(t *testing.T) {
	name := testNamer(".notdef", "f", "i", "fi", "a", "a.ss01")
	gsub := &Layout{
		Name:     "GSUB",
		Features: []Feature{{Tag: "ss01", LookupIndices: []uint16{0}}, {Tag: "liga", LookupIndices: []uint16{1}}},
		Lookups: []Lookup{{
			Type:      1,
			Subtables: []Subtable{&SingleSubstSubtable{Coverage: []uint16{4}, Substitutes: []uint16{5}}},
		}, {
			Type: 4,
			Subtables: []Subtable{&LigatureSubstSubtable{
				Coverage: []uint16{1},
				Sets:     [][]Ligature{{{Glyph: 3, Components: []uint16{2}}}},
			}},
		}},
	}
	gpos := &Layout{
		Name:     "GPOS",
		Features: []Feature{{Tag: "kern", LookupIndices: []uint16{0}}},
		Lookups: []Lookup{{
			Type: 2,
			Subtables: []Subtable{&PairPosSubtable{
				Coverage: []uint16{1},
				Sets:     [][]PairValue{{{Second: 2, Value1: ValueRecord{XAdvance: -30}}}},
			}},
		}},
	}

	rules, skipped := Extract(gsub, gpos, name)
	test.T(t, len(skipped), 0)
	test.T(t, rules["ss01"], []Rule{SingleSubst{From: "a", To: "a.ss01"}})
	test.T(t, rules["liga"], []Rule{LigatureSubst{Components: []string{"f", "i"}, Result: "fi"}})
	test.T(t, rules["kern"], []Rule{PairKern{Left: "f", Right: "i", XAdvance: -30}})
}

func TestExtractSkipsRaw(t *testing.T) {
	gsub := &Layout{
		Name:     "GSUB",
		Features: []Feature{{Tag: "calt", LookupIndices: []uint16{0}}},
		Lookups:  []Lookup{{Type: 6, Subtables: []Subtable{&RawSubtable{Data: []byte{0x00, 0x01}}}}},
	}
	rules, skipped := Extract(gsub, nil, testNamer(".notdef"))
	test.T(t, len(rules), 0)
	test.T(t, skipped, []Skipped{{Table: "GSUB", LookupType: 6}})
}

func TestExtractSharedRawLookup(t *testing.T) {
	// a raw lookup referenced by two features is reported once
	gsub := &Layout{
		Name: "GSUB",
		Features: []Feature{
			{Tag: "calt", LookupIndices: []uint16{0}},
			{Tag: "ss01", LookupIndices: []uint16{0}},
		},
		Lookups: []Lookup{{Type: 6, Subtables: []Subtable{&RawSubtable{Data: []byte{0x00, 0x01}}}}},
	}
	_, skipped := Extract(gsub, nil, testNamer(".notdef"))
	test.T(t, skipped, []Skipped{{Table: "GSUB", LookupType: 6}})
}

func TestExtractZeroValueRecords(t *testing.T) {
	gpos := &Layout{
		Name:     "GPOS",
		Features: []Feature{{Tag: "cpsp", LookupIndices: []uint16{0}}},
		Lookups: []Lookup{{
			Type: 1,
			Subtables: []Subtable{&SinglePosSubtable{
				Coverage: []uint16{1, 2},
				Values:   []ValueRecord{{}, {XAdvance: 15}},
			}},
		}},
	}
	rules, _ := Extract(nil, gpos, testNamer(".notdef", "A", "B"))
	test.T(t, rules["cpsp"], []Rule{SinglePos{Glyph: "B", XAdvance: 15}})
}

// class-based kerning stays raw, so extraction yields no rules for it
func TestExtractClassKerning(t *testing.T) {
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(2)  // posFormat 2, class pairs
	w.WriteUint16(22) // coverageOffset
	w.WriteUint16(valueXAdvance)
	w.WriteUint16(0)
	w.WriteUint16(28) // classDef1Offset
	w.WriteUint16(28) // classDef2Offset
	w.WriteUint16(1)  // class1Count
	w.WriteUint16(1)  // class2Count
	w.WriteInt16(-50)
	w.WriteUint16(0) // padding up to coverage
	w.WriteUint16(0)
	w.WriteUint16(1) // coverage format 1
	w.WriteUint16(1)
	w.WriteUint16(3)
	w.WriteUint16(1) // classDef format 1
	w.WriteUint16(3)
	w.WriteUint16(1)
	w.WriteUint16(0)

	subtable, err := parsePairPos(w.Bytes())
	test.Error(t, err)
	_, ok := subtable.(*RawSubtable)
	test.That(t, ok)

	gpos := &Layout{
		Name:     "GPOS",
		Features: []Feature{{Tag: "kern", LookupIndices: []uint16{0}}},
		Lookups:  []Lookup{{Type: 2, Subtables: []Subtable{subtable}}},
	}
	rules, skipped := Extract(nil, gpos, testNamer(".notdef"))
	test.T(t, len(rules["kern"]), 0)
	test.T(t, skipped, []Skipped{{Table: "GPOS", LookupType: 2}})
}

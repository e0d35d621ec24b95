package otl

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestSortCoverage(t *testing.T) {
	layout := &Layout{
		Name: "GSUB",
		Lookups: []Lookup{{
			Type:      1,
			Subtables: []Subtable{&SingleSubstSubtable{Coverage: []uint16{9, 4, 7}, Substitutes: []uint16{19, 14, 17}}},
		}, {
			Type:      1,
			Subtables: []Subtable{&SingleSubstSubtable{Coverage: []uint16{1, 2}, Substitutes: []uint16{11, 12}}},
		}},
	}
	test.T(t, SortCoverage(layout), 1)

	table := layout.Lookups[0].Subtables[0].(*SingleSubstSubtable)
	test.T(t, table.Coverage, []uint16{4, 7, 9})
	test.T(t, table.Substitutes, []uint16{14, 17, 19})

	// a second pass finds nothing to fix
	test.T(t, SortCoverage(layout), 0)
}

func TestSortCoveragePairs(t *testing.T) {
	layout := &Layout{
		Name: "GPOS",
		Lookups: []Lookup{{
			Type: 2,
			Subtables: []Subtable{&PairPosSubtable{
				Coverage: []uint16{8, 3},
				Sets: [][]PairValue{
					{{Second: 9, Value1: ValueRecord{XAdvance: -10}}},
					{{Second: 4, Value1: ValueRecord{XAdvance: -20}}},
				},
			}},
		}},
	}
	test.T(t, SortCoverage(layout), 1)

	table := layout.Lookups[0].Subtables[0].(*PairPosSubtable)
	test.T(t, table.Coverage, []uint16{3, 8})
	test.T(t, table.Sets[0][0].Second, uint16(4))
	test.T(t, table.Sets[1][0].Second, uint16(9))
}

func TestSortCoverageLeavesRaw(t *testing.T) {
	layout := &Layout{
		Name:    "GSUB",
		Lookups: []Lookup{{Type: 6, Subtables: []Subtable{&RawSubtable{Data: []byte{0x00, 0x01}}}}},
	}
	test.T(t, SortCoverage(layout), 0)
}

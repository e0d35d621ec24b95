package otl

import "github.com/tdewolff/font"

// SortCoverage sorts the coverage arrays of every decoded subtable in place,
// permuting the dependent arrays alongside. It returns the number of
// subtables that were out of order. Raw subtables are left untouched.
func SortCoverage(layout *Layout) int {
	fixed := 0
	for i := range layout.Lookups {
		for _, subtable := range layout.Lookups[i].Subtables {
			switch table := subtable.(type) {
			case *SingleSubstSubtable:
				if sortParallel(table.Coverage, func(order []int) {
					table.Substitutes = permuteGlyphs(table.Substitutes, order)
				}) {
					fixed++
				}
			case *LigatureSubstSubtable:
				if sortParallel(table.Coverage, func(order []int) {
					sets := make([][]Ligature, len(order))
					for to, from := range order {
						sets[to] = table.Sets[from]
					}
					table.Sets = sets
				}) {
					fixed++
				}
			case *SinglePosSubtable:
				if sortParallel(table.Coverage, func(order []int) {
					values := make([]ValueRecord, len(order))
					for to, from := range order {
						values[to] = table.Values[from]
					}
					table.Values = values
				}) {
					fixed++
				}
			case *PairPosSubtable:
				if sortParallel(table.Coverage, func(order []int) {
					sets := make([][]PairValue, len(order))
					for to, from := range order {
						sets[to] = table.Sets[from]
					}
					table.Sets = sets
				}) {
					fixed++
				}
			}
		}
	}
	return fixed
}

// SortFontCoverage runs SortCoverage over the layout tables of a font and
// writes back the tables that changed. It returns the number of subtables
// fixed per table name.
func SortFontCoverage(sfnt *font.SFNT) (map[string]int, error) {
	gsub, gpos, err := ParseLayoutTables(sfnt)
	if err != nil {
		return nil, err
	}
	fixed := map[string]int{}
	for _, layout := range []*Layout{gsub, gpos} {
		if layout == nil {
			continue
		}
		if n := SortCoverage(layout); 0 < n {
			b, err := layout.Write()
			if err != nil {
				return nil, err
			}
			fixed[layout.Name] = n
			sfnt.Tables[layout.Name] = b
		}
	}
	return fixed, nil
}

// sortParallel sorts glyphs ascending and, when anything moved, hands the
// permutation to reorder so dependent arrays follow. It reports whether the
// input was out of order.
func sortParallel(glyphs []uint16, reorder func(order []int)) bool {
	sorted := true
	for i := 1; i < len(glyphs); i++ {
		if glyphs[i] < glyphs[i-1] {
			sorted = false
			break
		}
	}
	if sorted {
		return false
	}
	order := coverageOrder(glyphs)
	permuted := permuteGlyphs(glyphs, order)
	copy(glyphs, permuted)
	reorder(order)
	return true
}

func permuteGlyphs(glyphs []uint16, order []int) []uint16 {
	permuted := make([]uint16, len(order))
	for to, from := range order {
		permuted[to] = glyphs[from]
	}
	return permuted
}

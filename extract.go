package otl

// Namer resolves a glyph ID to its name.
type Namer func(glyphID uint16) string

// Extract walks the feature lists of the parsed GSUB and GPOS tables and
// returns the rules of every wired feature, grouped by tag, together with a
// record per subtable that could not be decoded. Either layout may be nil.
// Rule order follows the native table order.
func Extract(gsub, gpos *Layout, name Namer) (map[string][]Rule, []Skipped) {
	type lookupRef struct {
		table string
		index uint16
	}

	rules := map[string][]Rule{}
	var skipped []Skipped
	seen := map[lookupRef]bool{}
	for _, layout := range []*Layout{gsub, gpos} {
		if layout == nil {
			continue
		}
		for _, feature := range layout.Features {
			for _, index := range feature.LookupIndices {
				if int(index) >= len(layout.Lookups) {
					continue
				}
				lookup := &layout.Lookups[index]
				for _, subtable := range lookup.Subtables {
					if _, ok := subtable.(*RawSubtable); ok {
						// a lookup shared by several features is reported once
						if ref := (lookupRef{layout.Name, index}); !seen[ref] {
							seen[ref] = true
							skipped = append(skipped, Skipped{Table: layout.Name, LookupType: lookup.Type})
						}
						continue
					}
					rules[feature.Tag] = append(rules[feature.Tag], extractSubtable(subtable, name)...)
				}
			}
		}
	}
	return rules, skipped
}

func extractSubtable(subtable Subtable, name Namer) []Rule {
	var rules []Rule
	switch table := subtable.(type) {
	case *SingleSubstSubtable:
		for i, glyphID := range table.Coverage {
			rules = append(rules, SingleSubst{
				From: name(glyphID),
				To:   name(table.Substitutes[i]),
			})
		}
	case *LigatureSubstSubtable:
		for i, glyphID := range table.Coverage {
			for _, ligature := range table.Sets[i] {
				components := make([]string, 0, len(ligature.Components)+1)
				components = append(components, name(glyphID))
				for _, component := range ligature.Components {
					components = append(components, name(component))
				}
				rules = append(rules, LigatureSubst{
					Components: components,
					Result:     name(ligature.Glyph),
				})
			}
		}
	case *SinglePosSubtable:
		for i, glyphID := range table.Coverage {
			if value := table.Values[i]; !value.IsZero() {
				rules = append(rules, SinglePos{
					Glyph:      name(glyphID),
					XPlacement: value.XPlacement,
					YPlacement: value.YPlacement,
					XAdvance:   value.XAdvance,
					YAdvance:   value.YAdvance,
				})
			}
		}
	case *PairPosSubtable:
		for i, glyphID := range table.Coverage {
			for _, pair := range table.Sets[i] {
				if pair.Value1.XAdvance != 0 {
					rules = append(rules, PairKern{
						Left:     name(glyphID),
						Right:    name(pair.Second),
						XAdvance: pair.Value1.XAdvance,
					})
				}
			}
		}
	}
	return rules
}

package otl

import (
	"sort"

	"github.com/tdewolff/font"
)

// Mode selects how applied features interact with features already wired in
// the font.
type Mode int

const (
	// Merge adds rules next to what is wired, refusing a tag whose rules
	// conflict with existing ones.
	Merge Mode = iota
	// Replace removes the wired rules of each applied tag first. Other tags
	// are left untouched.
	Replace
)

// GlyphIndexer resolves between glyph names and glyph IDs. *font.SFNT
// satisfies it.
type GlyphIndexer interface {
	FindGlyphName(name string) uint16
	GlyphName(glyphID uint16) string
}

// ApplyResult summarizes one apply run.
type ApplyResult struct {
	Applied    []string        // tags wired into the font
	Conflicts  []ConflictError // tags skipped in merge mode, with the first offending pair each
	Contextual int             // contextual rules not compiled
	Duplicates int             // rules dropped because identical ones were already wired
}

// ApplyLayout compiles feature blocks into the given layout tables and wires
// them into every script. Nil layouts are created on demand. Conflicting tags
// are skipped and reported in the result, not as an error; a glyph name that
// the font cannot resolve is an error.
func ApplyLayout(gsub, gpos *Layout, blocks []FeatureBlock, idx GlyphIndexer, mode Mode) (*Layout, *Layout, ApplyResult, error) {
	result := ApplyResult{}
	for _, block := range blocks {
		var subRules, posRules []Rule
		for _, rule := range block.Rules {
			switch rule.(type) {
			case SingleSubst, LigatureSubst:
				subRules = append(subRules, rule)
			case SinglePos, PairKern:
				posRules = append(posRules, rule)
			case ClassSubst, ChainSubst:
				result.Contextual++
			}
		}
		if len(subRules) == 0 && len(posRules) == 0 {
			continue
		}

		if mode == Merge && gsub != nil {
			if conflict, ok := findConflict(gsub, block.Tag, subRules, idx); ok {
				result.Conflicts = append(result.Conflicts, conflict)
				continue
			}
		}
		if mode == Replace {
			if gsub != nil {
				removeFeature(gsub, block.Tag)
			}
			if gpos != nil {
				removeFeature(gpos, block.Tag)
			}
		}

		applied := false
		if 0 < len(subRules) {
			if gsub == nil {
				gsub = &Layout{Name: "GSUB"}
			}
			n, err := compileFeature(gsub, block.Tag, subRules, idx)
			if err != nil {
				return nil, nil, result, err
			}
			result.Duplicates += len(subRules) - n
			applied = applied || 0 < n
		}
		if 0 < len(posRules) {
			if gpos == nil {
				gpos = &Layout{Name: "GPOS"}
			}
			n, err := compileFeature(gpos, block.Tag, posRules, idx)
			if err != nil {
				return nil, nil, result, err
			}
			result.Duplicates += len(posRules) - n
			applied = applied || 0 < n
		}
		if applied {
			result.Applied = append(result.Applied, block.Tag)
		}
	}
	for _, layout := range []*Layout{gsub, gpos} {
		if layout != nil {
			sortFeatures(layout)
		}
	}
	return gsub, gpos, result, nil
}

// Apply parses the layout tables of a font, applies the feature blocks, and
// writes the changed tables back into sfnt.Tables.
func Apply(sfnt *font.SFNT, blocks []FeatureBlock, mode Mode) (ApplyResult, error) {
	gsub, gpos, err := ParseLayoutTables(sfnt)
	if err != nil {
		return ApplyResult{}, err
	}
	gsub, gpos, result, err := ApplyLayout(gsub, gpos, blocks, sfnt, mode)
	if err != nil {
		return result, err
	}
	// serialize both tables before touching the font
	var gsubData, gposData []byte
	if gsub != nil {
		if gsubData, err = gsub.Write(); err != nil {
			return result, err
		}
	}
	if gpos != nil {
		if gposData, err = gpos.Write(); err != nil {
			return result, err
		}
	}
	if gsub != nil {
		sfnt.Tables["GSUB"] = gsubData
	}
	if gpos != nil {
		sfnt.Tables["GPOS"] = gposData
	}
	return result, nil
}

func resolveGlyph(tag, name string, idx GlyphIndexer) (uint16, error) {
	glyphID := idx.FindGlyphName(name)
	if glyphID == 0 && name != ".notdef" {
		return 0, GlyphNotFoundError{Tag: tag, Glyph: name}
	}
	return glyphID, nil
}

// wiredSingleSubst collects the single substitutions already wired for a tag.
func wiredSingleSubst(layout *Layout, tag string) map[uint16]uint16 {
	subs := map[uint16]uint16{}
	for _, feature := range layout.Features {
		if feature.Tag != tag {
			continue
		}
		for _, index := range feature.LookupIndices {
			if int(index) >= len(layout.Lookups) {
				continue
			}
			for _, subtable := range layout.Lookups[index].Subtables {
				if single, ok := subtable.(*SingleSubstSubtable); ok {
					for i, glyphID := range single.Coverage {
						subs[glyphID] = single.Substitutes[i]
					}
				}
			}
		}
	}
	return subs
}

func findConflict(gsub *Layout, tag string, rules []Rule, idx GlyphIndexer) (ConflictError, bool) {
	wired := wiredSingleSubst(gsub, tag)
	for _, rule := range rules {
		single, ok := rule.(SingleSubst)
		if !ok {
			continue
		}
		from := idx.FindGlyphName(single.From)
		to := idx.FindGlyphName(single.To)
		if existing, ok := wired[from]; ok && existing != to {
			return ConflictError{
				Tag:      tag,
				Glyph:    single.From,
				Existing: idx.GlyphName(existing),
				New:      single.To,
			}, true
		}
	}
	return ConflictError{}, false
}

// compileFeature compiles rules into lookups, appends a feature record for
// tag, and wires it into every language system. It returns the number of
// rules actually added; rules identical to wired ones are dropped.
func compileFeature(layout *Layout, tag string, rules []Rule, idx GlyphIndexer) (int, error) {
	wired := wiredSingleSubst(layout, tag)

	var singles *SingleSubstSubtable
	var ligatures *LigatureSubstSubtable
	ligatureSet := map[uint16]int{}
	var positions *SinglePosSubtable
	var pairs *PairPosSubtable
	pairSet := map[uint16]int{}

	added := 0
	for _, rule := range rules {
		switch r := rule.(type) {
		case SingleSubst:
			from, err := resolveGlyph(tag, r.From, idx)
			if err != nil {
				return added, err
			}
			to, err := resolveGlyph(tag, r.To, idx)
			if err != nil {
				return added, err
			}
			if existing, ok := wired[from]; ok && existing == to {
				continue
			}
			if singles == nil {
				singles = &SingleSubstSubtable{}
			}
			singles.Coverage = append(singles.Coverage, from)
			singles.Substitutes = append(singles.Substitutes, to)
			added++
		case LigatureSubst:
			glyphs := make([]uint16, len(r.Components))
			for i, name := range r.Components {
				glyphID, err := resolveGlyph(tag, name, idx)
				if err != nil {
					return added, err
				}
				glyphs[i] = glyphID
			}
			result, err := resolveGlyph(tag, r.Result, idx)
			if err != nil {
				return added, err
			}
			if ligatures == nil {
				ligatures = &LigatureSubstSubtable{}
			}
			i, ok := ligatureSet[glyphs[0]]
			if !ok {
				i = len(ligatures.Coverage)
				ligatureSet[glyphs[0]] = i
				ligatures.Coverage = append(ligatures.Coverage, glyphs[0])
				ligatures.Sets = append(ligatures.Sets, nil)
			}
			ligatures.Sets[i] = append(ligatures.Sets[i], Ligature{Glyph: result, Components: glyphs[1:]})
			added++
		case SinglePos:
			glyphID, err := resolveGlyph(tag, r.Glyph, idx)
			if err != nil {
				return added, err
			}
			if positions == nil {
				positions = &SinglePosSubtable{}
			}
			positions.Coverage = append(positions.Coverage, glyphID)
			positions.Values = append(positions.Values, ValueRecord{
				XPlacement: r.XPlacement,
				YPlacement: r.YPlacement,
				XAdvance:   r.XAdvance,
				YAdvance:   r.YAdvance,
			})
			added++
		case PairKern:
			left, err := resolveGlyph(tag, r.Left, idx)
			if err != nil {
				return added, err
			}
			right, err := resolveGlyph(tag, r.Right, idx)
			if err != nil {
				return added, err
			}
			if pairs == nil {
				pairs = &PairPosSubtable{}
			}
			i, ok := pairSet[left]
			if !ok {
				i = len(pairs.Coverage)
				pairSet[left] = i
				pairs.Coverage = append(pairs.Coverage, left)
				pairs.Sets = append(pairs.Sets, nil)
			}
			pairs.Sets[i] = append(pairs.Sets[i], PairValue{Second: right, Value1: ValueRecord{XAdvance: r.XAdvance}})
			added++
		}
	}
	if added == 0 {
		return 0, nil
	}

	var lookupIndices []uint16
	addLookup := func(lookupType uint16, subtable Subtable) {
		lookupIndices = append(lookupIndices, uint16(len(layout.Lookups)))
		layout.Lookups = append(layout.Lookups, Lookup{Type: lookupType, Subtables: []Subtable{subtable}})
	}
	if singles != nil {
		addLookup(1, singles)
	}
	if ligatures != nil {
		addLookup(4, ligatures)
	}
	if positions != nil {
		addLookup(1, positions)
	}
	if pairs != nil {
		addLookup(2, pairs)
	}

	// join an existing record of the tag when present, shapers pick one
	// feature record per tag and language system
	for i := range layout.Features {
		if layout.Features[i].Tag == tag {
			layout.Features[i].LookupIndices = append(layout.Features[i].LookupIndices, lookupIndices...)
			return added, nil
		}
	}
	featureIndex := uint16(len(layout.Features))
	layout.Features = append(layout.Features, Feature{Tag: tag, LookupIndices: lookupIndices})
	wireFeature(layout, featureIndex)
	return added, nil
}

// wireFeature adds a feature index to every language system, creating a
// default script when the script list is empty.
func wireFeature(layout *Layout, featureIndex uint16) {
	if len(layout.Scripts) == 0 {
		layout.Scripts = []Script{{
			Tag:     "DFLT",
			Default: &LangSys{Tag: "dflt", RequiredFeatureIndex: 0xFFFF},
		}}
	}
	for i := range layout.Scripts {
		script := &layout.Scripts[i]
		if script.Default != nil {
			script.Default.FeatureIndices = append(script.Default.FeatureIndices, featureIndex)
		}
		for j := range script.LangSys {
			script.LangSys[j].FeatureIndices = append(script.LangSys[j].FeatureIndices, featureIndex)
		}
	}
}

// removeFeature drops every feature record with the given tag, along with the
// lookups that only those records referenced, and remaps all indices.
func removeFeature(layout *Layout, tag string) {
	if len(layout.Features) == 0 {
		return
	}
	featureMap := map[uint16]uint16{}
	var features []Feature
	keptLookups := map[uint16]bool{}
	for i, feature := range layout.Features {
		if feature.Tag == tag {
			continue
		}
		featureMap[uint16(i)] = uint16(len(features))
		features = append(features, feature)
		for _, index := range feature.LookupIndices {
			keptLookups[index] = true
		}
	}
	if len(features) == len(layout.Features) {
		return
	}

	lookupMap := map[uint16]uint16{}
	var lookups []Lookup
	for i := range layout.Lookups {
		if keptLookups[uint16(i)] {
			lookupMap[uint16(i)] = uint16(len(lookups))
			lookups = append(lookups, layout.Lookups[i])
		}
	}
	for i := range features {
		for j, index := range features[i].LookupIndices {
			features[i].LookupIndices[j] = lookupMap[index]
		}
	}
	layout.Features = features
	layout.Lookups = lookups
	remapLangSys(layout, featureMap)
}

// sortFeatures restores the tag order the feature list must have and remaps
// all language system indices accordingly.
func sortFeatures(layout *Layout) {
	order := make([]int, len(layout.Features))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return layout.Features[order[i]].Tag < layout.Features[order[j]].Tag
	})

	featureMap := map[uint16]uint16{}
	features := make([]Feature, len(order))
	for to, from := range order {
		featureMap[uint16(from)] = uint16(to)
		features[to] = layout.Features[from]
	}
	layout.Features = features
	remapLangSys(layout, featureMap)
}

// remapLangSys rewrites feature indices in every language system. Indices
// absent from the map refer to removed features and are dropped.
func remapLangSys(layout *Layout, featureMap map[uint16]uint16) {
	remap := func(langSys *LangSys) {
		if langSys.RequiredFeatureIndex != 0xFFFF {
			if index, ok := featureMap[langSys.RequiredFeatureIndex]; ok {
				langSys.RequiredFeatureIndex = index
			} else {
				langSys.RequiredFeatureIndex = 0xFFFF
			}
		}
		indices := langSys.FeatureIndices[:0]
		for _, index := range langSys.FeatureIndices {
			if mapped, ok := featureMap[index]; ok {
				indices = append(indices, mapped)
			}
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		langSys.FeatureIndices = indices
	}
	for i := range layout.Scripts {
		if layout.Scripts[i].Default != nil {
			remap(layout.Scripts[i].Default)
		}
		for j := range layout.Scripts[i].LangSys {
			remap(&layout.Scripts[i].LangSys[j])
		}
	}
}

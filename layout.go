package otl

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// LangSys holds the feature indices wired for one language system.
type LangSys struct {
	Tag                  string
	RequiredFeatureIndex uint16
	FeatureIndices       []uint16
}

// Script groups the language systems of one script.
type Script struct {
	Tag     string
	Default *LangSys
	LangSys []LangSys
}

// Feature binds a feature tag to lookup list indices.
type Feature struct {
	Tag           string
	UINameID      uint16 // stylistic set feature params, 0 when absent
	LookupIndices []uint16
}

// Lookup is a typed list of subtables.
type Lookup struct {
	Type             uint16
	Flag             uint16
	MarkFilteringSet uint16
	Subtables        []Subtable
}

// Subtable is a decoded lookup subtable, or RawSubtable when the subtype is
// not supported.
type Subtable interface {
	subtable()
}

// SingleSubstSubtable is GSUB lookup type 1. Both wire formats are
// normalized to an explicit coverage-to-substitute mapping.
type SingleSubstSubtable struct {
	Coverage    []uint16
	Substitutes []uint16
}

func (*SingleSubstSubtable) subtable() {}

// Ligature substitutes the covered first glyph plus Components by Glyph.
type Ligature struct {
	Glyph      uint16
	Components []uint16
}

// LigatureSubstSubtable is GSUB lookup type 4.
type LigatureSubstSubtable struct {
	Coverage []uint16
	Sets     [][]Ligature
}

func (*LigatureSubstSubtable) subtable() {}

// ValueRecord holds a positioning adjustment. Device table offsets are not
// carried; subtables using them stay raw.
type ValueRecord struct {
	XPlacement int16
	YPlacement int16
	XAdvance   int16
	YAdvance   int16
}

// IsZero returns true when no adjustment is set.
func (v ValueRecord) IsZero() bool {
	return v.XPlacement == 0 && v.YPlacement == 0 && v.XAdvance == 0 && v.YAdvance == 0
}

// SinglePosSubtable is GPOS lookup type 1. Both wire formats are normalized
// to one value record per covered glyph.
type SinglePosSubtable struct {
	Coverage []uint16
	Values   []ValueRecord
}

func (*SinglePosSubtable) subtable() {}

// PairValue adjusts a pair of the covered first glyph and Second.
type PairValue struct {
	Second uint16
	Value1 ValueRecord
	Value2 ValueRecord
}

// PairPosSubtable is GPOS lookup type 2 format 1, explicit pair lists.
type PairPosSubtable struct {
	Coverage []uint16
	Sets     [][]PairValue
}

func (*PairPosSubtable) subtable() {}

// RawSubtable carries an undecoded subtable verbatim. Internal offsets are
// relative to the subtable start, so the bytes survive re-serialization.
type RawSubtable struct {
	Data []byte
}

func (*RawSubtable) subtable() {}

// Layout is a parsed GSUB or GPOS table.
type Layout struct {
	Name              string
	Scripts           []Script
	Features          []Feature
	Lookups           []Lookup
	FeatureVariations []byte // raw, carried through
}

// Tags returns the feature tags present in the feature list, deduplicated,
// in feature list order.
func (layout *Layout) Tags() []string {
	var tags []string
	seen := map[string]bool{}
	for _, feature := range layout.Features {
		if !seen[feature.Tag] {
			seen[feature.Tag] = true
			tags = append(tags, feature.Tag)
		}
	}
	return tags
}

const (
	lookupFlagUseMarkFilteringSet = 0x0010

	valueXPlacement = 0x0001
	valueYPlacement = 0x0002
	valueXAdvance   = 0x0004
	valueYAdvance   = 0x0008
	valueDeviceMask = 0x00F0
)

// ParseLayout parses a GSUB or GPOS table. The name selects which lookup
// types are decoded; everything else is kept as RawSubtable.
func ParseLayout(name string, b []byte) (*Layout, error) {
	if len(b) < 10 {
		return nil, fmt.Errorf("%s: bad table", name)
	}

	layout := &Layout{Name: name}
	r := parse.NewBinaryReaderBytes(b)
	majorVersion := r.ReadUint16()
	minorVersion := r.ReadUint16()
	if majorVersion != 1 || 1 < minorVersion {
		return nil, fmt.Errorf("%s: bad version", name)
	}

	var err error
	scriptListOffset := r.ReadUint16()
	if len(b)-2 < int(scriptListOffset) {
		return nil, fmt.Errorf("%s: bad scriptList offset", name)
	}
	layout.Scripts, err = parseScriptList(b[scriptListOffset:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	featureListOffset := r.ReadUint16()
	if len(b)-2 < int(featureListOffset) {
		return nil, fmt.Errorf("%s: bad featureList offset", name)
	}
	layout.Features, err = parseFeatureList(b[featureListOffset:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	lookupListOffset := r.ReadUint16()
	if len(b)-2 < int(lookupListOffset) {
		return nil, fmt.Errorf("%s: bad lookupList offset", name)
	}
	if lookupListOffset != 0 {
		layout.Lookups, err = parseLookupList(name, b[lookupListOffset:])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	if minorVersion == 1 {
		featureVariationsOffset := r.ReadUint32()
		if featureVariationsOffset != 0 {
			if uint32(len(b)) < featureVariationsOffset {
				return nil, fmt.Errorf("%s: bad featureVariations offset", name)
			}
			layout.FeatureVariations = b[featureVariationsOffset:]
		}
	}
	return layout, nil
}

func parseScriptList(b []byte) ([]Script, error) {
	r := parse.NewBinaryReaderBytes(b)
	r2 := parse.NewBinaryReaderBytes(b)
	r3 := parse.NewBinaryReaderBytes(b)
	scriptCount := r.ReadUint16()
	if uint32(len(b)) < 2+6*uint32(scriptCount) {
		return nil, fmt.Errorf("bad scriptList")
	}
	scripts := make([]Script, scriptCount)
	for i := 0; i < int(scriptCount); i++ {
		scripts[i].Tag = string(r.ReadBytes(4))
		scriptOffset := r.ReadUint16()

		if _, err := r2.Seek(int64(scriptOffset), 0); err != nil {
			return nil, fmt.Errorf("bad script offset")
		}
		defaultLangSysOffset := r2.ReadUint16()
		langSysCount := r2.ReadUint16()
		for j := -1; j < int(langSysCount); j++ {
			var langSysTag string
			var langSysOffset uint16
			if j == -1 {
				langSysTag = "dflt"
				langSysOffset = defaultLangSysOffset
				if langSysOffset == 0 {
					continue
				}
			} else {
				langSysTag = string(r2.ReadBytes(4))
				langSysOffset = r2.ReadUint16()
			}

			if _, err := r3.Seek(int64(scriptOffset)+int64(langSysOffset), 0); err != nil {
				return nil, fmt.Errorf("bad langSys offset")
			}
			lookupOrderOffset := r3.ReadUint16()
			if lookupOrderOffset != 0 {
				return nil, fmt.Errorf("lookupOrderOffset must be NULL")
			}
			langSys := LangSys{
				Tag:                  langSysTag,
				RequiredFeatureIndex: r3.ReadUint16(),
			}
			featureIndexCount := r3.ReadUint16()
			langSys.FeatureIndices = make([]uint16, featureIndexCount)
			for k := 0; k < int(featureIndexCount); k++ {
				langSys.FeatureIndices[k] = r3.ReadUint16()
			}
			if j == -1 {
				scripts[i].Default = &langSys
			} else {
				scripts[i].LangSys = append(scripts[i].LangSys, langSys)
			}
		}
	}
	return scripts, nil
}

func parseFeatureList(b []byte) ([]Feature, error) {
	r := parse.NewBinaryReaderBytes(b)
	r2 := parse.NewBinaryReaderBytes(b)
	featureCount := r.ReadUint16()
	if uint32(len(b)) < 2+6*uint32(featureCount) {
		return nil, fmt.Errorf("bad featureList")
	}
	features := make([]Feature, featureCount)
	for i := 0; i < int(featureCount); i++ {
		features[i].Tag = string(r.ReadBytes(4))
		featureOffset := r.ReadUint16()

		if _, err := r2.Seek(int64(featureOffset), 0); err != nil {
			return nil, fmt.Errorf("bad feature offset")
		}
		featureParamsOffset := r2.ReadUint16()
		lookupIndexCount := r2.ReadUint16()
		features[i].LookupIndices = make([]uint16, lookupIndexCount)
		for j := 0; j < int(lookupIndexCount); j++ {
			features[i].LookupIndices[j] = r2.ReadUint16()
		}

		// stylistic set feature params carry a UI label name ID
		if featureParamsOffset != 0 && isStylisticSet(features[i].Tag) {
			r3 := parse.NewBinaryReaderBytes(b)
			if _, err := r3.Seek(int64(featureOffset)+int64(featureParamsOffset), 0); err != nil {
				return nil, fmt.Errorf("bad feature params offset")
			}
			version := r3.ReadUint16()
			if version == 0 {
				features[i].UINameID = r3.ReadUint16()
			}
		}
	}
	return features, nil
}

func isStylisticSet(tag string) bool {
	return len(tag) == 4 && tag[0] == 's' && tag[1] == 's' &&
		'0' <= tag[2] && tag[2] <= '9' && '0' <= tag[3] && tag[3] <= '9' && tag != "ss00"
}

func parseLookupList(name string, b []byte) ([]Lookup, error) {
	r := parse.NewBinaryReaderBytes(b)
	r2 := parse.NewBinaryReaderBytes(b)
	lookupCount := r.ReadUint16()
	if uint32(len(b)) < 2+2*uint32(lookupCount) {
		return nil, fmt.Errorf("bad lookupList")
	}
	lookups := make([]Lookup, lookupCount)
	for i := 0; i < int(lookupCount); i++ {
		lookupOffset := r.ReadUint16()

		if _, err := r2.Seek(int64(lookupOffset), 0); err != nil {
			return nil, fmt.Errorf("bad lookup offset")
		}
		lookups[i].Type = r2.ReadUint16()
		lookups[i].Flag = r2.ReadUint16()
		subtableCount := r2.ReadUint16()
		subtableOffsets := make([]uint16, subtableCount)
		for j := 0; j < int(subtableCount); j++ {
			subtableOffsets[j] = r2.ReadUint16()
		}
		if lookups[i].Flag&lookupFlagUseMarkFilteringSet != 0 {
			lookups[i].MarkFilteringSet = r2.ReadUint16()
		}

		if lookups[i].Type == 0 || 9 < lookups[i].Type {
			return nil, fmt.Errorf("bad lookup table type")
		}
		lookups[i].Subtables = make([]Subtable, subtableCount)
		if name == "GSUB" && lookups[i].Type == 7 || name == "GPOS" && lookups[i].Type == 9 {
			if err := resolveExtension(name, &lookups[i], b, lookupOffset, subtableOffsets); err != nil {
				return nil, err
			}
			continue
		}
		for j := 0; j < int(subtableCount); j++ {
			start := int(lookupOffset) + int(subtableOffsets[j])
			if len(b) < start+2 {
				return nil, fmt.Errorf("bad lookup subtable offset")
			}
			subtable, err := parseSubtable(name, lookups[i].Type, b[start:])
			if err != nil {
				return nil, err
			}
			lookups[i].Subtables[j] = subtable
		}
	}
	return lookups, nil
}

// resolveExtension follows the 32-bit offsets of an extension lookup (GSUB
// type 7, GPOS type 9) and decodes the subtables it wraps. Every subtable of
// the lookup must wrap the same type, and that type cannot itself be an
// extension. The lookup's type is replaced by the wrapped type.
func resolveExtension(name string, lookup *Lookup, b []byte, lookupOffset uint16, subtableOffsets []uint16) error {
	extensionType := lookup.Type
	for j, subtableOffset := range subtableOffsets {
		start := int(lookupOffset) + int(subtableOffset)
		if len(b) < start+8 {
			return fmt.Errorf("bad extension subtable offset")
		}
		r := parse.NewBinaryReaderBytes(b[start:])
		format := r.ReadUint16()
		extensionLookupType := r.ReadUint16()
		extensionOffset := r.ReadUint32()
		if format != 1 || extensionLookupType == 0 || 9 < extensionLookupType || extensionLookupType == extensionType {
			return fmt.Errorf("bad extension subtable")
		}
		if j == 0 {
			lookup.Type = extensionLookupType
		} else if extensionLookupType != lookup.Type {
			return fmt.Errorf("bad extension subtable")
		}
		if int64(len(b)-start) < int64(extensionOffset)+2 {
			return fmt.Errorf("bad extension subtable offset")
		}
		subtable, err := parseSubtable(name, extensionLookupType, b[start+int(extensionOffset):])
		if err != nil {
			return err
		}
		lookup.Subtables[j] = subtable
	}
	return nil
}

// parseSubtable decodes the supported subtypes and wraps everything else in
// a RawSubtable.
func parseSubtable(name string, lookupType uint16, b []byte) (Subtable, error) {
	if name == "GSUB" {
		switch lookupType {
		case 1:
			return parseSingleSubst(b)
		case 4:
			return parseLigatureSubst(b)
		}
	} else if name == "GPOS" {
		switch lookupType {
		case 1:
			return parseSinglePos(b)
		case 2:
			return parsePairPos(b)
		}
	}
	return &RawSubtable{Data: b}, nil
}

func parseCoverage(b []byte) ([]uint16, error) {
	r := parse.NewBinaryReaderBytes(b)
	coverageFormat := r.ReadUint16()
	if coverageFormat == 1 {
		glyphCount := r.ReadUint16()
		glyphs := make([]uint16, glyphCount)
		for i := 0; i < int(glyphCount); i++ {
			glyphs[i] = r.ReadUint16()
		}
		return glyphs, nil
	} else if coverageFormat == 2 {
		rangeCount := r.ReadUint16()
		var glyphs []uint16
		for i := 0; i < int(rangeCount); i++ {
			startGlyphID := r.ReadUint16()
			endGlyphID := r.ReadUint16()
			startCoverageIndex := r.ReadUint16()
			if endGlyphID < startGlyphID || int(startCoverageIndex) != len(glyphs) {
				return nil, fmt.Errorf("bad coverage table")
			}
			for glyphID := startGlyphID; ; glyphID++ {
				glyphs = append(glyphs, glyphID)
				if glyphID == endGlyphID {
					break
				}
			}
		}
		return glyphs, nil
	}
	return nil, fmt.Errorf("bad coverage table format")
}

func parseSingleSubst(b []byte) (Subtable, error) {
	r := parse.NewBinaryReaderBytes(b)
	substFormat := r.ReadUint16()
	if substFormat != 1 && substFormat != 2 {
		return nil, fmt.Errorf("bad single substitution table format")
	}
	coverageOffset := r.ReadUint16()
	if len(b) < int(coverageOffset)+4 {
		return nil, fmt.Errorf("bad coverage offset")
	}
	coverage, err := parseCoverage(b[coverageOffset:])
	if err != nil {
		return nil, err
	}

	substitutes := make([]uint16, len(coverage))
	if substFormat == 1 {
		deltaGlyphID := r.ReadInt16()
		for i, glyphID := range coverage {
			// uint16 does modulo%65536
			substitutes[i] = uint16(int(glyphID) + int(deltaGlyphID))
		}
	} else {
		glyphCount := r.ReadUint16()
		if int(glyphCount) != len(coverage) {
			return nil, fmt.Errorf("bad single substitution table")
		}
		for i := 0; i < int(glyphCount); i++ {
			substitutes[i] = r.ReadUint16()
		}
	}
	return &SingleSubstSubtable{
		Coverage:    coverage,
		Substitutes: substitutes,
	}, nil
}

func parseLigatureSubst(b []byte) (Subtable, error) {
	r := parse.NewBinaryReaderBytes(b)
	r2 := parse.NewBinaryReaderBytes(b)
	r3 := parse.NewBinaryReaderBytes(b)
	substFormat := r.ReadUint16()
	if substFormat != 1 {
		return nil, fmt.Errorf("bad ligature substitution table format")
	}

	coverageOffset := r.ReadUint16()
	if len(b) < int(coverageOffset)+4 {
		return nil, fmt.Errorf("bad coverage offset")
	}
	coverage, err := parseCoverage(b[coverageOffset:])
	if err != nil {
		return nil, err
	}

	ligatureSetCount := r.ReadUint16()
	if int(ligatureSetCount) != len(coverage) {
		return nil, fmt.Errorf("bad ligature substitution table")
	}
	sets := make([][]Ligature, ligatureSetCount)
	for i := 0; i < int(ligatureSetCount); i++ {
		ligatureSetOffset := r.ReadUint16()

		if _, err := r2.Seek(int64(ligatureSetOffset), 0); err != nil {
			return nil, fmt.Errorf("bad ligature set offset")
		}
		ligatureCount := r2.ReadUint16()
		sets[i] = make([]Ligature, ligatureCount)
		for j := 0; j < int(ligatureCount); j++ {
			ligatureOffset := r2.ReadUint16()

			if _, err := r3.Seek(int64(ligatureSetOffset)+int64(ligatureOffset), 0); err != nil {
				return nil, fmt.Errorf("bad ligature offset")
			}
			sets[i][j].Glyph = r3.ReadUint16()
			componentCount := r3.ReadUint16()
			if componentCount == 0 {
				return nil, fmt.Errorf("bad ligature substitution table")
			}
			sets[i][j].Components = make([]uint16, componentCount-1)
			for k := 0; k < int(componentCount)-1; k++ {
				sets[i][j].Components[k] = r3.ReadUint16()
			}
		}
	}
	return &LigatureSubstSubtable{
		Coverage: coverage,
		Sets:     sets,
	}, nil
}

func parseValueRecord(r *parse.BinaryReader, valueFormat uint16) (value ValueRecord) {
	if valueFormat&valueXPlacement != 0 {
		value.XPlacement = r.ReadInt16()
	}
	if valueFormat&valueYPlacement != 0 {
		value.YPlacement = r.ReadInt16()
	}
	if valueFormat&valueXAdvance != 0 {
		value.XAdvance = r.ReadInt16()
	}
	if valueFormat&valueYAdvance != 0 {
		value.YAdvance = r.ReadInt16()
	}
	return
}

func parseSinglePos(b []byte) (Subtable, error) {
	r := parse.NewBinaryReaderBytes(b)
	posFormat := r.ReadUint16()
	coverageOffset := r.ReadUint16()
	valueFormat := r.ReadUint16()
	if posFormat != 1 && posFormat != 2 || valueFormat&valueDeviceMask != 0 {
		// device tables are not decoded, keep the subtable verbatim
		return &RawSubtable{Data: b}, nil
	}
	if len(b) < int(coverageOffset)+4 {
		return nil, fmt.Errorf("bad coverage offset")
	}
	coverage, err := parseCoverage(b[coverageOffset:])
	if err != nil {
		return nil, err
	}

	values := make([]ValueRecord, len(coverage))
	if posFormat == 1 {
		value := parseValueRecord(r, valueFormat)
		for i := range values {
			values[i] = value
		}
	} else {
		valueCount := r.ReadUint16()
		if int(valueCount) != len(coverage) {
			return nil, fmt.Errorf("bad single adjustment positioning table")
		}
		for i := 0; i < int(valueCount); i++ {
			values[i] = parseValueRecord(r, valueFormat)
		}
	}
	return &SinglePosSubtable{
		Coverage: coverage,
		Values:   values,
	}, nil
}

func parsePairPos(b []byte) (Subtable, error) {
	r := parse.NewBinaryReaderBytes(b)
	r2 := parse.NewBinaryReaderBytes(b)
	posFormat := r.ReadUint16()
	coverageOffset := r.ReadUint16()
	valueFormat1 := r.ReadUint16()
	valueFormat2 := r.ReadUint16()
	if posFormat != 1 || valueFormat1&valueDeviceMask != 0 || valueFormat2&valueDeviceMask != 0 {
		// class-based pairs (format 2) and device tables are not decoded
		return &RawSubtable{Data: b}, nil
	}
	if len(b) < int(coverageOffset)+4 {
		return nil, fmt.Errorf("bad coverage offset")
	}
	coverage, err := parseCoverage(b[coverageOffset:])
	if err != nil {
		return nil, err
	}

	pairSetCount := r.ReadUint16()
	if int(pairSetCount) != len(coverage) {
		return nil, fmt.Errorf("bad pair adjustment positioning table")
	}
	sets := make([][]PairValue, pairSetCount)
	for i := 0; i < int(pairSetCount); i++ {
		pairSetOffset := r.ReadUint16()

		if _, err := r2.Seek(int64(pairSetOffset), 0); err != nil {
			return nil, fmt.Errorf("bad pair set offset")
		}
		pairValueCount := r2.ReadUint16()
		sets[i] = make([]PairValue, pairValueCount)
		for j := 0; j < int(pairValueCount); j++ {
			sets[i][j].Second = r2.ReadUint16()
			sets[i][j].Value1 = parseValueRecord(r2, valueFormat1)
			sets[i][j].Value2 = parseValueRecord(r2, valueFormat2)
		}
	}
	return &PairPosSubtable{
		Coverage: coverage,
		Sets:     sets,
	}, nil
}

package otl

import (
	"fmt"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// Write serializes the layout back to a binary GSUB or GPOS table. Decoded
// subtables are re-encoded with coverage sorted by glyph ID; raw subtables
// are copied through verbatim. All table offsets are 16 bits, an error is
// returned when the content no longer fits them.
func (layout *Layout) Write() ([]byte, error) {
	scriptList, err := writeScriptList(layout.Scripts)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", layout.Name, err)
	}
	featureList, err := writeFeatureList(layout.Features)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", layout.Name, err)
	}
	lookupList, err := writeLookupList(layout.Lookups)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", layout.Name, err)
	}

	headerSize := uint32(10)
	if layout.FeatureVariations != nil {
		headerSize = 14
	}
	lookupListOffset := headerSize + uint32(len(scriptList)+len(featureList))
	if 65535 < lookupListOffset {
		return nil, fmt.Errorf("%s: table too large", layout.Name)
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(1) // majorVersion
	if layout.FeatureVariations != nil {
		w.WriteUint16(1) // minorVersion
	} else {
		w.WriteUint16(0) // minorVersion
	}
	w.WriteUint16(uint16(headerSize))                           // scriptListOffset
	w.WriteUint16(uint16(headerSize + uint32(len(scriptList)))) // featureListOffset
	w.WriteUint16(uint16(lookupListOffset))
	if layout.FeatureVariations != nil {
		w.WriteUint32(headerSize + uint32(len(scriptList)+len(featureList)+len(lookupList)))
	}
	w.WriteBytes(scriptList)
	w.WriteBytes(featureList)
	w.WriteBytes(lookupList)
	if layout.FeatureVariations != nil {
		w.WriteBytes(layout.FeatureVariations)
	}
	return w.Bytes(), nil
}

func langSysSize(langSys *LangSys) uint32 {
	return 6 + 2*uint32(len(langSys.FeatureIndices))
}

func writeLangSys(w *parse.BinaryWriter, langSys *LangSys) {
	w.WriteUint16(0) // lookupOrderOffset
	w.WriteUint16(langSys.RequiredFeatureIndex)
	w.WriteUint16(uint16(len(langSys.FeatureIndices)))
	for _, index := range langSys.FeatureIndices {
		w.WriteUint16(index)
	}
}

func writeScriptList(scripts []Script) ([]byte, error) {
	// script tables follow the record array back to back
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(uint16(len(scripts)))

	offset := 2 + 6*uint32(len(scripts))
	scriptTables := make([][]byte, len(scripts))
	for i, script := range scripts {
		ws := parse.NewBinaryWriter([]byte{})
		langSysOffset := 4 + 6*uint32(len(script.LangSys))
		if script.Default != nil {
			ws.WriteUint16(uint16(langSysOffset))
			langSysOffset += langSysSize(script.Default)
		} else {
			ws.WriteUint16(0)
		}
		ws.WriteUint16(uint16(len(script.LangSys)))
		for _, langSys := range script.LangSys {
			if 65535 < langSysOffset {
				return nil, fmt.Errorf("script table too large")
			}
			ws.WriteBytes([]byte(langSys.Tag))
			ws.WriteUint16(uint16(langSysOffset))
			langSysOffset += langSysSize(&langSys)
		}
		if script.Default != nil {
			writeLangSys(ws, script.Default)
		}
		for j := range script.LangSys {
			writeLangSys(ws, &script.LangSys[j])
		}
		scriptTables[i] = ws.Bytes()

		if 65535 < offset {
			return nil, fmt.Errorf("script list too large")
		}
		w.WriteBytes([]byte(script.Tag))
		w.WriteUint16(uint16(offset))
		offset += uint32(len(scriptTables[i]))
	}
	for _, table := range scriptTables {
		w.WriteBytes(table)
	}
	return w.Bytes(), nil
}

func writeFeatureList(features []Feature) ([]byte, error) {
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(uint16(len(features)))

	offset := 2 + 6*uint32(len(features))
	featureTables := make([][]byte, len(features))
	for i, feature := range features {
		wf := parse.NewBinaryWriter([]byte{})
		hasParams := feature.UINameID != 0 && isStylisticSet(feature.Tag)
		if hasParams {
			// feature params follow the lookup indices
			wf.WriteUint16(uint16(4 + 2*len(feature.LookupIndices)))
		} else {
			wf.WriteUint16(0)
		}
		wf.WriteUint16(uint16(len(feature.LookupIndices)))
		for _, index := range feature.LookupIndices {
			wf.WriteUint16(index)
		}
		if hasParams {
			wf.WriteUint16(0) // version
			wf.WriteUint16(feature.UINameID)
		}
		featureTables[i] = wf.Bytes()

		if 65535 < offset {
			return nil, fmt.Errorf("feature list too large")
		}
		w.WriteBytes([]byte(feature.Tag))
		w.WriteUint16(uint16(offset))
		offset += uint32(len(featureTables[i]))
	}
	for _, table := range featureTables {
		w.WriteBytes(table)
	}
	return w.Bytes(), nil
}

func writeLookupList(lookups []Lookup) ([]byte, error) {
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(uint16(len(lookups)))

	offset := 2 + 2*uint32(len(lookups))
	lookupTables := make([][]byte, len(lookups))
	for i, lookup := range lookups {
		subtables := make([][]byte, len(lookup.Subtables))
		for j, subtable := range lookup.Subtables {
			table, err := writeSubtable(subtable)
			if err != nil {
				return nil, err
			}
			subtables[j] = table
		}

		wl := parse.NewBinaryWriter([]byte{})
		wl.WriteUint16(lookup.Type)
		wl.WriteUint16(lookup.Flag)
		wl.WriteUint16(uint16(len(subtables)))
		subtableOffset := 6 + 2*uint32(len(subtables))
		if lookup.Flag&lookupFlagUseMarkFilteringSet != 0 {
			subtableOffset += 2
		}
		for _, subtable := range subtables {
			if 65535 < subtableOffset {
				return nil, fmt.Errorf("lookup table too large")
			}
			wl.WriteUint16(uint16(subtableOffset))
			subtableOffset += uint32(len(subtable))
		}
		if lookup.Flag&lookupFlagUseMarkFilteringSet != 0 {
			wl.WriteUint16(lookup.MarkFilteringSet)
		}
		for _, subtable := range subtables {
			wl.WriteBytes(subtable)
		}
		lookupTables[i] = wl.Bytes()

		if 65535 < offset {
			return nil, fmt.Errorf("lookup list too large")
		}
		w.WriteUint16(uint16(offset))
		offset += uint32(len(lookupTables[i]))
	}
	for _, table := range lookupTables {
		w.WriteBytes(table)
	}
	return w.Bytes(), nil
}

// coverageOrder returns the indices of glyphs in ascending glyph ID order.
func coverageOrder(glyphs []uint16) []int {
	order := make([]int, len(glyphs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return glyphs[order[i]] < glyphs[order[j]]
	})
	return order
}

func writeCoverage(w *parse.BinaryWriter, glyphs []uint16, order []int) {
	w.WriteUint16(1) // coverageFormat
	w.WriteUint16(uint16(len(glyphs)))
	for _, i := range order {
		w.WriteUint16(glyphs[i])
	}
}

func valueFormatFor(values []ValueRecord) uint16 {
	var valueFormat uint16
	for _, value := range values {
		if value.XPlacement != 0 {
			valueFormat |= valueXPlacement
		}
		if value.YPlacement != 0 {
			valueFormat |= valueYPlacement
		}
		if value.XAdvance != 0 {
			valueFormat |= valueXAdvance
		}
		if value.YAdvance != 0 {
			valueFormat |= valueYAdvance
		}
	}
	return valueFormat
}

func valueRecordSize(valueFormat uint16) uint32 {
	var n uint32
	for bit := uint16(valueXPlacement); bit <= valueYAdvance; bit <<= 1 {
		if valueFormat&bit != 0 {
			n += 2
		}
	}
	return n
}

func writeValueRecord(w *parse.BinaryWriter, valueFormat uint16, value ValueRecord) {
	if valueFormat&valueXPlacement != 0 {
		w.WriteInt16(value.XPlacement)
	}
	if valueFormat&valueYPlacement != 0 {
		w.WriteInt16(value.YPlacement)
	}
	if valueFormat&valueXAdvance != 0 {
		w.WriteInt16(value.XAdvance)
	}
	if valueFormat&valueYAdvance != 0 {
		w.WriteInt16(value.YAdvance)
	}
}

func writeSubtable(subtable Subtable) ([]byte, error) {
	switch table := subtable.(type) {
	case *SingleSubstSubtable:
		return writeSingleSubst(table)
	case *LigatureSubstSubtable:
		return writeLigatureSubst(table)
	case *SinglePosSubtable:
		return writeSinglePos(table)
	case *PairPosSubtable:
		return writePairPos(table)
	case *RawSubtable:
		return table.Data, nil
	}
	return nil, fmt.Errorf("unknown subtable")
}

func writeSingleSubst(table *SingleSubstSubtable) ([]byte, error) {
	order := coverageOrder(table.Coverage)

	coverageOffset := 6 + 2*uint32(len(table.Coverage))
	if 65535 < coverageOffset {
		return nil, fmt.Errorf("single substitution table too large")
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(2) // substFormat
	w.WriteUint16(uint16(coverageOffset))
	w.WriteUint16(uint16(len(table.Coverage)))
	for _, i := range order {
		w.WriteUint16(table.Substitutes[i])
	}
	writeCoverage(w, table.Coverage, order)
	return w.Bytes(), nil
}

func writeLigatureSubst(table *LigatureSubstSubtable) ([]byte, error) {
	order := coverageOrder(table.Coverage)

	// ligature sets follow the header, coverage comes last
	headerSize := 6 + 2*uint32(len(table.Sets))
	setTables := make([][]byte, len(table.Sets))
	for i, k := range order {
		set := table.Sets[k]
		ws := parse.NewBinaryWriter([]byte{})
		ws.WriteUint16(uint16(len(set)))
		ligatureOffset := 2 + 2*uint32(len(set))
		for _, ligature := range set {
			if 65535 < ligatureOffset {
				return nil, fmt.Errorf("ligature set too large")
			}
			ws.WriteUint16(uint16(ligatureOffset))
			ligatureOffset += 4 + 2*uint32(len(ligature.Components))
		}
		for _, ligature := range set {
			ws.WriteUint16(ligature.Glyph)
			ws.WriteUint16(uint16(len(ligature.Components) + 1))
			for _, component := range ligature.Components {
				ws.WriteUint16(component)
			}
		}
		setTables[i] = ws.Bytes()
	}
	setsSize := uint32(0)
	for _, set := range setTables {
		setsSize += uint32(len(set))
	}
	if 65535 < headerSize+setsSize {
		return nil, fmt.Errorf("ligature substitution table too large")
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(1)                             // substFormat
	w.WriteUint16(uint16(headerSize + setsSize)) // coverageOffset
	w.WriteUint16(uint16(len(table.Sets)))
	offset := headerSize
	for _, set := range setTables {
		w.WriteUint16(uint16(offset))
		offset += uint32(len(set))
	}
	for _, set := range setTables {
		w.WriteBytes(set)
	}
	writeCoverage(w, table.Coverage, order)
	return w.Bytes(), nil
}

func writeSinglePos(table *SinglePosSubtable) ([]byte, error) {
	order := coverageOrder(table.Coverage)
	valueFormat := valueFormatFor(table.Values)
	recordSize := valueRecordSize(valueFormat)

	coverageOffset := 8 + recordSize*uint32(len(table.Values))
	if 65535 < coverageOffset {
		return nil, fmt.Errorf("single adjustment positioning table too large")
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(2) // posFormat
	w.WriteUint16(uint16(coverageOffset))
	w.WriteUint16(valueFormat)
	w.WriteUint16(uint16(len(table.Values)))
	for _, i := range order {
		writeValueRecord(w, valueFormat, table.Values[i])
	}
	writeCoverage(w, table.Coverage, order)
	return w.Bytes(), nil
}

func writePairPos(table *PairPosSubtable) ([]byte, error) {
	order := coverageOrder(table.Coverage)

	values1 := []ValueRecord{}
	values2 := []ValueRecord{}
	for _, set := range table.Sets {
		for _, pair := range set {
			values1 = append(values1, pair.Value1)
			values2 = append(values2, pair.Value2)
		}
	}
	valueFormat1 := valueFormatFor(values1)
	valueFormat2 := valueFormatFor(values2)

	headerSize := 10 + 2*uint32(len(table.Sets))
	setTables := make([][]byte, len(table.Sets))
	for i, k := range order {
		set := table.Sets[k]
		ws := parse.NewBinaryWriter([]byte{})
		ws.WriteUint16(uint16(len(set)))
		for _, pair := range set {
			ws.WriteUint16(pair.Second)
			writeValueRecord(ws, valueFormat1, pair.Value1)
			writeValueRecord(ws, valueFormat2, pair.Value2)
		}
		setTables[i] = ws.Bytes()
	}
	setsSize := uint32(0)
	for _, set := range setTables {
		setsSize += uint32(len(set))
	}
	if 65535 < headerSize+setsSize {
		return nil, fmt.Errorf("pair adjustment positioning table too large")
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(1)                             // posFormat
	w.WriteUint16(uint16(headerSize + setsSize)) // coverageOffset
	w.WriteUint16(valueFormat1)
	w.WriteUint16(valueFormat2)
	w.WriteUint16(uint16(len(table.Sets)))
	offset := headerSize
	for _, set := range setTables {
		w.WriteUint16(uint16(offset))
		offset += uint32(len(set))
	}
	for _, set := range setTables {
		w.WriteBytes(set)
	}
	writeCoverage(w, table.Coverage, order)
	return w.Bytes(), nil
}

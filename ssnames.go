package otl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/tdewolff/font"
	"github.com/tdewolff/parse/v2"
)

// SSNameIssue is a stylistic set without a usable UI label.
type SSNameIssue struct {
	Tag       string
	NameID    uint16 // 0 when the feature carries no parameters
	Label     string // current label, empty when missing
	Suggested string
}

// AuditSSNames reports the stylistic sets of a font whose feature parameters
// or name records are missing, with a suggested label for each.
func AuditSSNames(sfnt *font.SFNT, conv Conventions) ([]SSNameIssue, error) {
	gsub, _, err := ParseLayoutTables(sfnt)
	if err != nil {
		return nil, err
	} else if gsub == nil {
		return nil, nil
	}
	names, err := parseNameTable(sfnt.Tables["name"])
	if err != nil {
		return nil, err
	}
	groups := Classify(FontCatalog(sfnt), conv)

	var issues []SSNameIssue
	seen := map[string]bool{}
	for _, feature := range gsub.Features {
		if !isStylisticSet(feature.Tag) || seen[feature.Tag] {
			continue
		}
		seen[feature.Tag] = true
		label := ""
		if feature.UINameID != 0 {
			label = names.Get(feature.UINameID)
		}
		if feature.UINameID != 0 && label != "" {
			continue
		}
		issues = append(issues, SSNameIssue{
			Tag:       feature.Tag,
			NameID:    feature.UINameID,
			Label:     label,
			Suggested: suggestSSLabel(feature.Tag, groups[feature.Tag]),
		})
	}
	return issues, nil
}

// FixSSNames writes the suggested labels of AuditSSNames into the font,
// allocating name IDs as needed, and returns the number of sets fixed.
func FixSSNames(sfnt *font.SFNT, conv Conventions) (int, error) {
	issues, err := AuditSSNames(sfnt, conv)
	if err != nil || len(issues) == 0 {
		return 0, err
	}
	gsub, _, err := ParseLayoutTables(sfnt)
	if err != nil {
		return 0, err
	}
	names, err := parseNameTable(sfnt.Tables["name"])
	if err != nil {
		return 0, err
	}

	for _, issue := range issues {
		nameID := issue.NameID
		if nameID == 0 {
			nameID = names.nextNameID()
		}
		names.Set(nameID, issue.Suggested)
		for i := range gsub.Features {
			if gsub.Features[i].Tag == issue.Tag {
				gsub.Features[i].UINameID = nameID
			}
		}
	}
	gsubData, err := gsub.Write()
	if err != nil {
		return 0, err
	}
	sfnt.Tables["name"] = names.Write()
	sfnt.Tables["GSUB"] = gsubData
	return len(issues), nil
}

// suggestSSLabel derives a label from the naming evidence of the set, falling
// back to the spelled-out set number.
func suggestSSLabel(tag string, pairs []GlyphPair) string {
	keyword := func(words ...string) bool {
		for _, pair := range pairs {
			lower := strings.ToLower(pair.Variant)
			for _, word := range words {
				if strings.Contains(lower, word) {
					return true
				}
			}
		}
		return false
	}
	switch {
	case keyword("swash", "swsh"):
		return "Swash Alternates"
	case keyword("ornament", "ornm"):
		return "Ornaments"
	case keyword("titling", "titl"):
		return "Titling Alternates"
	}

	if 0 < len(pairs) {
		upper, lower, figure := 0, 0, 0
		for _, pair := range pairs {
			switch {
			case isFigureName(pair.Base):
				figure++
			case isUpper(pair.Base):
				upper++
			default:
				lower++
			}
		}
		switch len(pairs) {
		case figure:
			return "Alternate Figures"
		case upper:
			return "Uppercase Alternates"
		case lower:
			return "Lowercase Alternates"
		}
	}

	n, _ := strconv.Atoi(tag[2:])
	return fmt.Sprintf("Stylistic Set %d", n)
}

func isFigureName(name string) bool {
	switch strings.ToLower(name) {
	case "zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine":
		return true
	}
	return len(name) == 1 && '0' <= name[0] && name[0] <= '9'
}

// The name table is edited at the byte level so that label fixes round-trip
// through SFNT.Write without touching the rest of the font.

type nameRecord struct {
	Platform uint16
	Encoding uint16
	Language uint16
	Name     uint16
	Value    []byte
}

type nameTable struct {
	Version  uint16
	Records  []nameRecord
	LangTags [][]byte
}

func parseNameTable(b []byte) (*nameTable, error) {
	if len(b) < 6 {
		return nil, fmt.Errorf("name: bad table")
	}
	r := parse.NewBinaryReaderBytes(b)
	table := &nameTable{}
	table.Version = r.ReadUint16()
	if 1 < table.Version {
		return nil, fmt.Errorf("name: unsupported version %d", table.Version)
	}
	count := r.ReadUint16()
	storageOffset := uint32(r.ReadUint16())
	if uint32(len(b)) < 6+12*uint32(count) {
		return nil, fmt.Errorf("name: bad table")
	}
	for i := 0; i < int(count); i++ {
		record := nameRecord{
			Platform: r.ReadUint16(),
			Encoding: r.ReadUint16(),
			Language: r.ReadUint16(),
			Name:     r.ReadUint16(),
		}
		length := uint32(r.ReadUint16())
		offset := uint32(r.ReadUint16())
		if uint32(len(b)) < storageOffset+offset+length {
			return nil, fmt.Errorf("name: bad string offset for name ID %d", record.Name)
		}
		record.Value = b[storageOffset+offset : storageOffset+offset+length]
		table.Records = append(table.Records, record)
	}
	if table.Version == 1 {
		langTagCount := r.ReadUint16()
		for i := 0; i < int(langTagCount); i++ {
			length := uint32(r.ReadUint16())
			offset := uint32(r.ReadUint16())
			if uint32(len(b)) < storageOffset+offset+length {
				return nil, fmt.Errorf("name: bad language tag offset")
			}
			table.LangTags = append(table.LangTags, b[storageOffset+offset:storageOffset+offset+length])
		}
	}
	return table, nil
}

func (table *nameTable) Write() []byte {
	sort.SliceStable(table.Records, func(i, j int) bool {
		a, b := table.Records[i], table.Records[j]
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		} else if a.Encoding != b.Encoding {
			return a.Encoding < b.Encoding
		} else if a.Language != b.Language {
			return a.Language < b.Language
		}
		return a.Name < b.Name
	})

	headerSize := uint32(6 + 12*len(table.Records))
	if table.Version == 1 {
		headerSize += uint32(2 + 4*len(table.LangTags))
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(table.Version)
	w.WriteUint16(uint16(len(table.Records)))
	w.WriteUint16(uint16(headerSize))

	storage := parse.NewBinaryWriter([]byte{})
	offsets := map[string]uint16{}
	alloc := func(value []byte) uint16 {
		if offset, ok := offsets[string(value)]; ok {
			return offset
		}
		offset := uint16(storage.Len())
		offsets[string(value)] = offset
		storage.WriteBytes(value)
		return offset
	}
	for _, record := range table.Records {
		w.WriteUint16(record.Platform)
		w.WriteUint16(record.Encoding)
		w.WriteUint16(record.Language)
		w.WriteUint16(record.Name)
		w.WriteUint16(uint16(len(record.Value)))
		w.WriteUint16(alloc(record.Value))
	}
	if table.Version == 1 {
		w.WriteUint16(uint16(len(table.LangTags)))
		for _, langTag := range table.LangTags {
			w.WriteUint16(uint16(len(langTag)))
			w.WriteUint16(alloc(langTag))
		}
	}
	w.WriteBytes(storage.Bytes())
	return w.Bytes()
}

// Get returns the Windows English value for a name ID, falling back to the
// Macintosh Roman record.
func (table *nameTable) Get(nameID uint16) string {
	for _, record := range table.Records {
		if record.Name == nameID && record.Platform == 3 && record.Encoding == 1 && record.Language == 0x0409 {
			return decodeUTF16BE(record.Value)
		}
	}
	for _, record := range table.Records {
		if record.Name == nameID && record.Platform == 1 && record.Encoding == 0 {
			return string(record.Value)
		}
	}
	return ""
}

// Set writes the Windows English record for a name ID, replacing an existing
// one.
func (table *nameTable) Set(nameID uint16, value string) {
	encoded := encodeUTF16BE(value)
	for i, record := range table.Records {
		if record.Name == nameID && record.Platform == 3 && record.Encoding == 1 && record.Language == 0x0409 {
			table.Records[i].Value = encoded
			return
		}
	}
	table.Records = append(table.Records, nameRecord{
		Platform: 3,
		Encoding: 1,
		Language: 0x0409,
		Name:     nameID,
		Value:    encoded,
	})
}

// nextNameID returns the first free name ID outside the reserved range.
func (table *nameTable) nextNameID() uint16 {
	next := uint16(256)
	for _, record := range table.Records {
		if next <= record.Name {
			next = record.Name + 1
		}
	}
	return next
}

func decodeUTF16BE(b []byte) string {
	codes := make([]uint16, len(b)/2)
	for i := range codes {
		codes[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(codes))
}

func encodeUTF16BE(s string) []byte {
	codes := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(codes))
	for i, code := range codes {
		b[2*i] = byte(code >> 8)
		b[2*i+1] = byte(code)
	}
	return b
}

package otl

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestNameTableRoundTrip(t *testing.T) {
	table := &nameTable{}
	table.Set(1, "Demo Family")
	table.Set(256, "Swash Alternates")
	b := table.Write()

	parsed, err := parseNameTable(b)
	test.Error(t, err)
	test.T(t, parsed.Get(1), "Demo Family")
	test.T(t, parsed.Get(256), "Swash Alternates")
	test.T(t, parsed.Get(2), "")

	// replacing a record must not grow the table
	parsed.Set(256, "Titling Alternates")
	reparsed, err := parseNameTable(parsed.Write())
	test.Error(t, err)
	test.T(t, len(reparsed.Records), 2)
	test.T(t, reparsed.Get(256), "Titling Alternates")
}

func TestNameTableMacintoshFallback(t *testing.T) {
	table := &nameTable{
		Records: []nameRecord{{Platform: 1, Encoding: 0, Language: 0, Name: 300, Value: []byte("Ornaments")}},
	}
	parsed, err := parseNameTable(table.Write())
	test.Error(t, err)
	test.T(t, parsed.Get(300), "Ornaments")
}

func TestNameTableNextNameID(t *testing.T) {
	table := &nameTable{}
	table.Set(6, "DemoFamily-Regular")
	test.T(t, table.nextNameID(), uint16(256))
	table.Set(258, "Old Label")
	test.T(t, table.nextNameID(), uint16(259))
}

func TestSuggestSSLabel(t *testing.T) {
	test.T(t, suggestSSLabel("ss01", []GlyphPair{{"a", "a.ss01.swash"}}), "Swash Alternates")
	test.T(t, suggestSSLabel("ss02", []GlyphPair{{"asterisk", "asterisk.ornm.ss02"}}), "Ornaments")
	test.T(t, suggestSSLabel("ss03", []GlyphPair{{"A", "A.ss03"}, {"B", "B.ss03"}}), "Uppercase Alternates")
	test.T(t, suggestSSLabel("ss04", []GlyphPair{{"a", "a.ss04"}, {"g", "g.ss04"}}), "Lowercase Alternates")
	test.T(t, suggestSSLabel("ss05", []GlyphPair{{"one", "one.ss05"}, {"two", "two.ss05"}}), "Alternate Figures")
	test.T(t, suggestSSLabel("ss06", []GlyphPair{{"a", "a.ss06"}, {"One", "One.ss06"}}), "Stylistic Set 6")
	test.T(t, suggestSSLabel("ss17", nil), "Stylistic Set 17")
}

func TestUTF16BE(t *testing.T) {
	test.T(t, decodeUTF16BE(encodeUTF16BE("Stylistic Set 1")), "Stylistic Set 1")
	test.T(t, decodeUTF16BE([]byte{0x00, 0x41, 0x00, 0x42}), "AB")
	test.T(t, encodeUTF16BE("A"), []byte{0x00, 0x41})
}

package otl

import (
	"strings"
	"testing"

	"github.com/tdewolff/test"
)

func TestParseFeatureFile(t *testing.T) {
	b := []byte(`# demo
feature ss01 {
  sub a by a.ss01; # trailing comment
  sub f i by fi;
} ss01;

feature kern {
  pos A V -70;
  pos T <0 0 -20 0>;
} kern;
`)
	blocks, err := ParseFeatureFile(b)
	test.Error(t, err)
	test.T(t, len(blocks), 2)
	test.T(t, blocks[0].Tag, "ss01")
	test.T(t, blocks[0].Rules, []Rule{
		SingleSubst{From: "a", To: "a.ss01"},
		LigatureSubst{Components: []string{"f", "i"}, Result: "fi"},
	})
	test.T(t, blocks[1].Tag, "kern")
	test.T(t, blocks[1].Rules, []Rule{
		PairKern{Left: "A", Right: "V", XAdvance: -70},
		SinglePos{Glyph: "T", XAdvance: -20},
	})
}

func TestParseFeatureFileContextual(t *testing.T) {
	b := []byte(`feature frac {
  sub [one two] fraction' by fraction;
  sub one' fraction by one.numr;
  sub fraction two' by two.dnom;
} frac;
`)
	blocks, err := ParseFeatureFile(b)
	test.Error(t, err)
	test.T(t, blocks[0].Rules, []Rule{
		ClassSubst{Class: []string{"one", "two"}, From: "fraction", To: "fraction"},
		ChainSubst{From: "one", Suffix: []string{"fraction"}, To: "one.numr"},
		ChainSubst{Prefix: []string{"fraction"}, From: "two", To: "two.dnom"},
	})
}

func TestParseFeatureFileRoundTrip(t *testing.T) {
	catalog := GlyphCatalog{"a", "b", "one", "two", "fraction", "a.sc", "b.sc", "one.numr", "two.dnom"}
	conv := DefaultConventions()
	blocks := Generate(catalog, Classify(catalog, conv), nil, nil, conv)
	test.That(t, 0 < len(blocks))

	sb := strings.Builder{}
	for _, block := range blocks {
		sb.WriteString(block.Fea())
		sb.WriteByte('\n')
	}
	parsed, err := ParseFeatureFile([]byte(sb.String()))
	test.Error(t, err)
	test.T(t, len(parsed), len(blocks))
	for i := range parsed {
		test.T(t, parsed[i].Tag, blocks[i].Tag)
		test.T(t, parsed[i].Rules, blocks[i].Rules)
	}
}

func TestParseFeatureFileErrors(t *testing.T) {
	for _, tt := range []struct {
		fea string
		msg string
	}{
		{"sub a by b;", "statement outside feature block"},
		{"feature toolong {\n} toolong;", "bad feature tag"},
		{"feature ss01 {\n", "feature block not closed"},
		{"feature ss01 {\n} ss02;", "mismatched closing tag"},
		{"feature ss01 {\n  sub a by b\n} ss01;", "missing ;"},
		{"feature ss01 {\n  sub [a b by c;\n} ss01;", "unclosed glyph class"},
		{"feature ss01 {\n  sub a' b' by c;\n} ss01;", "more than one marked glyph"},
		{"feature kern {\n  pos A V much;\n} kern;", "bad kerning value"},
	} {
		_, err := ParseFeatureFile([]byte(tt.fea))
		test.That(t, err != nil)
		test.That(t, strings.Contains(err.Error(), tt.msg))
	}
}

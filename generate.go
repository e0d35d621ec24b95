package otl

import (
	"sort"
	"strings"
)

// Generate produces one feature block per catalog tag with evidence. Wired
// tags keep their extracted rules and come first; tags with naming evidence
// but no wiring follow as inactive (two or more pairs) or suggested (single
// pair). Each section is ordered by the catalog order of conv.Tags.
func Generate(catalog GlyphCatalog, groups NamingGroup, extracted map[string][]Rule, active map[string]bool, conv Conventions) []FeatureBlock {
	present := make(map[string]bool, len(catalog))
	for _, name := range catalog {
		present[name] = true
	}

	// substitution pairs already wired somewhere in the font
	existing := map[GlyphPair]bool{}
	for _, rules := range extracted {
		for _, rule := range rules {
			if single, ok := rule.(SingleSubst); ok {
				existing[GlyphPair{Base: single.From, Variant: single.To}] = true
			}
		}
	}

	known := map[string]bool{}
	var blocks []FeatureBlock
	for _, tag := range conv.Tags {
		known[tag] = true
		if active[tag] && 0 < len(extracted[tag]) {
			blocks = append(blocks, FeatureBlock{Tag: tag, Rules: extracted[tag], Status: Active})
		}
	}

	// wired tags outside the catalog still belong to the active section
	var extra []string
	for tag := range extracted {
		if active[tag] && !known[tag] && 0 < len(extracted[tag]) {
			extra = append(extra, tag)
		}
	}
	sort.Strings(extra)
	for _, tag := range extra {
		blocks = append(blocks, FeatureBlock{Tag: tag, Rules: extracted[tag], Status: Active})
	}

	for _, status := range []Status{Inactive, Suggested} {
		for _, tag := range conv.Tags {
			if active[tag] {
				continue
			}
			pairs := []GlyphPair{}
			for _, pair := range groups[tag] {
				if !existing[pair] {
					pairs = append(pairs, pair)
				}
			}
			if len(pairs) == 0 {
				continue
			}
			if status == Inactive && len(pairs) < 2 || status == Suggested && 2 <= len(pairs) {
				continue
			}
			rules := generateRules(tag, pairs, catalog, present, conv)
			if 0 < len(rules) {
				blocks = append(blocks, FeatureBlock{Tag: tag, Rules: rules, Status: status})
			}
		}
	}
	return blocks
}

func generateRules(tag string, pairs []GlyphPair, catalog GlyphCatalog, present map[string]bool, conv Conventions) []Rule {
	switch tag {
	case "liga", "dlig", "kern":
		// only ever passed through from extraction, never generated from naming
		return nil
	case "frac":
		return fracRules(pairs, catalog, present, conv)
	case "ordn":
		return ordnRules(pairs, present, conv)
	case "case":
		return caseRules(pairs, catalog)
	}
	rules := make([]Rule, 0, len(pairs))
	for _, pair := range pairs {
		rules = append(rules, SingleSubst{From: pair.Base, To: pair.Variant})
	}
	return rules
}

// fracRules builds slash-contextual fraction rules when a slash glyph can be
// located, and falls back to plain substitutions otherwise. The fallback is a
// deliberate, stable limitation.
func fracRules(pairs []GlyphPair, catalog GlyphCatalog, present map[string]bool, conv Conventions) []Rule {
	var numerators, denominators []GlyphPair
	for _, pair := range pairs {
		if strings.HasSuffix(pair.Variant, ".numerator") || strings.HasSuffix(pair.Variant, ".numr") {
			numerators = append(numerators, pair)
		} else if strings.HasSuffix(pair.Variant, ".denominator") || strings.HasSuffix(pair.Variant, ".dnom") {
			denominators = append(denominators, pair)
		}
	}

	slash := ""
	for _, name := range conv.Slashes {
		if present[name] {
			slash = name
			break
		}
	}
	if slash == "" {
		for _, name := range catalog {
			lower := strings.ToLower(name)
			if strings.Contains(lower, "slash") || strings.Contains(lower, "fraction") {
				slash = name
				break
			}
		}
	}

	var rules []Rule
	if slash != "" && (0 < len(numerators) || 0 < len(denominators)) {
		if 0 < len(numerators) {
			bases := make([]string, len(numerators))
			for i, pair := range numerators {
				bases[i] = pair.Base
			}
			rules = append(rules, ClassSubst{Class: bases, From: slash, To: slash})
			for _, pair := range numerators {
				rules = append(rules, ChainSubst{From: pair.Base, Suffix: []string{slash}, To: pair.Variant})
			}
		}
		for _, pair := range denominators {
			rules = append(rules, ChainSubst{Prefix: []string{slash}, From: pair.Base, To: pair.Variant})
		}
	} else {
		for _, pair := range numerators {
			rules = append(rules, SingleSubst{From: pair.Base, To: pair.Variant})
		}
		for _, pair := range denominators {
			rules = append(rules, SingleSubst{From: pair.Base, To: pair.Variant})
		}
	}
	return rules
}

// ordnRules emits the contextual after-figure rule only for the small fixed
// set of common ordinal letters; every other ordinal glyph gets the plain
// substitution. The asymmetry is intentional and kept stable.
func ordnRules(pairs []GlyphPair, present map[string]bool, conv Conventions) []Rule {
	var figures []string
	for _, name := range conv.Numbers {
		if present[name] {
			figures = append(figures, name)
			continue
		}
		for _, suffix := range []string{".oldstyle", ".lining", ".onum", ".lnum"} {
			if present[name+suffix] {
				figures = append(figures, name+suffix)
				break
			}
		}
	}

	contextual := map[string]bool{}
	for _, base := range conv.Ordinals {
		contextual[base] = true
	}

	var rules []Rule
	for _, pair := range pairs {
		if 0 < len(figures) && contextual[strings.ToLower(pair.Base)] {
			rules = append(rules, ClassSubst{Class: figures, From: pair.Base, To: pair.Variant})
		} else {
			rules = append(rules, SingleSubst{From: pair.Base, To: pair.Variant})
		}
	}
	return rules
}

// caseRules substitutes case-sensitive forms after an uppercase letter when
// uppercase glyphs can be identified from the catalog.
func caseRules(pairs []GlyphPair, catalog GlyphCatalog) []Rule {
	var uppercase []string
	for _, name := range catalog {
		if len(name) == 1 && 'A' <= name[0] && name[0] <= 'Z' {
			uppercase = append(uppercase, name)
		} else if strings.HasPrefix(name, "uni") && len(name) == 7 {
			if cp, ok := parseHex4(name[3:]); ok && 0x0041 <= cp && cp <= 0x005A {
				uppercase = append(uppercase, name)
			}
		}
	}

	var rules []Rule
	for _, pair := range pairs {
		if 0 < len(uppercase) {
			rules = append(rules, ClassSubst{Class: uppercase, From: pair.Base, To: pair.Variant})
		} else {
			rules = append(rules, SingleSubst{From: pair.Base, To: pair.Variant})
		}
	}
	return rules
}

func parseHex4(s string) (uint32, bool) {
	var v uint32
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case '0' <= c && c <= '9':
			v = v<<4 | uint32(c-'0')
		case 'A' <= c && c <= 'F':
			v = v<<4 | uint32(c-'A'+10)
		case 'a' <= c && c <= 'f':
			v = v<<4 | uint32(c-'a'+10)
		default:
			return 0, false
		}
	}
	return v, true
}

package otl

import "strings"

// Classify buckets glyph names into naming groups per feature tag. A variant
// glyph is recorded only when stripping a recognized suffix leaves a base
// name that is itself in the catalog. A glyph may land in multiple groups
// when it matches multiple suffix conventions.
func Classify(catalog GlyphCatalog, conv Conventions) NamingGroup {
	present := make(map[string]bool, len(catalog))
	for _, name := range catalog {
		present[name] = true
	}

	groups := NamingGroup{}
	for _, name := range catalog {
		for _, tag := range conv.Tags {
			suffixes, ok := conv.Suffixes[tag]
			if !ok {
				continue
			}
			for _, suffix := range suffixes {
				if !strings.HasSuffix(name, suffix) || len(name) == len(suffix) {
					continue
				}
				base := name[:len(name)-len(suffix)]
				if !present[base] || !baseAllowed(tag, base) {
					continue
				}
				groups[tag] = append(groups[tag], GlyphPair{Base: base, Variant: name})
				break
			}
		}
	}
	return groups
}

// baseAllowed applies the per-tag constraints on the base glyph name.
func baseAllowed(tag, base string) bool {
	switch tag {
	case "c2sc":
		return isUpper(base)
	case "zero":
		return base == "zero" || base == "0"
	}
	return true
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if 'a' <= r && r <= 'z' {
			return false
		}
		if 'A' <= r && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

package schema

import (
	"strings"
	"unicode"
)

// SnakeCase converts a camelCase property name to its default column name.
// Runs of capitals are collapsed first so acronyms stay one word:
// tokenURI becomes token_uri and ownerID becomes owner_id.
func SnakeCase(name string) string {
	runes := collapseAcronyms([]rune(name))

	var b strings.Builder
	b.Grow(len(runes) + 4)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// collapseAcronyms lowercases every capital that follows a capital and is
// itself followed by a capital or the end of the name. Digits count as
// capitals here, so erc721ID becomes erc721id.
func collapseAcronyms(runes []rune) []rune {
	out := make([]rune, len(runes))
	upper := func(i int) bool {
		return i >= 0 && i < len(runes) && !unicode.IsLower(runes[i])
	}
	for i, r := range runes {
		if upper(i-1) && upper(i) && (upper(i+1) || i == len(runes)-1) {
			out[i] = unicode.ToLower(r)
			continue
		}
		out[i] = r
	}
	return out
}

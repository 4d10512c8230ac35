package results

import (
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

const (
	// Sep separates the test, sub-test and parameter parts of a result key.
	Sep            = "::"
	descriptionKey = "description"
	categoryPrefix = "category_"
)

// IllegalKeyChars cannot appear in any stored key.
const IllegalKeyChars = ".$#[]/"

// Normalize maps a display name to a storage-safe key segment: whitespace and
// any of . ( ) - / $ # [ ] become underscores and runs of underscores collapse
// to one. Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	prevUnderscore := false
	for _, r := range raw {
		if unicode.IsSpace(r) || strings.ContainsRune(".()-/$#[]", r) {
			r = '_'
		}
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CanonicalKey is the single key scheme used for every new write.
func CanonicalKey(test, sub, param string) string {
	key := test + Sep + Normalize(sub)
	if param != "" {
		key += Sep + Normalize(param)
	}
	return key
}

func DescriptionKey(test string) string { return test + Sep + descriptionKey }

func CategoryKey(test string) string { return categoryPrefix + test }

// IsDescriptionKey reports whether key holds a per-test free-text remark.
func IsDescriptionKey(key string) bool {
	return strings.HasSuffix(key, Sep+descriptionKey)
}

// legacySafe is the key form older records were written with: every byte
// outside [A-Za-z0-9_] replaced, runs left uncollapsed.
func legacySafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			return r
		}
		return '_'
	}, s)
}

func keyVariants(test, sub, param string) []string {
	safeSub := Normalize(sub)
	if param == "" {
		return lo.Uniq([]string{
			CanonicalKey(test, sub, ""),
			test + Sep + sub,
			test + Sep + safeSub + "_",
			test + Sep + legacySafe(sub),
			Normalize(test) + Sep + safeSub,
		})
	}
	safeParam := Normalize(param)
	return lo.Uniq([]string{
		CanonicalKey(test, sub, param),
		test + Sep + sub + Sep + param,
		test + Sep + safeSub + "_" + safeParam,
		test + Sep + safeSub + Sep + safeParam + "_",
		test + Sep + legacySafe(sub) + Sep + legacySafe(param),
		Normalize(test) + Sep + safeSub + Sep + safeParam,
	})
}

// ResolveResultKey finds the key a sub-test or parameter value was stored
// under. Exact spellings are tried first, canonical form leading. Records
// written before keys were canonical fall back to a substring scan over the
// same test's keys in sorted order. A miss means no prior value.
func ResolveResultKey(m ResultMap, test, sub, param string) (string, bool) {
	if len(m) == 0 || sub == "" {
		return "", false
	}

	for _, v := range keyVariants(test, sub, param) {
		if _, ok := m[v]; ok {
			return v, true
		}
	}

	wantTest := strings.ToLower(Normalize(test))
	wantSub := strings.ToLower(Normalize(sub))
	wantParam := strings.ToLower(Normalize(param))

	keys := lo.Keys(m)
	sort.Strings(keys)
	for _, k := range keys {
		if IsDescriptionKey(k) || strings.HasPrefix(k, categoryPrefix) {
			continue
		}
		t, rest, ok := strings.Cut(k, Sep)
		if !ok || strings.ToLower(Normalize(t)) != wantTest {
			continue
		}
		// A sub-test lookup never lands on one of its parameters.
		if param == "" && strings.Contains(rest, Sep) {
			continue
		}
		clean := strings.ToLower(Normalize(rest))
		if !strings.Contains(clean, wantSub) {
			continue
		}
		if param != "" && !strings.Contains(clean, wantParam) {
			continue
		}
		return k, true
	}
	return "", false
}

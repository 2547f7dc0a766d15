package braille

import "sort"

var wholeWords = map[string]struct{}{}

var partWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// one-cell
		"bakit", "kaniya", "dahil", "paano", "ganoon", "hindi", "ikaw", "hakbang", "kaya",
		"lamang", "mga", "ngayon", "para", "kailan", "rin", "sang-ayon", "tayo", "upang",
		"bagaman", "wala", "ito", "yaman", "sa", "ako", "anak", "ang", "araw", "at",
		"ay", "hanggang", "raw", "tunay", "kanila", "maging", "mahal", "na", "naging",
		"ng", "ibig", "ingay",
		// two-cell
		"binata", "karaniwan", "dalaga", "ewan", "papaano", "gunita", "hapon", "isip",
		"halaman", "kailangan", "larawan", "mabuti", "noon", "opo", "patuloy", "kislap",
		"roon", "subalit", "talaga", "ugali", "buhay", "wasto", "eksamen", "ayaw", "salita",
		"alam", "anggi", "bulaklak", "kabila", "masama", "nawa", "ngunit", "panahon",
		"sabi", "sinta", "tungkol", "ukol", "wakas",
	} {
		wholeWords[w] = struct{}{}
	}
	for _, w := range []string{
		"an", "ang", "ar", "at", "aw", "er", "han", "ibig", "ing", "mag",
		"mahal", "nag", "ng", "pag", "tu",
	} {
		partWords[w] = struct{}{}
	}
}

// IsWholeWord reports whether text is a Grade-2 whole-word contraction.
// Matching is exact, so a capitalised form ("Sa") is not a whole word.
func IsWholeWord(text string) bool {
	_, ok := wholeWords[text]
	return ok
}

// IsPartWord reports whether text is a Grade-2 part-word contraction.
func IsPartWord(text string) bool {
	_, ok := partWords[text]
	return ok
}

// IsStandaloneWord reports whether text is emitted as its own token: a whole
// word that is not also a part word.
func IsStandaloneWord(text string) bool {
	return IsWholeWord(text) && !IsPartWord(text)
}

// OverlappingVocabulary lists, sorted, the strings present in both the
// whole-word and part-word vocabularies. These are treated as part words.
func OverlappingVocabulary() []string {
	var out []string
	for w := range partWords {
		if _, ok := wholeWords[w]; ok {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

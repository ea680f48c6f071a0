package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// namedEntities maps entity names (without & and ;) to their replacement
// text. The table is the one the acquisition pipeline has always shipped;
// keep additions append-only so existing extractions stay byte-stable.
var namedEntities = map[string]string{
	"amp":    "&",
	"lt":     "<",
	"gt":     ">",
	"quot":   `"`,
	"apos":   "'",
	"nbsp":   " ",
	"ensp":   " ",
	"emsp":   " ",
	"thinsp": " ",
	"copy":   "©",
	"reg":    "®",
	"trade":  "™",
	"hellip": "…",
	"mdash":  "—",
	"ndash":  "–",
	"lsquo":  "'",
	"rsquo":  "'",
	"ldquo":  "“",
	"rdquo":  "”",
	"laquo":  "«",
	"raquo":  "»",
	"middot": "·",
	"bull":   "•",
	"sect":   "§",
	"para":   "¶",
	"deg":    "°",
	"plusmn": "±",
	"times":  "×",
	"divide": "÷",
	"frac12": "½",
	"frac14": "¼",
	"frac34": "¾",
	"sup1":   "¹",
	"sup2":   "²",
	"sup3":   "³",
	"micro":  "µ",
	"cent":   "¢",
	"pound":  "£",
	"yen":    "¥",
	"euro":   "€",
	"dagger": "†",
	"Dagger": "‡",
	"permil": "‰",
	"prime":  "′",
	"Prime":  "″",
	"larr":   "←",
	"uarr":   "↑",
	"rarr":   "→",
	"darr":   "↓",
	"harr":   "↔",
	"minus":  "−",
	"infin":  "∞",
	"ne":     "≠",
	"le":     "≤",
	"ge":     "≥",
	"shy":    "",
}

// DecodeEntities decodes named and numeric HTML/XML character references.
// Unknown references are left verbatim so malformed markup degrades to
// visible text instead of dropped characters.
func DecodeEntities(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		if c != '&' {
			b.WriteByte(c)
			i++
			continue
		}

		semi := strings.IndexByte(s[i+1:], ';')
		// Entity names are short; a far-away semicolon means a bare ampersand.
		if semi < 0 || semi > 10 {
			b.WriteByte(c)
			i++
			continue
		}

		name := s[i+1 : i+1+semi]
		if decoded, ok := decodeEntityName(name); ok {
			b.WriteString(decoded)
			i += semi + 2
			continue
		}

		b.WriteByte(c)
		i++
	}

	return b.String()
}

// decodeEntityName resolves one reference body (between & and ;).
func decodeEntityName(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	if name[0] == '#' {
		return decodeNumericEntity(name[1:])
	}

	if repl, ok := namedEntities[name]; ok {
		return repl, true
	}
	return "", false
}

// decodeNumericEntity resolves "#123" / "#x1F600" style references.
func decodeNumericEntity(body string) (string, bool) {
	if body == "" {
		return "", false
	}

	base := 10
	if body[0] == 'x' || body[0] == 'X' {
		base = 16
		body = body[1:]
	}

	n, err := strconv.ParseInt(body, base, 32)
	if err != nil || n <= 0 || n > utf8.MaxRune {
		return "", false
	}

	r := rune(n)
	if !utf8.ValidRune(r) {
		return "", false
	}
	return string(r), true
}

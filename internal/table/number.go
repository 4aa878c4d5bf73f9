package table

import (
	"math"
	"strconv"
	"strings"
)

// NumberFormat fixes the separators used when parsing numbers. Zero values
// auto-detect per value.
type NumberFormat struct {
	Decimal   rune
	Thousands rune
}

// missingTokens are the placeholders statistics agencies publish for
// suppressed or unavailable cells.
var missingTokens = map[string]bool{
	"": true, "-": true, "--": true, "..": true, "...": true,
	"x": true, "nan": true, "na": true, "n/a": true, "null": true,
}

// ParseNumber parses a locale-formatted number. ok is false for missing
// placeholders and unparseable text.
func ParseNumber(s string, nf NumberFormat) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if missingTokens[strings.ToLower(raw)] {
		return 0, false
	}
	dec, thou := nf.Decimal, nf.Thousands
	if dec == 0 {
		dec, thou = detectSeparators(raw, thou)
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// detectSeparators infers the decimal and thousands separators of raw. With
// both ',' and '.' present the last one is the decimal mark. A lone separator
// kind is a thousands mark when it repeats or when it is the only one and is
// followed by exactly three trailing digits after a non-zero integer part
// ("1,234" but not "0,500").
func detectSeparators(raw string, thou rune) (rune, rune) {
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0:
		if cpos > dpos {
			return ',', '.'
		}
		return '.', ','
	case cpos < 0 && dpos < 0:
		if thou == '.' {
			return ',', thou
		}
		return '.', thou
	}
	sep, pos := ',', cpos
	if dpos >= 0 {
		sep, pos = '.', dpos
	}
	other := ','
	if sep == ',' {
		other = '.'
	}
	if thou == sep || (thou == 0 && groupsThousands(raw, sep, pos)) {
		return other, sep
	}
	return sep, thou
}

func groupsThousands(raw string, sep rune, last int) bool {
	if strings.Count(raw, string(sep)) > 1 {
		return true
	}
	tail := raw[last+1:]
	if len(tail) != 3 || strings.Trim(tail, "0123456789") != "" {
		return false
	}
	head := strings.TrimLeft(raw[:last], "+-")
	return head != "" && strings.Trim(head, "0123456789 ") == "" && strings.TrimLeft(head, "0") != ""
}

// ParseYear parses an integer year cell such as "2019" or "2019.0".
func ParseYear(s string) (int, bool) {
	raw := strings.TrimSpace(s)
	if y, err := strconv.Atoi(raw); err == nil {
		return y, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

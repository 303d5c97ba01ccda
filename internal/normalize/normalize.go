// Package normalize turns loosely typed provider and client input into
// canonical comparison keys and bounded numeric values.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MinYear = 1900
	MaxYear = 2100
)

var quoteReplacer = strings.NewReplacer(
	"'", "", "\"", "", "`", "",
	"‘", "", "’", "", "“", "", "”", "",
)

// Title builds the cache-key form of a title: lower-case words separated by
// single spaces, with Latin diacritics folded. Non-Latin letters are kept so
// Cyrillic titles do not collapse to an empty key. Never use it for display.
func Title(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	value = foldDiacritics(value)
	value = quoteReplacer.Replace(value)

	var builder strings.Builder
	builder.Grow(len(value))
	pendingSpace := false
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			pendingSpace = false
			builder.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return builder.String()
}

func foldDiacritics(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}

// Year parses the leading integer of value and returns it when it falls in
// [MinYear, MaxYear]. Anything else is 0 (unknown).
func Year(value any) int {
	var n int64
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		n = int64(v)
	case int64:
		n = v
	case int32:
		n = int64(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		n = int64(v)
	case float32:
		return Year(float64(v))
	case json.Number:
		return Year(string(v))
	case string:
		parsed, ok := leadingInt(v)
		if !ok {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < MinYear || n > MaxYear {
		return 0
	}
	return int(n)
}

func leadingInt(raw string) (int64, bool) {
	value := strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := 0
	if end < len(value) && (value[end] == '-' || value[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	// Long digit runs overflow int64; they are out of range anyway.
	if end-digitsStart > 9 {
		return 0, false
	}
	parsed, err := strconv.ParseInt(value[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// NumberOrZero keeps only digits, '.' and '-' from a string and parses the
// rest. Non-finite or unparseable input is 0.
func NumberOrZero(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return finiteOrZero(v)
	case float32:
		return finiteOrZero(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		return NumberOrZero(string(v))
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, v)
		if cleaned == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return finiteOrZero(parsed)
	default:
		return 0
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Votes maps a vote count to a [0,1] confidence that saturates around one
// million votes.
func Votes(votes float64) float64 {
	if votes <= 0 || math.IsNaN(votes) {
		return 0
	}
	return math.Min(1, math.Log10(votes+1)/6)
}

// Popularity maps TMDB popularity to [0,1]; 80 maps to 0.5.
func Popularity(popularity float64) float64 {
	if popularity <= 0 || math.IsNaN(popularity) {
		return 0
	}
	if math.IsInf(popularity, 1) {
		return 1
	}
	return popularity / (popularity + 80)
}

func Clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) {
		return lo
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func Round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

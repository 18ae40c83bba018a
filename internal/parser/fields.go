package parser

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/IshaanNene/escrutinio/internal/types"
)

// FieldKind says how a summary value is converted before it is stored.
type FieldKind int

const (
	// KindText stores the value as-is.
	KindText FieldKind = iota
	// KindCount stores an integer when the whole value is digits, else the raw text.
	KindCount
	// KindDigits drops every non-digit and stores the integer, 0 when nothing is left.
	KindDigits
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCount:
		return "count"
	case KindDigits:
		return "digits"
	default:
		return "unknown"
	}
}

// LabelField maps a label phrase on the results page to a record field.
type LabelField struct {
	Phrase string
	Field  string
	Kind   FieldKind
}

// SummaryFields lists the summary-table labels we understand. A label matches
// the first entry whose phrase it contains.
var SummaryFields = []LabelField{
	{Phrase: "Resultados al:", Field: types.FieldUltimaActualizacion, Kind: KindText},
	{Phrase: "Circuitos escrutados:", Field: types.FieldCircuitosEscrutados, Kind: KindText},
	{Phrase: "Total de circuitos:", Field: types.FieldTotalCircuitos, Kind: KindCount},
	{Phrase: "Circuitos con observaciones:", Field: types.FieldCircuitosConObservaciones, Kind: KindCount},
	{Phrase: "Total de habilitados:", Field: types.FieldTotalHabilitados, Kind: KindDigits},
}

// MatchLabel returns the descriptor for a summary label.
func MatchLabel(label string) (LabelField, bool) {
	for _, lf := range SummaryFields {
		if strings.Contains(label, lf.Phrase) {
			return lf, true
		}
	}
	return LabelField{}, false
}

// Convert turns a raw summary value into its stored form.
func (lf LabelField) Convert(value string) any {
	switch lf.Kind {
	case KindCount:
		if isDigits(value) {
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				return n
			}
		}
		return value
	case KindDigits:
		return ParseVotes(value)
	default:
		return value
	}
}

// ParseVotes keeps only the digits of s and parses them. Thousands
// separators, labels and stray text are dropped; no digits yields 0.
func ParseVotes(s string) int64 {
	clean := onlyDigits(s)
	if clean == "" {
		return 0
	}
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SanitizeKey turns a party label into a field-name fragment: spaces become
// underscores, ñ becomes n, and anything other than letters, digits and
// underscores is dropped. Accented vowels are kept.
func SanitizeKey(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "ñ", "n")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PartyField returns the record field for a party label.
func PartyField(name string) string {
	return types.PartyFieldPrefix + SanitizeKey(name)
}

// normalizeText trims s, collapses whitespace runs to single spaces and
// composes Unicode, approximating what a browser shows as element text.
func normalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func onlyDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

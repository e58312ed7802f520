package field

import "strings"

// Category drives the input-validation table applied before a keystroke
// is accepted into a field, per spec §4.7 "Input validation per field
// type". It is orthogonal to the wire-level Protected/Numeric bits: 3270
// carries some of it via the SFE XAValidation attribute, 5250 via its
// own field-format word; both funnel into this enum.
type Category int

const (
	CategoryNormal Category = iota
	CategoryNumeric
	CategoryDigitsOnly
	CategoryAlphaOnly
	CategoryUppercase
	CategoryProtected
	CategoryBypass
	CategoryPassword
)

// CategoryFromAttrs derives a Category from the base attribute byte for
// fields that don't carry an explicit extended-validation override:
// Protected wins over Numeric, and anything else defaults to Normal.
func CategoryFromAttrs(base byte) Category {
	if IsProtected(base) {
		return CategoryProtected
	}
	if IsNumeric(base) {
		return CategoryNumeric
	}
	return CategoryNormal
}

// Validate applies the category's acceptance rule and transform to one
// input rune. It returns the (possibly transformed) rune to store and
// whether the input was accepted.
func Validate(cat Category, r rune) (rune, bool) {
	switch cat {
	case CategoryNumeric:
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '+' || r == '-' || r == ' ' {
			return r, true
		}
		return r, false
	case CategoryDigitsOnly:
		if r >= '0' && r <= '9' {
			return r, true
		}
		return r, false
	case CategoryAlphaOnly:
		if isLetter(r) || r == ',' || r == '.' || r == '-' || r == ' ' {
			return r, true
		}
		return r, false
	case CategoryUppercase:
		return upper(r), true
	case CategoryProtected, CategoryBypass:
		return r, false
	case CategoryPassword:
		return r, true
	default: // CategoryNormal
		return r, true
	}
}

// Mask reports whether a category's display content should be hidden
// from on-screen rendering (Password fields).
func (c Category) Mask() bool { return c == CategoryPassword }

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func upper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// injectionSensitive is the set of ASCII punctuation the safety filter
// rejects outright regardless of category, per spec §4.7 "Safety
// filter".
const injectionSensitive = "<>\"'&|;$`"

// SafetyFilter applies the low-level acceptance predicate shared by
// every field category: control characters (other than tab/CR/LF),
// injection-sensitive punctuation, and codepoints above U+10FFFF are
// rejected; NUL maps to space; a byte-order-mark maps to '?'.
func SafetyFilter(r rune) (rune, error) {
	const bom = '\uFEFF'
	switch {
	case r == 0:
		return ' ', nil
	case r == bom:
		return '?', nil
	case r > 0x10FFFF:
		return 0, ErrInvalidCharacter
	case r == '\t' || r == '\r' || r == '\n':
		return r, nil
	case r < 0x20:
		return 0, ErrInvalidCharacter
	case strings.ContainsRune(injectionSensitive, r):
		return 0, ErrInvalidCharacter
	default:
		return r, nil
	}
}

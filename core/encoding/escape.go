// Package encoding provides shared text encoding and escaping utilities for
// GEDCOM text and the XML tree it is converted to.
package encoding

import "strings"

// attrReplacer also writes line breaks and tabs as character references,
// since parsers normalize literal ones in attribute values to spaces.
var attrReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"\n", "&#xA;",
	"\r", "&#xD;",
	"\t", "&#x9;",
)

// EscapeXMLAttr escapes text for use in double-quoted XML attributes.
func EscapeXMLAttr(s string) string {
	return attrReplacer.Replace(s)
}

// IsXMLName reports whether s can be used as an XML element name without
// a namespace prefix. Only the ASCII subset GEDCOM tags use is accepted.
func IsXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c == '_':
		case i > 0 && (c >= '0' && c <= '9' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// StripNonPrintable removes every byte outside printable ASCII (0x20-0x7E).
func StripNonPrintable(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return strings.Map(func(r rune) rune {
				if r < 0x20 || r > 0x7E {
					return -1
				}
				return r
			}, s)
		}
	}
	return s
}

// SanitizeTag removes every character a GEDCOM tag may not contain. Tags
// are limited to letters, digits, underscore, period and hyphen.
func SanitizeTag(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '.' || r == '-':
			return r
		default:
			return -1
		}
	}, s)
}

// UnescapeGedcom turns GEDCOM's doubled at-sign back into a literal one.
func UnescapeGedcom(s string) string {
	return strings.ReplaceAll(s, "@@", "@")
}

// EscapeGedcom doubles every at-sign in a line value, so text shaped like
// a pointer ("@N1@") is read back as text. Pointers are written unescaped
// by their own path.
func EscapeGedcom(s string) string {
	return strings.ReplaceAll(s, "@", "@@")
}

// IsPointer reports whether s has the shape of a GEDCOM cross-reference
// pointer such as "@I12@".
func IsPointer(s string) bool {
	if len(s) < 3 || s[0] != '@' || s[len(s)-1] != '@' {
		return false
	}
	return !strings.ContainsAny(s[1:len(s)-1], "@ ")
}

// TrimPointer strips the enclosing at-signs of a cross-reference pointer.
// Other text is returned unchanged.
func TrimPointer(s string) string {
	if IsPointer(s) {
		return s[1 : len(s)-1]
	}
	return s
}

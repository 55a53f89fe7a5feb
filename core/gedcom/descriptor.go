package gedcom

import "strings"

// Date descriptors, with the trailing space they are written with.
const (
	DescriptorAbout  = "ABT "
	DescriptorAfter  = "AFT "
	DescriptorBefore = "BEF "
)

var quarterIdioms = []string{
	"jan-feb-mar", "apr-may-jun", "jul-aug-sep", "oct-nov-dec",
	"jan feb mar", "apr may jun", "jul aug sep", "oct nov dec",
}

// ExtractDescriptor returns the qualifier prefix found in raw date text.
// Quarter idioms count as "about". The first match wins; text without a
// qualifier gives "".
func ExtractDescriptor(text string) string {
	lower := strings.ToLower(text)
	for _, idiom := range quarterIdioms {
		if strings.Contains(lower, idiom) {
			return DescriptorAbout
		}
	}
	switch {
	case strings.Contains(lower, "abt"):
		return DescriptorAbout
	case strings.Contains(lower, "aft"):
		return DescriptorAfter
	case strings.Contains(lower, "bef"):
		return DescriptorBefore
	}
	return ""
}

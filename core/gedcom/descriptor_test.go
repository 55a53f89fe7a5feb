package gedcom

import "testing"

func TestExtractDescriptor(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"1982", ""},
		{"12 MAR 1982", ""},
		{"BET 1982 AND 1985", ""},
		{"ABT 1900", DescriptorAbout},
		{"abt. 1900", DescriptorAbout},
		{"AFT 1 JAN 1900", DescriptorAfter},
		{"Bef 1900", DescriptorBefore},
		{"Jan-Feb-Mar 1900", DescriptorAbout},
		{"oct nov dec 1850", DescriptorAbout},
		{"Apr-May-Jun 1900 bef", DescriptorAbout},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractDescriptor(tt.text); got != tt.want {
			t.Errorf("ExtractDescriptor(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

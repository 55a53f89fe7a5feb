package gedcom

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

func sequentialUID() []byte {
	b := make([]byte, UIDSize)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b
}

func TestFormatUID(t *testing.T) {
	b := sequentialUID()

	got, err := FormatUID(b, true)
	if err != nil {
		t.Fatal(err)
	}
	// sumA = 1+...+16 = 0x88, sumB = 816 mod 256 = 0x30
	if want := "0102030405060708090A0B0C0D0E0F108830"; got != want {
		t.Errorf("FormatUID(checksum) = %s, want %s", got, want)
	}

	plain, err := FormatUID(b, false)
	if err != nil {
		t.Fatal(err)
	}
	if plain != got[:32] {
		t.Errorf("FormatUID(no checksum) = %s, want %s", plain, got[:32])
	}
}

func TestFormatUIDRejects(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
	}{
		{"nil", nil},
		{"short", make([]byte, 15)},
		{"long", bytes.Repeat([]byte{1}, 17)},
		{"all zero", make([]byte, UIDSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FormatUID(tt.b, true)
			var verr *apperrors.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("FormatUID() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestParseUID(t *testing.T) {
	want := sequentialUID()
	for _, text := range []string{
		"0102030405060708090A0B0C0D0E0F108830",
		"0102030405060708090a0b0c0d0e0f108830",
		"0102030405060708090A0B0C0D0E0F10",
		"  0102030405060708090A0B0C0D0E0F10  ",
	} {
		got, err := ParseUID(text)
		if err != nil {
			t.Errorf("ParseUID(%q) error = %v", text, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ParseUID(%q) = %X", text, got)
		}
	}
}

func TestParseUIDErrors(t *testing.T) {
	inputs := []string{
		"",
		"0102",
		"0102030405060708090A0B0C0D0E0F1088",
		"0102030405060708090A0B0C0D0E0F108831",
		"0102030405060708090A0B0C0D0E0F10883",
		"ZZ02030405060708090A0B0C0D0E0F10",
	}
	for _, text := range inputs {
		_, err := ParseUID(text)
		var perr *apperrors.ParseError
		if !errors.As(err, &perr) {
			t.Errorf("ParseUID(%q) error = %v, want ParseError", text, err)
		}
	}
}

// Any corrupted checksum digit is detected.
func TestParseUIDChecksumCorruption(t *testing.T) {
	text, err := FormatUID(sequentialUID(), true)
	if err != nil {
		t.Fatal(err)
	}
	for i := 32; i < len(text); i++ {
		for _, c := range "0123456789ABCDEF" {
			if byte(c) == text[i] {
				continue
			}
			bad := text[:i] + string(c) + text[i+1:]
			if _, err := ParseUID(bad); err == nil {
				t.Errorf("ParseUID(%s) accepted a corrupted checksum", bad)
			}
		}
	}
}

func TestGUIDRoundTrip(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := uuid.New()
		uid, err := GUIDToUID(id)
		if err != nil {
			t.Fatal(err)
		}
		if len(uid) != 36 || strings.ToUpper(uid) != uid {
			t.Fatalf("GUIDToUID(%s) = %q", id, uid)
		}
		back, err := UIDToGUID(uid)
		if err != nil {
			t.Fatalf("UIDToGUID(%s) error = %v", uid, err)
		}
		if back != id {
			t.Fatalf("round trip gave %s, want %s", back, id)
		}
	}
}

func TestUIDToGUIDFallbacks(t *testing.T) {
	want := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	for _, text := range []string{
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"{6ba7b810-9dad-11d1-80b4-00c04fd430c8}",
		"urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"6BA7B8109DAD11D180B400C04FD430C8",
	} {
		got, err := UIDToGUID(text)
		if err != nil {
			t.Errorf("UIDToGUID(%q) error = %v", text, err)
			continue
		}
		if got != want {
			t.Errorf("UIDToGUID(%q) = %s, want %s", text, got, want)
		}
	}

	if _, err := UIDToGUID("not a uid"); err == nil {
		t.Error("UIDToGUID accepted garbage")
	}
}

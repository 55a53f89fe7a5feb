package gedcom

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
)

const (
	// UIDSize is the byte length of a GEDCOM _UID.
	UIDSize        = 16
	uidHexLen      = UIDSize * 2
	checksumHexLen = 4
)

// uidChecksum is the two-byte additive checksum of a _UID: a running
// byte sum and a running sum of those sums, both wrapping at 256.
func uidChecksum(b []byte) [2]byte {
	var sumA, sumB byte
	for _, v := range b {
		sumA += v
		sumB += sumA
	}
	return [2]byte{sumA, sumB}
}

// FormatUID renders 16 bytes as 32 uppercase hex digits, followed by the
// 4-digit checksum when addChecksum is set. All-zero and wrongly sized
// input is rejected.
func FormatUID(b []byte, addChecksum bool) (string, error) {
	if len(b) != UIDSize {
		return "", apperrors.NewValidation("uid", hex.EncodeToString(b), "must be 16 bytes")
	}
	zero := true
	for _, v := range b {
		if v != 0 {
			zero = false
			break
		}
	}
	if zero {
		return "", apperrors.NewValidation("uid", hex.EncodeToString(b), "all bytes are zero")
	}

	text := hex.EncodeToString(b)
	if addChecksum {
		sum := uidChecksum(b)
		text += hex.EncodeToString(sum[:])
	}
	return strings.ToUpper(text), nil
}

// ParseUID decodes 32 hex digits, or 36 digits whose last four must match
// the checksum of the first 32.
func ParseUID(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if len(text) != uidHexLen && len(text) != uidHexLen+checksumHexLen {
		return nil, apperrors.NewParse("UID", text, "expected 32 or 36 hex digits")
	}
	raw, err := hex.DecodeString(text)
	if err != nil {
		perr := apperrors.NewParse("UID", text, "malformed hex")
		perr.Err = err
		return nil, perr
	}
	b := raw[:UIDSize]
	if len(raw) > UIDSize {
		sum := uidChecksum(b)
		if raw[UIDSize] != sum[0] || raw[UIDSize+1] != sum[1] {
			return nil, apperrors.NewParse("UID", text, "checksum mismatch")
		}
	}
	return b, nil
}

// GUIDToUID renders a GUID as a checksummed _UID.
func GUIDToUID(id uuid.UUID) (string, error) {
	return FormatUID(id[:], true)
}

// UIDToGUID reads a _UID value as a GUID. Text that is not a valid _UID
// is tried as a plain GUID string ("{...}", dashed or urn form).
func UIDToGUID(text string) (uuid.UUID, error) {
	b, err := ParseUID(text)
	if err == nil {
		return uuid.FromBytes(b)
	}
	id, perr := uuid.Parse(strings.Trim(strings.TrimSpace(text), "{}"))
	if perr != nil {
		return uuid.Nil, err
	}
	return id, nil
}

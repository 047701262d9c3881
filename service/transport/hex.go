package transport

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ParseHexUint parses a 0x-prefixed hexadecimal quantity as used by EVM
// and Fantom backends.
func ParseHexUint(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing hex quantity %q: %w", s, err)
	}
	return v, nil
}

// ParseHexBig parses a 0x-prefixed hexadecimal quantity that may exceed
// the 64-bit range (wei values).
func ParseHexBig(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty hex quantity")
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("parsing hex quantity %q", s)
	}
	return v, nil
}

// FormatHexUint renders v as a 0x-prefixed hexadecimal quantity.
func FormatHexUint(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

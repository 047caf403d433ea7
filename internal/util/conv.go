package util

import (
	"strconv"
)

// MustParseUint returns 0 when s is not a valid unsigned integer.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// StringPtr is a small helper for optional gorm columns.
func StringPtr(s string) *string {
	return &s
}

func UintToString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

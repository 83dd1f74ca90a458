package utils

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Sum64Hex returns the xxhash64 digest of data as a zero-padded 16 char hex string.
func Sum64Hex(data []byte) string {
	s := strconv.FormatUint(xxhash.Sum64(data), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

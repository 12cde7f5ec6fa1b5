package ratelimit

import "strconv"

// ClientKey hashes the originating IP so raw addresses never reach the
// store. Polynomial 31-rolling hash truncated to 32-bit signed, then
// base-36 of its absolute value. Not collision resistant; two clients
// landing on the same key share a quota, which is an accepted tradeoff.
func ClientKey(ip string) string {
	var hash int32

	for _, ch := range ip {
		hash = hash*31 + int32(ch)
	}

	val := int64(hash)
	if val < 0 {
		val = -val
	}

	return strconv.FormatInt(val, 36)
}

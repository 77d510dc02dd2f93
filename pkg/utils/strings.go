package utils

// TruncateRunes returns at most limit runes of s. The cut never splits a
// multi-byte character. A non-positive limit yields "".
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

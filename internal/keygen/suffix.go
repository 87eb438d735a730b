package keygen

// LetterSuffix returns the n-th disambiguation suffix: a, b, ..., z, aa, ab, ...
func LetterSuffix(n int) string {
	var buf []byte
	for {
		buf = append([]byte{byte('a' + n%26)}, buf...)
		n = n/26 - 1
		if n < 0 {
			return string(buf)
		}
	}
}

// SuffixIndex is the inverse of LetterSuffix. It reports false for anything
// that is not a non-empty run of lower-case ASCII letters.
func SuffixIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return 0, false
		}
		v = v*26 + int(c-'a') + 1
		if v > 1<<20 {
			return 0, false
		}
	}
	return v - 1, true
}

package signin

import "strings"

const upperHex = "0123456789ABCDEF"

// Escape percent-encodes s byte-wise over its UTF-8 form. Letters, digits and
// "-_.*" pass through; everything else, including space, becomes %XX.
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isSafe(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func isSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '*':
		return true
	}
	return false
}

// AppendToken appends name=value to baseURL. URL_PARAM uses the query
// ("?" or "&"); any other policy uses the fragment ("#" or "&"). Both name and
// value are escaped.
func AppendToken(baseURL string, policy AppendTokenPolicy, name, value string) string {
	var b strings.Builder
	b.Grow(len(baseURL) + len(name) + len(value) + 8)
	b.WriteString(baseURL)

	if policy == AppendURLParam {
		if strings.Contains(baseURL, "?") {
			b.WriteByte('&')
		} else {
			b.WriteByte('?')
		}
	} else {
		if strings.Contains(baseURL, "#") {
			b.WriteByte('&')
		} else {
			b.WriteByte('#')
		}
	}

	b.WriteString(Escape(name))
	b.WriteByte('=')
	b.WriteString(Escape(value))
	return b.String()
}

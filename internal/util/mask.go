// Package util reúne helpers chicos sin dependencias del dominio.
package util

import "strings"

// MaskEmail oculta la parte local y el primer label del dominio de un email
// para que pueda aparecer en logs: "alice@example.com" → "a…@e….com".
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		if s == "" {
			return ""
		}
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	dparts := strings.Split(dom, ".")
	if len(dparts) > 0 && len(dparts[0]) > 1 {
		dparts[0] = dparts[0][:1] + "…"
	}
	return user + "@" + strings.Join(dparts, ".")
}

// ShortFingerprint deja el primer y los dos últimos octetos de un fingerprint
// "AA:BB:...:YY:ZZ" → "AA:…:YY:ZZ".
func ShortFingerprint(fp string) string {
	parts := strings.Split(fp, ":")
	if len(parts) <= 4 {
		return fp
	}
	return parts[0] + ":…:" + strings.Join(parts[len(parts)-2:], ":")
}

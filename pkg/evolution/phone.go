package evolution

import "strings"

// NormalizePhone strips non-digit characters and prefixes the Brazilian
// country code when absent.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, "55") {
		digits = "55" + digits
	}
	return digits
}

// JIDToPhone extracts the bare number from a provider JID such as
// "5511999990000@s.whatsapp.net".
func JIDToPhone(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		jid = jid[:at]
	}
	return jid
}

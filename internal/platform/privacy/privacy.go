// Package privacy masks personally identifiable information before it
// reaches log output. Tutor records carry CPF, email and phone numbers, and
// none of those belong in plaintext logs.
package privacy

import (
	"fmt"
	"net"
	"strings"
)

// MaskCPF hides the middle digits of a CPF, keeping the first three and the
// last two so a record is still recognizable in logs. Non-digit characters
// are ignored. Anything that is not eleven digits long comes back fully
// masked.
func MaskCPF(cpf string) string {
	digits := make([]byte, 0, len(cpf))
	for i := 0; i < len(cpf); i++ {
		if cpf[i] >= '0' && cpf[i] <= '9' {
			digits = append(digits, cpf[i])
		}
	}
	if len(digits) == 0 {
		return ""
	}
	if len(digits) != 11 {
		return strings.Repeat("*", len(digits))
	}
	return string(digits[:3]) + ".***.***-" + string(digits[9:])
}

// MaskEmail keeps the first character of the local part and the full domain:
// "ana.souza@example.com" becomes "a***@example.com".
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// AnonymizeIP truncates an address to its network prefix: the last octet of
// an IPv4 address is zeroed, an IPv6 address keeps only its /48 prefix. The
// result identifies a network, not a host. A host:port value is accepted and
// the port discarded. Returns "unknown" for empty input and "invalid" for
// anything unparseable.
func AnonymizeIP(addr string) string {
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}

	parsed := net.ParseIP(addr)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

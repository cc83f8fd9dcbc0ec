package tools

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHostnames are resolved-away rather than by IP since they never
// appear in a DNS answer an attacker controls.
var blockedHostnames = map[string]bool{
	"localhost": true,
}

// checkSSRF rejects a web_fetch target that resolves to a private, loopback,
// link-local, or cloud-metadata address, so a prompt-injected fetch can't
// reach the host's internal network. Grounded on the same intent as
// security.SSRFGuard referenced by the wider tool corpus, reimplemented
// against net/net/url rather than a shared package this module doesn't have.
func checkSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("missing hostname")
	}
	if blockedHostnames[strings.ToLower(host)] {
		return fmt.Errorf("host %q is not allowed", host)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Let the fetch itself fail with the real DNS error rather than
		// masking it as an SSRF rejection.
		return nil
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return fmt.Errorf("host %q resolves to a disallowed address (%s)", host, ip)
		}
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsPrivate() || ip.IsMulticast() {
		return true
	}
	// 169.254.169.254 is covered by IsLinkLocalUnicast already, but cloud
	// metadata endpoints on some providers (e.g. GCP's alias IP ranges) sit
	// outside RFC1918 space too; block the well-known metadata host range
	// explicitly in case a future provider routes it elsewhere.
	if v4 := ip.To4(); v4 != nil && v4[0] == 169 && v4[1] == 254 {
		return true
	}
	return false
}

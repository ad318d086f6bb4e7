// Package netguard validates outbound destinations before the scanner or
// the webhook notifier touches them. Scan targets and callback URLs both
// come from users, so anything resolving to a private or loopback address
// is rejected to keep the fetcher from being turned into an internal proxy.
package netguard

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MinSecretLen is the minimum length for webhook signing secrets.
// 32 bytes = 256 bits of entropy.
const MinSecretLen = 32

var (
	// ErrPrivateAddress is returned when a URL targets a private, loopback
	// or link-local address.
	ErrPrivateAddress = errors.New("netguard: URL targets a private or loopback address")
	// ErrUnsafeScheme is returned for non-HTTP(S) URLs.
	ErrUnsafeScheme = errors.New("netguard: only http and https schemes are allowed")
	// ErrSecretTooShort is returned when a signing secret is below MinSecretLen.
	ErrSecretTooShort = fmt.Errorf("netguard: secret must be at least %d bytes", MinSecretLen)
)

// ValidateSecret checks a webhook signing secret for minimum length.
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLen {
		return ErrSecretTooShort
	}
	return nil
}

// ValidateURL checks that rawURL uses http/https, names a host, and does
// not resolve to a private or loopback IP. Hostnames are resolved so an
// internal name pointing at RFC 1918 space is caught too.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("netguard: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("netguard: URL has no host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if privateIP(ip) {
			return ErrPrivateAddress
		}
		return nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		// Unresolvable now may be a transient DNS failure; the connection
		// attempt will surface the real error.
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && privateIP(ip) {
			return ErrPrivateAddress
		}
	}
	return nil
}

var privateRanges = func() []*net.IPNet {
	blocks := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"fc00::/7",
		"::1/128",
	}
	out := make([]*net.IPNet, 0, len(blocks))
	for _, b := range blocks {
		_, cidr, err := net.ParseCIDR(b)
		if err != nil {
			continue
		}
		out = append(out, cidr)
	}
	return out
}()

func privateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, cidr := range privateRanges {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

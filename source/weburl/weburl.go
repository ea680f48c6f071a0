// Package weburl provides URL validation and ID generation for web sources.
// Validation covers scheme and domain-shape checks, optional host allow-lists,
// and SSRF prevention (private IP and local domain blocking).
package weburl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pre-compiled CIDR networks for private/reserved IP ranges.
// These are parsed once at package initialization for efficiency.
var (
	cgnat    *net.IPNet // 100.64.0.0/10 - Carrier-grade NAT
	v6unique *net.IPNet // fc00::/7 - IPv6 unique local
	v6link   *net.IPNet // fe80::/10 - IPv6 link-local
)

// domainPattern validates hostname shape: dotted labels of letters, digits
// and hyphens, no leading/trailing hyphen per label.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)+$`)

// entityIDPattern validates entity ID format to prevent subject injection.
var entityIDPattern = regexp.MustCompile(`^source\.web\.[a-z0-9-]+$`)

func init() {
	var err error

	_, cgnat, err = net.ParseCIDR("100.64.0.0/10")
	if err != nil {
		panic("invalid CGNAT CIDR: " + err.Error())
	}

	_, v6unique, err = net.ParseCIDR("fc00::/7")
	if err != nil {
		panic("invalid IPv6 unique local CIDR: " + err.Error())
	}

	_, v6link, err = net.ParseCIDR("fe80::/10")
	if err != nil {
		panic("invalid IPv6 link-local CIDR: " + err.Error())
	}
}

// ValidateOptions controls URL validation behavior.
type ValidateOptions struct {
	// AllowedHosts restricts loads to hosts matching any of these patterns.
	// Patterns support doublestar wildcards ("*.example.com"). Empty means
	// any host is permitted.
	AllowedHosts []string

	// AllowPrivateHosts disables localhost/private-IP blocking. Intended for
	// tests and explicitly trusted intranet deployments.
	AllowPrivateHosts bool
}

// Validate checks a URL for scheme, domain shape, allow-list membership and
// SSRF safety. A non-nil error is terminal: the loader must not retry.
func Validate(rawURL string, opts ValidateOptions) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q: only http and https URLs are allowed", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no host")
	}

	lowHost := strings.ToLower(host)

	if !opts.AllowPrivateHosts {
		if lowHost == "localhost" || lowHost == "127.0.0.1" || lowHost == "::1" {
			return fmt.Errorf("localhost URLs are not allowed")
		}
		if strings.HasSuffix(lowHost, ".local") || strings.HasSuffix(lowHost, ".internal") {
			return fmt.Errorf("local domain URLs are not allowed")
		}
		if ip := net.ParseIP(host); ip != nil {
			if IsPrivateIP(ip) {
				return fmt.Errorf("private IP addresses are not allowed")
			}
		}
	}

	// IP hosts skip the domain-shape check.
	if net.ParseIP(host) == nil && !domainPattern.MatchString(lowHost) {
		return fmt.Errorf("malformed domain %q", host)
	}

	if len(opts.AllowedHosts) > 0 && !hostAllowed(lowHost, opts.AllowedHosts) {
		return fmt.Errorf("host %q is not in the allowed host list", host)
	}

	return nil
}

// hostAllowed reports whether host matches any allow-list pattern. Patterns
// without wildcards match exactly; wildcard patterns use doublestar matching
// ("*.wikipedia.org" matches any subdomain).
func hostAllowed(host string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		if pattern == host {
			return true
		}
		if ok, err := doublestar.Match(pattern, host); err == nil && ok {
			return true
		}
	}
	return false
}

// IsPrivateIP checks if an IP is in private/reserved ranges.
// It handles IPv4, IPv6, and IPv6-mapped IPv4 addresses.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	// IPv4-mapped IPv6 addresses (::ffff:x.x.x.x) re-checked as IPv4.
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return true
		}
	}

	if cgnat.Contains(ip) || v6unique.Contains(ip) || v6link.Contains(ip) {
		return true
	}

	return false
}

// GenerateEntityID creates a web source entity ID from a URL.
// The ID follows the format "source.web.<slug>" where slug is derived
// from the domain and path.
func GenerateEntityID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		// Fall back to hash-based ID for invalid URLs
		hash := sha256.Sum256([]byte(rawURL))
		return "source.web." + hex.EncodeToString(hash[:8])
	}

	host := parsed.Hostname()
	path := strings.Trim(parsed.Path, "/")

	slug := strings.ReplaceAll(host, ".", "-")
	if path != "" {
		pathSlug := strings.ReplaceAll(path, "/", "-")
		slug = slug + "-" + pathSlug
	}

	slug = strings.ToLower(slug)
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '-'
	}, slug)

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	if len(slug) > 80 {
		slug = slug[:80]
		slug = strings.TrimRight(slug, "-")
	}

	return "source.web." + slug
}

// ValidateEntityID checks if an entity ID has a valid format.
// Valid IDs match "source.web.[a-z0-9-]+" to keep publish subjects safe.
func ValidateEntityID(id string) bool {
	return entityIDPattern.MatchString(id)
}

// ExtractDomain extracts the domain name from a URL.
// Returns an empty string if the URL is invalid.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

package tenant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/calebds/proofstream/internal/apperr"
)

var (
	ipv4Pattern  = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
	labelPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// NormalizeHost strips the port and IPv6 brackets from a raw Host header
// and lower-cases the rest. "Tenant.Example.com:3000" → "tenant.example.com",
// "[::1]:3000" → "::1". A host with many colons and no brackets is raw
// IPv6 and is returned as-is (splitting on ':' would mangle it).
func NormalizeHost(host string) string {
	h := strings.TrimSpace(host)
	if strings.HasPrefix(h, "[") {
		if end := strings.Index(h, "]"); end != -1 {
			h = h[1:end]
		}
	} else if parts := strings.Split(h, ":"); len(parts) == 2 {
		h = parts[0]
	}
	return strings.ToLower(strings.TrimSpace(h))
}

// ResolveFromHost parses a tenant slug candidate out of a hostname.
// Pure function, no lookups. Returns "" when the host cannot carry a
// subdomain: bare localhost, IPv4 or IPv6 literals, hosts without a dot,
// or a first label with characters outside [a-z0-9-].
func ResolveFromHost(host string) string {
	h := NormalizeHost(host)
	if h == "" || h == "localhost" {
		return ""
	}
	if ipv4Pattern.MatchString(h) {
		return ""
	}
	// Anything still containing a colon is a raw IPv6 literal.
	if strings.Contains(h, ":") {
		return ""
	}

	firstDot := strings.Index(h, ".")
	if firstDot <= 0 {
		return ""
	}

	sub := h[:firstDot]
	if !labelPattern.MatchString(sub) {
		return ""
	}
	return sub
}

// ValidateSlug enforces the rules for tenant slugs chosen at signup (and
// by admin slug changes). The slug becomes a DNS label, hence the 63-char
// cap and the hyphen placement rules.
func ValidateSlug(slug string) error {
	switch {
	case slug == "":
		return fmt.Errorf("%w: slug is required", apperr.ErrInvalidSlug)
	case len(slug) < 3:
		return fmt.Errorf("%w: must be at least 3 characters", apperr.ErrInvalidSlug)
	case len(slug) > 63:
		return fmt.Errorf("%w: must be at most 63 characters", apperr.ErrInvalidSlug)
	case strings.HasPrefix(slug, "-"):
		return fmt.Errorf("%w: cannot start with a hyphen", apperr.ErrInvalidSlug)
	case strings.HasSuffix(slug, "-"):
		return fmt.Errorf("%w: cannot end with a hyphen", apperr.ErrInvalidSlug)
	case !slugPattern.MatchString(slug):
		return fmt.Errorf("%w: only lowercase letters, digits, and hyphens", apperr.ErrInvalidSlug)
	}
	return nil
}

package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"unicode"
)

// IdentRe matches valid identifiers used for command and automator ids.
// Must start with alphanumeric, followed by alphanumeric, dots, hyphens, or underscores.
var IdentRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// MaxIdentLen is the maximum length for identifiers.
const MaxIdentLen = 128

// MaxTriggerLen bounds a configured trigger string. Show controllers send
// short command words; longer strings indicate a misconfiguration.
const MaxTriggerLen = 512

// Ident validates a string as a valid identifier.
func Ident(s string) bool {
	return len(s) > 0 && len(s) <= MaxIdentLen && IdentRe.MatchString(s)
}

// HTTPURL ensures the URL uses http or https scheme and has a non-empty host
// to prevent dispatch to file://, ftp://, or other dangerous schemes.
func HTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		// OK
	case "":
		return fmt.Errorf("URL missing scheme: %s", rawURL)
	default:
		return fmt.Errorf("URL scheme %q not allowed (only http/https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL missing host: %s", rawURL)
	}
	return nil
}

// Port validates a TCP port number.
func Port(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}

// TriggerString validates a configured trigger string: non-empty, bounded,
// printable. Received lines are matched case-insensitively against these.
func TriggerString(s string) error {
	if s == "" {
		return fmt.Errorf("trigger string is empty")
	}
	if len(s) > MaxTriggerLen {
		return fmt.Errorf("trigger string exceeds %d bytes", MaxTriggerLen)
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("trigger string contains non-printable character %q", r)
		}
	}
	return nil
}

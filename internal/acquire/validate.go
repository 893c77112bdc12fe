package acquire

import (
	"net"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

const (
	MaxUploadBytes = 10 << 20
	MinPasteChars  = 100
	MaxPasteBytes  = 2 << 20
)

// SourceKind is how the subject HTML reached the pipeline.
type SourceKind string

const (
	SourceURL    SourceKind = "url"
	SourceUpload SourceKind = "upload"
	SourcePaste  SourceKind = "paste"
)

// Source describes the input of one analysis.
type Source struct {
	Kind          SourceKind `json:"kind"`
	URL           string     `json:"url,omitempty"`
	NormalizedURL string     `json:"normalizedUrl,omitempty"`
	FileName      string     `json:"fileName,omitempty"`
}

var blockedNets = mustCIDRs(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	return out
}

// IsBlockedIP reports whether ip is private, loopback, link-local or
// otherwise unroutable from the public internet.
func IsBlockedIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsUnspecified() || ip.IsLoopback() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, n := range blockedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func blockedHost(host string) bool {
	switch {
	case host == "localhost",
		strings.HasSuffix(host, ".localhost"),
		strings.HasSuffix(host, ".local"),
		strings.HasSuffix(host, ".internal"):
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return IsBlockedIP(ip)
	}
	return false
}

// NormalizeURL validates raw and returns its canonical form: https:// is
// prepended when no scheme is given, the host is lowercased, and the fragment
// and trailing slash are dropped.
func NormalizeURL(raw string) (string, error) {
	u, err := checkURL(raw)
	if err != nil {
		return "", err
	}
	return canonical(u), nil
}

func checkURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, invalid("url", "URL cannot be empty")
	}
	if strings.ContainsAny(trimmed, " \t\n") {
		return nil, invalid("url", "URL cannot contain spaces")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, invalid("url", "Invalid URL format")
	}
	return u, checkParsed(u)
}

func checkParsed(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return invalid("url", "Protocol %q is not supported. Use HTTP or HTTPS.", u.Scheme+":")
	}
	if u.User != nil {
		return invalid("url", "URLs with embedded credentials are not allowed")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return invalid("url", "Invalid hostname")
	}
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		return invalid("url", "Non-standard ports are not allowed. Only ports 80 and 443 are supported.")
	}
	if blockedHost(host) {
		return invalid("url", "Private and local addresses are not allowed")
	}
	if net.ParseIP(host) == nil {
		parts := strings.Split(host, ".")
		if len(parts) < 2 || len(parts[len(parts)-1]) < 2 {
			return invalid("url", "Invalid domain format")
		}
	}
	return nil
}

func canonical(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	c.Path = strings.TrimRight(c.Path, "/")
	c.RawPath = ""
	return c.String()
}

// ValidateUpload checks an uploaded file's name and size.
func ValidateUpload(fileName string, size int64) error {
	ext := strings.ToLower(path.Ext(fileName))
	if ext != ".html" && ext != ".htm" {
		return invalid("file", "Only .html and .htm files are supported")
	}
	if size <= 0 {
		return invalid("file", "The uploaded file is empty.")
	}
	if size > MaxUploadBytes {
		return invalid("file", "File exceeds the 10MB limit.")
	}
	return nil
}

// ValidatePaste checks pasted content length in characters and bytes.
func ValidatePaste(text string) error {
	if text == "" {
		return invalid("text", "No HTML content provided")
	}
	if utf8.RuneCountInString(text) < MinPasteChars {
		return invalid("text", "Please paste at least %d characters of HTML.", MinPasteChars)
	}
	if len(text) > MaxPasteBytes {
		return invalid("text", "Content exceeds the 2MB limit.")
	}
	return nil
}

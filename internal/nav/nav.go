// Package nav implements the navigation token codec and the pagination
// arithmetic for the inline folder browser. A token is the callback payload
// behind every button: which action to perform, which remote item it targets,
// and which page of the listing is in view.
package nav

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action identifies what a button press asks for.
type Action string

// Wire values for Action. These appear verbatim in callback payloads.
const (
	ActionOpenFolder Action = "folder"      // open target folder at page 0
	ActionFetchLink  Action = "file"        // mint a share link for target file
	ActionPage       Action = "navigate"    // re-render target folder at Page
	ActionAllLinks   Action = "getalllinks" // share links for every file in target folder
	ActionHome       Action = "home"        // return to the landing folder
)

// ErrMalformed is returned by Decode for any payload that does not parse.
// Callers treat it as an unknown action — it must never crash a handler.
var ErrMalformed = errors.New("nav: malformed token")

// Token is the decoded form of a callback payload. Target is a folder ID for
// every action except ActionFetchLink, where it is a file ID.
type Token struct {
	Action Action
	Target string
	Page   int
}

// fieldCount is the exact number of delimited fields in the wire format.
const fieldCount = 3

// delimiter separates the three fields. Targets are escaped so a remote ID
// containing the delimiter cannot shift field boundaries — naive splitting
// silently truncates such IDs.
const delimiter = ":"

// Encode renders a token as "action:target:page" with the target escaped.
func Encode(action Action, target string, page int) string {
	if page < 0 {
		page = 0
	}

	return string(action) + delimiter + escapeTarget(target) + delimiter + strconv.Itoa(page)
}

// Decode parses a callback payload. Wrong field count, unknown action, a
// target that fails unescaping, or a non-numeric or negative page all yield
// ErrMalformed with detail wrapped for logging.
func Decode(payload string) (Token, error) {
	parts := strings.Split(payload, delimiter)
	if len(parts) != fieldCount {
		return Token{}, fmt.Errorf("%w: %d fields in %q", ErrMalformed, len(parts), payload)
	}

	action := Action(parts[0])
	switch action {
	case ActionOpenFolder, ActionFetchLink, ActionPage, ActionAllLinks, ActionHome:
	default:
		return Token{}, fmt.Errorf("%w: unknown action %q", ErrMalformed, parts[0])
	}

	target, err := unescapeTarget(parts[1])
	if err != nil {
		return Token{}, fmt.Errorf("%w: target: %v", ErrMalformed, err)
	}

	page, err := strconv.Atoi(parts[2])
	if err != nil {
		return Token{}, fmt.Errorf("%w: page %q", ErrMalformed, parts[2])
	}

	if page < 0 {
		return Token{}, fmt.Errorf("%w: negative page %d", ErrMalformed, page)
	}

	return Token{Action: action, Target: target, Page: page}, nil
}

// escapeTarget percent-encodes only the delimiter and the escape character
// itself. Remote item IDs are ASCII alphanumerics with punctuation, so in
// practice nothing expands — but an ID that does contain ":" round-trips
// instead of corrupting the token. Callback payloads are size-budgeted
// (Telegram caps them at 64 bytes), which rules out heavier encodings.
func escapeTarget(s string) string {
	if !strings.ContainsAny(s, delimiter+"%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ':':
			b.WriteString("%3A")
		case '%':
			b.WriteString("%25")
		default:
			b.WriteByte(s[i])
		}
	}

	return b.String()
}

// unescapeTarget reverses escapeTarget. Only %3A and %25 sequences are
// produced by Encode; anything else after '%' is a malformed payload.
func unescapeTarget(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}

		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape at offset %d", i)
		}

		switch s[i+1 : i+3] {
		case "3A", "3a":
			b.WriteByte(':')
		case "25":
			b.WriteByte('%')
		default:
			return "", fmt.Errorf("unknown escape %%%s", s[i+1:i+3])
		}

		i += 2
	}

	return b.String(), nil
}

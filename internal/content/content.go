// Package content cleans user-submitted message text before it is
// stored or broadcast: HTML sanitization, control character stripping,
// profanity masking, and length validation.
package content

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	goaway "github.com/TwiN/go-away"
	"github.com/microcosm-cc/bluemonday"
)

// MaxContentLength is the default cap on message content, in runes.
const MaxContentLength = 5000

var (
	ErrEmptyContent   = errors.New("content is empty")
	ErrContentTooLong = errors.New("content too long")
)

var scriptLike = regexp.MustCompile(`(?i)<\s*script|javascript\s*:|on\w+\s*=`)

// Cleaner holds the sanitization policy and profanity detector shared
// by every message write.
type Cleaner struct {
	policy    *bluemonday.Policy
	profanity *goaway.ProfanityDetector
	maxLength int
}

func NewCleaner(maxLength int) *Cleaner {
	if maxLength <= 0 {
		maxLength = MaxContentLength
	}

	// Basic inline formatting only. Links keep their href but gain
	// rel=nofollow so stored content cannot vouch for a target.
	policy := bluemonday.NewPolicy()
	policy.AllowElements("b", "i", "em", "strong", "p", "br")
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowStandardURLs()
	policy.RequireNoFollowOnLinks(true)

	return &Cleaner{
		policy:    policy,
		profanity: goaway.NewProfanityDetector(),
		maxLength: maxLength,
	}
}

// Clean validates and normalizes message content. The returned string
// is safe to store and echo back to other clients.
func (c *Cleaner) Clean(raw string) (string, error) {
	text := c.policy.Sanitize(raw)
	text = stripControl(text)
	text = strings.TrimSpace(text)

	if text == "" {
		return "", ErrEmptyContent
	}
	if n := len([]rune(text)); n > c.maxLength {
		return "", fmt.Errorf("%w: %d runes, max %d", ErrContentTooLong, n, c.maxLength)
	}

	if c.profanity.IsProfane(text) {
		text = c.profanity.Censor(text)
	}
	return text, nil
}

// ContainsScriptLike reports whether the raw input carries markup that
// looks like an injection attempt. Callers use it for logging; the
// sanitizer removes it either way.
func ContainsScriptLike(raw string) bool {
	return scriptLike.MatchString(raw)
}

// stripControl drops control characters while keeping newlines and tabs.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

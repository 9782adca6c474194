// Package render adapts reply text to what each chat surface can display.
package render

import (
	"regexp"
	"strings"
)

var spoilerRe = regexp.MustCompile(`(?s)\|\|(.+?)\|\|`)

// SplitSpoiler separates the first spoiler block from the visible text.
// Returns (visible, hidden, found) - if no spoiler is present, hidden is
// empty and found is false.
func SplitSpoiler(content string) (visible, hidden string, found bool) {
	matches := spoilerRe.FindStringSubmatch(content)
	if len(matches) > 1 {
		hidden = strings.TrimSpace(matches[1])
		visible = strings.TrimSpace(spoilerRe.ReplaceAllString(content, ""))
		return visible, hidden, true
	}
	return content, "", false
}

// ReplaceSpoilers rewrites every ||hidden|| block with wrap(hidden).
func ReplaceSpoilers(content string, wrap func(hidden string) string) string {
	return spoilerRe.ReplaceAllStringFunc(content, func(m string) string {
		sub := spoilerRe.FindStringSubmatch(m)
		return wrap(sub[1])
	})
}

// StripSpoilers removes the spoiler markers and keeps the hidden text.
func StripSpoilers(content string) string {
	return ReplaceSpoilers(content, func(hidden string) string { return hidden })
}

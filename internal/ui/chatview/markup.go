// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"regexp"
	"strings"
)

// The renderer emits exactly three markup forms plus escaped text; this file
// maps them onto terminal attributes.

const (
	ansiBold      = "\x1b[1m"
	ansiBoldOff   = "\x1b[22m"
	ansiItalic    = "\x1b[3m"
	ansiItalicOff = "\x1b[23m"
)

var (
	strongTagRe = regexp.MustCompile(`<strong>(.*?)</strong>`)
	emTagRe     = regexp.MustCompile(`<em>(.*?)</em>`)
)

var entityUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// MarkupToANSI converts renderer markup into terminal text: strong becomes
// bold, em becomes italic, break markers become newlines, and escaped
// entities are restored. Entities are unescaped last and exactly once, so
// text that escaped to "&amp;lt;" round-trips to a literal "&lt;".
func MarkupToANSI(markup string) string {
	s := strongTagRe.ReplaceAllString(markup, ansiBold+"$1"+ansiBoldOff)
	s = emTagRe.ReplaceAllString(s, ansiItalic+"$1"+ansiItalicOff)
	s = strings.ReplaceAll(s, "<br />", "\n")
	return entityUnescaper.Replace(s)
}

// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render converts raw chat message text into display markup and
// extracts at most one inline image reference.
//
// The assistant's replies mix prose with markdown image constructs and bare
// URLs (visual simulations hosted on blob storage). Rendering is an ordered
// pipeline of independent pure steps:
//
//  1. StripEmptyLinks    - drop [label]() and ![label]() noise
//  2. ExtractMarkdownImage - capture ![alt](http...) and remove the construct
//  3. ExtractBareImageURL  - fallback: first bare URL with an image indicator
//  4. CollapseWhitespace   - whitespace runs become single spaces
//  5. EscapeText           - escape &, <, > before any markup is produced
//  6. Emphasize            - **x** -> <strong>, *x* -> <em>, \n -> <br />
//
// Each step is exported and individually testable. No step ever fails: a
// malformed or absent match yields no image and passes the text through.
package render

import (
	"regexp"
	"strings"
)

// Compiled once; the pipeline runs on every render of every message.
var (
	// [label]() or ![label]() with an empty URL part.
	emptyLinkRe = regexp.MustCompile(`!?\[[^\]]*\]\(\)`)

	// ![alt](http://... ) or ![alt](https://...).
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)]+)\)`)

	// A bare URL: http(s):// followed by non-whitespace, non-paren characters.
	bareURLRe = regexp.MustCompile(`https?://[^\s)]+`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	strongRe = regexp.MustCompile(`\*\*(.*?)\*\*`)
	emRe     = regexp.MustCompile(`\*(.*?)\*`)
)

// imageIndicators classify a bare URL as an image when its lowercase form
// contains any of these substrings. Blob-storage URLs carry query parameters
// instead of file extensions, so host fragments are checked too.
var imageIndicators = []string{
	"blob.core.windows.net",
	"dalle",
	"image",
	"img-",
	".png",
	".jpg",
	".jpeg",
	".gif",
	".webp",
}

// Rendered is the derived display form of one message. It is never stored;
// callers recompute it on every render.
type Rendered struct {
	// Markup is the display markup: escaped text with <strong>, <em> and
	// <br /> produced by the pipeline. No other tags can appear.
	Markup string

	// ImageURL is the extracted image reference, or "" when none was found.
	ImageURL string
}

// HasImage reports whether an image reference was extracted.
func (r Rendered) HasImage() bool {
	return r.ImageURL != ""
}

// Render runs the full pipeline over raw message text.
func Render(text string) Rendered {
	text = StripEmptyLinks(text)

	text, imageURL := ExtractMarkdownImage(text)
	if imageURL == "" {
		text, imageURL = ExtractBareImageURL(text)
	}

	text = CollapseWhitespace(text)
	text = EscapeText(text)
	text = Emphasize(text)

	return Rendered{Markup: text, ImageURL: imageURL}
}

// StripEmptyLinks removes markdown link and image constructs whose URL part
// is empty, for any label value. These show up when the assistant emits a
// placeholder like [Veja aqui]() and are treated as noise.
func StripEmptyLinks(text string) string {
	return emptyLinkRe.ReplaceAllString(text, "")
}

// ExtractMarkdownImage captures the URL of the first well-formed markdown
// image construct with an http(s) URL and removes every such construct from
// the text. Returns the cleaned text and the URL, or ("", text-unchanged
// semantics) when no construct matches.
func ExtractMarkdownImage(text string) (string, string) {
	match := markdownImageRe.FindStringSubmatch(text)
	if match == nil {
		return text, ""
	}
	return markdownImageRe.ReplaceAllString(text, ""), match[1]
}

// ExtractBareImageURL scans for bare http(s) URLs. The first one found is
// classified as an image when its lowercase form contains any image
// indicator; if so it is captured and all bare URLs are removed from the
// text. A first URL matching no indicator stays in the text and no image
// is produced.
func ExtractBareImageURL(text string) (string, string) {
	url := bareURLRe.FindString(text)
	if url == "" {
		return text, ""
	}
	if !isImageURL(url) {
		return text, ""
	}
	return bareURLRe.ReplaceAllString(text, ""), url
}

func isImageURL(url string) bool {
	lower := strings.ToLower(url)
	for _, indicator := range imageIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// CollapseWhitespace folds every whitespace run (including newlines) into a
// single space and trims leading/trailing whitespace.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeText escapes &, < and > in residual text. It runs before Emphasize,
// so the only markup in the output is what the pipeline itself produced.
// The original client skipped this step; see the message-injection note in
// DESIGN.md.
func EscapeText(text string) string {
	return textEscaper.Replace(text)
}

// Emphasize converts inline emphasis markers to markup. Double-asterisk
// spans are consumed first so **x** is not misread as nested single
// emphasis. Newlines become explicit break markers; none should survive
// CollapseWhitespace, but the rule still applies when steps run standalone.
func Emphasize(text string) string {
	text = strongRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = emRe.ReplaceAllString(text, "<em>$1</em>")
	return strings.ReplaceAll(text, "\n", "<br />")
}

// Package content validates that downloaded bytes plausibly match the
// content category their URL promised. Three checks run in order, first
// success wins: file signatures (magic bytes), the Content-Type response
// header, and a structural heuristic for text-like categories.
package content

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"github.com/Webictbyleo/capsule"
	"github.com/beevik/etree"
)

// Ensure Validator implements capsule.Validator at compile time.
var _ capsule.Validator = (*Validator)(nil)

// Validator checks downloaded bytes against expected content categories.
// The zero value is ready to use.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks data against the expected category.
//
// A category with no accepted signature, MIME set, or structural pattern
// (CategoryOther) can never pass a check, so its content is always
// rejected. This validator never returns Indeterminate; that outcome is
// reserved for implementations whose checks cannot run at all.
func (v *Validator) Validate(data []byte, expected capsule.Category, contentType string) capsule.ValidationOutcome {
	if len(data) == 0 {
		return capsule.Rejected
	}

	if matchesSignature(data, expected) {
		return capsule.Accepted
	}
	if matchesContentType(contentType, expected) {
		return capsule.Accepted
	}
	if isTextCategory(expected) && matchesTextStructure(data, expected) {
		return capsule.Accepted
	}

	return capsule.Rejected
}

func isTextCategory(c capsule.Category) bool {
	return c == capsule.CategoryStylesheet || c == capsule.CategoryScript || c == capsule.CategoryText
}

// matchesSignature checks data against the fixed magic byte table for the
// category.
func matchesSignature(data []byte, expected capsule.Category) bool {
	if len(data) < 4 {
		return false
	}

	switch expected {
	case capsule.CategoryImage:
		switch {
		case bytes.HasPrefix(data, []byte{0xFF, 0xD8}): // JPEG
			return true
		case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
			return true
		case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
			return true
		case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
			return true
		case bytes.HasPrefix(data, []byte("BM")):
			return true
		case bytes.HasPrefix(data, []byte{0x00, 0x00, 0x01, 0x00}): // ICO
			return true
		}
		return isSVG(data)

	case capsule.CategoryFont:
		switch {
		case bytes.HasPrefix(data, []byte("wOFF")), bytes.HasPrefix(data, []byte("wOF2")):
			return true
		case bytes.HasPrefix(data, []byte{0x00, 0x01, 0x00, 0x00}): // TTF
			return true
		case bytes.HasPrefix(data, []byte("OTTO")), bytes.HasPrefix(data, []byte("true")), bytes.HasPrefix(data, []byte("typ1")):
			return true
		}
		// EOT stores a magic number at offset 34.
		return len(data) > 38 && binary.LittleEndian.Uint32(data[34:38]) == 0x504C
	}

	return false
}

// isSVG detects SVG images. The fast path looks for an <svg tag near the
// start; documents with long XML prologues or comment headers fall back to
// a real XML parse of the root element.
func isSVG(data []byte) bool {
	head := data
	if len(head) > 200 {
		head = head[:200]
	}
	if bytes.Contains(bytes.ToLower(head), []byte("<svg")) {
		return true
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("<")) {
		return false
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return false
	}
	root := doc.Root()
	return root != nil && strings.EqualFold(root.Tag, "svg")
}

// contentTypeSets maps each category to the MIME substrings accepted from
// the Content-Type header.
var contentTypeSets = map[capsule.Category][]string{
	capsule.CategoryImage: {
		"image/jpeg", "image/png", "image/gif", "image/svg", "image/webp",
		"image/bmp", "image/x-icon", "image/vnd.microsoft.icon",
	},
	capsule.CategoryStylesheet: {"text/css"},
	capsule.CategoryScript: {
		"application/javascript", "application/x-javascript", "text/javascript",
	},
	capsule.CategoryFont: {
		"font/", "application/font", "application/x-font", "application/vnd.ms-fontobject",
	},
	capsule.CategoryText: {"text/", "application/json", "application/xml"},
}

// matchesContentType checks the Content-Type header against the category's
// known MIME set.
func matchesContentType(contentType string, expected capsule.Category) bool {
	if contentType == "" {
		return false
	}
	lower := strings.ToLower(contentType)
	for _, mime := range contentTypeSets[expected] {
		if strings.Contains(lower, mime) {
			return true
		}
	}
	return false
}

// structuralProbeSize limits how much of the body the text heuristic reads.
const structuralProbeSize = 1000

// matchesTextStructure decodes data as text and looks for tokens
// characteristic of the category.
func matchesTextStructure(data []byte, expected capsule.Category) bool {
	probe := data
	if len(probe) > structuralProbeSize {
		probe = probe[:structuralProbeSize]
	}
	text := strings.ToLower(strings.TrimSpace(string(probe)))

	switch expected {
	case capsule.CategoryStylesheet:
		for _, tok := range []string{"{", "}", "@media", "@import", "@font-face", "px", "em", "%"} {
			if strings.Contains(text, tok) {
				return true
			}
		}
	case capsule.CategoryScript:
		for _, tok := range []string{"function", "var ", "let ", "const ", "=>", "window.", "document.", "console."} {
			if strings.Contains(text, tok) {
				return true
			}
		}
	case capsule.CategoryText:
		return utf8.Valid(data)
	}
	return false
}

package lib

import (
	"regexp"
	"strings"
)

/* This file implements the light markdown reading shared by the format checks, the scorer and the dedup engine */

var (
	// '## 3. Results' or '**Results**' on its own line
	markdownHeader = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.+?)\s*#*\s*$`)
	boldHeader     = regexp.MustCompile(`^\s*\*\*([^*]+)\*\*\s*:?\s*$`)
	headerNumber   = regexp.MustCompile(`^(?:\d+(?:\.\d+)*[.)]?|[ivxlc]+[.)])\s+`)
	referenceMark  = regexp.MustCompile(`\[(\d{1,4})\]`)
)

// Header is a section header found in a document
type Header struct {
	Title string // the normalized (lowercase, unnumbered) header text
	Line  int    // zero based line index
}

// Headers() returns the section headers of a markdown document in order
func Headers(content string) (headers []Header) {
	for i, line := range strings.Split(content, "\n") {
		var text string
		if m := markdownHeader.FindStringSubmatch(line); m != nil {
			text = m[1]
		} else if m = boldHeader.FindStringSubmatch(line); m != nil {
			text = m[1]
		} else {
			continue
		}
		text = strings.ToLower(strings.Trim(strings.TrimSpace(text), ":*_ "))
		text = headerNumber.ReplaceAllString(text, "")
		headers = append(headers, Header{Title: text, Line: i})
	}
	return
}

// HasSection() returns true if any header names the section
func HasSection(headers []Header, section string) bool {
	section = strings.ToLower(section)
	for _, h := range headers {
		for _, word := range strings.FieldsFunc(h.Title, func(r rune) bool { return r == ' ' || r == '&' || r == '/' || r == ',' }) {
			if word == section {
				return true
			}
		}
	}
	return false
}

// MissingSections() returns the required sections without a header
func MissingSections(content string, required []string) (missing []string) {
	headers := Headers(content)
	for _, s := range required {
		if !HasSection(headers, s) {
			missing = append(missing, s)
		}
	}
	return
}

// Section() returns the body of the first section whose header names the section, up to the next header
func Section(content, section string) string {
	lines, headers := strings.Split(content, "\n"), Headers(content)
	for i, h := range headers {
		if !HasSection([]Header{h}, section) {
			continue
		}
		end := len(lines)
		if i+1 < len(headers) {
			end = headers[i+1].Line
		}
		return strings.TrimSpace(strings.Join(lines[h.Line+1:end], "\n"))
	}
	return ""
}

// WordCount() returns the number of whitespace separated words
func WordCount(content string) int { return len(strings.Fields(content)) }

// ReferenceCount() returns the number of distinct bracketed numeric reference markers
func ReferenceCount(content string) int {
	seen := NewDeDuplicator[string]()
	count := 0
	for _, m := range referenceMark.FindAllStringSubmatch(content, -1) {
		if !seen.Found(m[1]) {
			count++
		}
	}
	return count
}

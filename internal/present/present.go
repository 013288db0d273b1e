// Package present splits a stored explanation into per-problem sections for
// display. The text comes from a language model, so parsing is best effort:
// anything it cannot place stays in the section body.
package present

import (
	"regexp"
	"strconv"
	"strings"
)

// Section is one problem within an explanation.
type Section struct {
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Steps       []string `json:"steps"`
	FinalAnswer string   `json:"finalAnswer,omitempty"`
}

// Document is a parsed explanation.
type Document struct {
	Sections []Section `json:"sections"`
}

var (
	// "**Problem 1:** ...", "Problem 2: ...", "### **Problem 3 :**"
	problemLine = regexp.MustCompile(`(?i)^[#>\s]*\**\s*problem\s+(\d+)\s*\**\s*:\s*\**\s*(.*)$`)
	stepLine    = regexp.MustCompile(`(?i)^[\s>*\-]*\**\s*step\s+(\d+)\b\s*[:.)\-]?\s*\**\s*(.*)$`)
	answerLine  = regexp.MustCompile(`(?i)^[\s>*\-#]*(?:\d+\.\s*)?\**\s*final\s+answer\s*\**\s*:?\s*\**\s*(.*)$`)
)

// Parse splits text on "Problem N:" markers. Text with no markers yields a
// single section, numbered 1, holding all of it.
func Parse(text string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var (
		sections []Section
		cur      *Section
		body     []string
		preamble []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Body = strings.TrimSpace(strings.Join(body, "\n"))
		sections = append(sections, *cur)
		cur, body = nil, nil
	}

	for _, line := range lines {
		if m := problemLine.FindStringSubmatch(line); m != nil {
			flush()
			n, _ := strconv.Atoi(m[1])
			cur = &Section{Number: n, Title: cleanup(m[2]), Steps: []string{}}
			continue
		}
		if cur == nil {
			preamble = append(preamble, line)
			continue
		}
		body = append(body, line)
		scan(cur, line)
	}
	flush()

	if len(sections) == 0 {
		whole := Section{Number: 1, Body: strings.TrimSpace(text), Steps: []string{}}
		for _, line := range lines {
			scan(&whole, line)
		}
		return Document{Sections: []Section{whole}}
	}

	// Text before the first marker belongs to the first problem.
	if intro := strings.TrimSpace(strings.Join(preamble, "\n")); intro != "" {
		sections[0].Body = strings.TrimSpace(intro + "\n\n" + sections[0].Body)
	}
	return Document{Sections: sections}
}

// scan records step and final-answer lines found in a section's body.
func scan(s *Section, line string) {
	if m := stepLine.FindStringSubmatch(line); m != nil {
		if step := cleanup(m[2]); step != "" {
			s.Steps = append(s.Steps, step)
		}
		return
	}
	if m := answerLine.FindStringSubmatch(line); m != nil && s.FinalAnswer == "" {
		s.FinalAnswer = cleanup(m[1])
	}
}

func cleanup(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*"))
}

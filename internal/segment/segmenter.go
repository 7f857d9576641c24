// Package segment splits structured Markdown documents into ordered, typed
// content units for embedding. Fenced code blocks are atomic: a unit boundary
// never falls inside a fence.
package segment

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Segment splits document text into content units. targetSize bounds the
// token (whitespace word) count of a text unit; overlap is the token budget
// seeded from the tail of a flushed unit into the next one. Whole lines are
// never split. The function is deterministic and never fails: an unterminated
// code fence accumulates to end of input and is emitted as a code unit.
func Segment(text string, targetSize, overlap int) []domain.ContentUnit {
	var units []domain.ContentUnit

	var buf []string
	bufTokens := 0
	var headingPath []string

	var codeBuf []string
	inCode := false

	emit := func(content string, kind domain.UnitKind, path []string) {
		if strings.TrimSpace(content) == "" {
			return
		}
		units = append(units, domain.ContentUnit{
			Content:     content,
			Kind:        kind,
			HeadingPath: append([]string(nil), path...),
			Position:    len(units),
		})
	}

	flushText := func(path []string) {
		if len(buf) == 0 {
			return
		}
		emit(strings.Join(buf, "\n"), domain.UnitText, path)
		buf = nil
		bufTokens = 0
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			if inCode {
				emit(strings.Join(codeBuf, "\n"), domain.UnitCode, headingPath)
				codeBuf = nil
				inCode = false
			} else {
				// Text preceding a fence flushes even when under the size target.
				flushText(headingPath)
				inCode = true
			}
			continue
		}
		if inCode {
			codeBuf = append(codeBuf, line)
			continue
		}

		if m := headingRegex.FindStringSubmatch(line); m != nil {
			// The buffered text belongs to the section that is ending, so it
			// is tagged with the heading path as it stood before this line.
			flushText(headingPath)

			level := len(m[1])
			title := strings.TrimSpace(m[2])
			if level-1 < len(headingPath) {
				headingPath = headingPath[:level-1]
			}
			headingPath = append(headingPath, title)
		}

		lineTokens := countTokens(line)
		if bufTokens+lineTokens > targetSize && len(buf) > 0 {
			flushed := buf
			flushText(headingPath)
			buf, bufTokens = tailOverlap(flushed, overlap)
		}

		buf = append(buf, line)
		bufTokens += lineTokens
	}

	if inCode {
		// Fence never closed: degrade gracefully, keep the block whole.
		emit(strings.Join(codeBuf, "\n"), domain.UnitCode, headingPath)
	}
	flushText(headingPath)

	return units
}

// tailOverlap walks a flushed buffer backward collecting whole lines until
// the overlap token budget would be exceeded.
func tailOverlap(lines []string, overlap int) ([]string, int) {
	var kept []string
	tokens := 0
	for i := len(lines) - 1; i >= 0; i-- {
		lineTokens := countTokens(lines[i])
		if tokens+lineTokens > overlap {
			break
		}
		kept = append([]string{lines[i]}, kept...)
		tokens += lineTokens
	}
	return kept, tokens
}

// countTokens approximates token count by whitespace-separated words.
// Determinism matters here, token-exactness does not.
func countTokens(line string) int {
	return len(strings.Fields(line))
}

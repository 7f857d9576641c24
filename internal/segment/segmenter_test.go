package segment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

const (
	testTargetSize = 512
	testOverlap    = 64
)

func TestSegment_HeadingPaths(t *testing.T) {
	doc := "# A\n\ntext1\n\n## B\n\ntext2"

	units := Segment(doc, testTargetSize, testOverlap)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}

	first := units[0]
	if !strings.Contains(first.Content, "text1") {
		t.Fatalf("first unit should contain text1, got %q", first.Content)
	}
	assertPath(t, first.HeadingPath, "A")

	second := units[1]
	if !strings.Contains(second.Content, "text2") {
		t.Fatalf("second unit should contain text2, got %q", second.Content)
	}
	assertPath(t, second.HeadingPath, "A", "B")
}

func TestSegment_CodeBlockAtomicity(t *testing.T) {
	code := "def main():\n    print(\"hello\")\n    return 0"
	doc := "# Setup\n\nSome intro text here.\n\n```\n" + code + "\n```\n\nClosing remarks."

	units := Segment(doc, testTargetSize, testOverlap)

	var codeUnits []domain.ContentUnit
	for _, u := range units {
		if u.Kind == domain.UnitCode {
			codeUnits = append(codeUnits, u)
		}
	}
	if len(codeUnits) != 1 {
		t.Fatalf("expected exactly 1 code unit, got %d", len(codeUnits))
	}
	if codeUnits[0].Content != code {
		t.Errorf("code unit content mismatch:\nwant %q\ngot  %q", code, codeUnits[0].Content)
	}

	// No text unit may contain any fragment of the fenced block.
	for _, u := range units {
		if u.Kind == domain.UnitText && strings.Contains(u.Content, "def main()") {
			t.Errorf("code leaked into text unit: %q", u.Content)
		}
	}
}

func TestSegment_TwoSectionsWithCodeBlock(t *testing.T) {
	doc := "# Install\n\nRun the installer first.\n\n```\nsudo apt install ros-jazzy\n```\n\n# Verify\n\nCheck the version output."

	units := Segment(doc, testTargetSize, testOverlap)
	if len(units) != 3 {
		t.Fatalf("expected 3 units (text, code, text), got %d", len(units))
	}

	wantKinds := []domain.UnitKind{domain.UnitText, domain.UnitCode, domain.UnitText}
	for i, u := range units {
		if u.Kind != wantKinds[i] {
			t.Errorf("unit %d: kind = %s, want %s", i, u.Kind, wantKinds[i])
		}
		if u.Position != i {
			t.Errorf("unit %d: position = %d, want %d", i, u.Position, i)
		}
	}

	assertPath(t, units[0].HeadingPath, "Install")
	assertPath(t, units[1].HeadingPath, "Install")
	assertPath(t, units[2].HeadingPath, "Verify")
}

func TestSegment_OverlapBound(t *testing.T) {
	const target = 20
	const overlap = 5

	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, fmt.Sprintf("alpha beta gamma line%02d", i))
	}
	doc := strings.Join(lines, "\n")

	units := Segment(doc, target, overlap)
	if len(units) < 2 {
		t.Fatalf("expected multiple units, got %d", len(units))
	}

	for i := 1; i < len(units); i++ {
		prev := strings.Split(units[i-1].Content, "\n")
		cur := strings.Split(units[i].Content, "\n")

		// Count whole trailing lines of prev that lead cur.
		shared := 0
		sharedTokens := 0
		for shared < len(prev) && shared < len(cur) {
			line := prev[len(prev)-1-shared]
			if cur[shared] != line {
				break
			}
			shared++
			sharedTokens += len(strings.Fields(line))
		}

		if sharedTokens == 0 {
			t.Errorf("units %d/%d share no overlap", i-1, i)
		}
		if sharedTokens > overlap {
			t.Errorf("units %d/%d overlap %d tokens, budget %d", i-1, i, sharedTokens, overlap)
		}
	}
}

func TestSegment_UnterminatedFence(t *testing.T) {
	doc := "# A\n\nintro\n\n```\ncode line one\ncode line two"

	units := Segment(doc, testTargetSize, testOverlap)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	last := units[len(units)-1]
	if last.Kind != domain.UnitCode {
		t.Fatalf("trailing unit kind = %s, want code", last.Kind)
	}
	if last.Content != "code line one\ncode line two" {
		t.Errorf("unexpected code content: %q", last.Content)
	}
}

func TestSegment_WhitespaceOnlyDropped(t *testing.T) {
	doc := "# A\n\n   \n\n# B\n\nreal content"

	units := Segment(doc, testTargetSize, testOverlap)
	for _, u := range units {
		if strings.TrimSpace(u.Content) == "" {
			t.Errorf("whitespace-only unit emitted at position %d", u.Position)
		}
	}
}

func TestSegment_EmptyFenceDropped(t *testing.T) {
	doc := "text before\n```\n```\ntext after"

	units := Segment(doc, testTargetSize, testOverlap)
	for _, u := range units {
		if u.Kind == domain.UnitCode {
			t.Errorf("empty code block should be dropped, got %q", u.Content)
		}
	}
}

func TestSegment_HeadingSiblingResetsPath(t *testing.T) {
	doc := "# A\n## B\ndeep text\n# C\ntop text"

	units := Segment(doc, testTargetSize, testOverlap)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	assertPath(t, units[0].HeadingPath, "A", "B")
	assertPath(t, units[1].HeadingPath, "C")
}

func TestSegment_Deterministic(t *testing.T) {
	doc := "# A\ntext one\n```\ncode\n```\n## B\ntext two"

	a := Segment(doc, testTargetSize, testOverlap)
	b := Segment(doc, testTargetSize, testOverlap)

	if len(a) != len(b) {
		t.Fatalf("non-deterministic unit count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Content != b[i].Content || a[i].Kind != b[i].Kind || a[i].Position != b[i].Position {
			t.Errorf("unit %d differs between runs", i)
		}
	}
}

func TestSegment_Empty(t *testing.T) {
	if units := Segment("", testTargetSize, testOverlap); len(units) != 0 {
		t.Fatalf("expected no units for empty input, got %d", len(units))
	}
}

func assertPath(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("heading path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("heading path = %v, want %v", got, want)
		}
	}
}

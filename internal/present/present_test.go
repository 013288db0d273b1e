package present

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoProblems = `Great questions! Let's work through them.

**Problem 1:** What is 12 + 7?
Step 1: Start with 12.
**Step 2:** Count up 7 more.
**Final Answer:** 19

**Quick Tip**: Adding is counting forward.

Problem 2: Solve 3x = 12
- Step 1 - Divide both sides by 3.
Final Answer: x = 4`

func TestParse_SplitsOnProblemMarkers(t *testing.T) {
	doc := Parse(twoProblems)
	require.Len(t, doc.Sections, 2)

	first := doc.Sections[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "What is 12 + 7?", first.Title)
	assert.Equal(t, []string{"Start with 12.", "Count up 7 more."}, first.Steps)
	assert.Equal(t, "19", first.FinalAnswer)
	assert.Contains(t, first.Body, "Great questions!", "preamble belongs to the first section")
	assert.Contains(t, first.Body, "Quick Tip")

	second := doc.Sections[1]
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, "Solve 3x = 12", second.Title)
	assert.Equal(t, []string{"Divide both sides by 3."}, second.Steps)
	assert.Equal(t, "x = 4", second.FinalAnswer)
}

func TestParse_BoldVariants(t *testing.T) {
	tests := []struct {
		line   string
		number int
		title  string
	}{
		{"**Problem 3:** Area of a square", 3, "Area of a square"},
		{"**Problem 4**: Perimeter", 4, "Perimeter"},
		{"### **Problem 5: Fractions**", 5, "Fractions"},
		{"problem 6:", 6, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			doc := Parse(tt.line + "\nStep 1: think")
			require.Len(t, doc.Sections, 1)
			assert.Equal(t, tt.number, doc.Sections[0].Number)
			assert.Equal(t, tt.title, doc.Sections[0].Title)
			assert.Equal(t, []string{"think"}, doc.Sections[0].Steps)
		})
	}
}

func TestParse_NoMarkers(t *testing.T) {
	text := "  The answer is 4 because 2 and 2 make 4.\nFinal Answer: 4  "
	doc := Parse(text)

	require.Len(t, doc.Sections, 1)
	s := doc.Sections[0]
	assert.Equal(t, 1, s.Number)
	assert.Equal(t, "The answer is 4 because 2 and 2 make 4.\nFinal Answer: 4", s.Body)
	assert.Equal(t, "4", s.FinalAnswer)
	assert.NotNil(t, s.Steps)
	assert.Empty(t, s.Steps)
}

func TestParse_ProseMentionIsNotAMarker(t *testing.T) {
	doc := Parse("Problem 1 asks for a sum.\nThe answer is 5.")
	require.Len(t, doc.Sections, 1)
	assert.Contains(t, doc.Sections[0].Body, "Problem 1 asks")
}

func TestParse_Empty(t *testing.T) {
	doc := Parse("")
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "", doc.Sections[0].Body)
}

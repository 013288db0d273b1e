package model

import "time"

// ProblemType tags how the problem was submitted.
type ProblemType string

const (
	ProblemTypeImage ProblemType = "image"
	ProblemTypeText  ProblemType = "text"
)

// Valid reports whether t is one of the supported submission modes.
func (t ProblemType) Valid() bool {
	return t == ProblemTypeImage || t == ProblemTypeText
}

// Solution is one solved problem in a user's archive.
//
// ProblemContent is the raw text for "text" problems and the base64 image
// payload for "image" problems. MimeType is only set for images.
//
// Solution is the provider's text verbatim. It usually carries markers like
// "Problem 1:", "Step 2" and "Final Answer:", but nothing here depends on
// them; see package present for the best-effort parser.
type Solution struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"-"`
	ExternalID     string      `json:"-"`
	ProblemNumber  int         `json:"problemNumber"`
	ProblemType    ProblemType `json:"problemType"`
	ProblemContent string      `json:"problemContent"`
	MimeType       *string     `json:"mimeType"`
	Solution       string      `json:"solution"`
	CreatedAt      time.Time   `json:"createdAt"`
}

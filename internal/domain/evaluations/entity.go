package evaluations

import (
	"strings"
	"time"
)

// Result enum
type Result string

const (
	ResultPass    Result = "pass"
	ResultFail    Result = "fail"
	ResultPending Result = "pending"
)

// ParseResult normalises user input to a Result.
func ParseResult(s string) (Result, bool) {
	switch Result(strings.ToLower(strings.TrimSpace(s))) {
	case ResultPass:
		return ResultPass, true
	case ResultFail:
		return ResultFail, true
	case ResultPending:
		return ResultPending, true
	}
	return "", false
}

// Evaluation is an auditor's judgment on a company's answer to one question.
type Evaluation struct {
	OrganizationID string    `json:"organization_id"`
	QuestionID     string    `json:"question_id"`
	Answer         string    `json:"answer"`
	Result         Result    `json:"result"`
	Reason         string    `json:"reason,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	EvaluatedBy    string    `json:"evaluated_by"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

// Stats aggregates the evaluations of one review.
type Stats struct {
	Total                int     `json:"total"`
	Evaluated            int     `json:"evaluated"`
	Passed               int     `json:"passed"`
	Failed               int     `json:"failed"`
	Pending              int     `json:"pending"`
	CompletionPercentage float64 `json:"completionPercentage"`
	PassPercentage       float64 `json:"passPercentage"`
}

// ComputeStats counts evaluations against total questions.
// An evaluation with Result pending counts as evaluated but neither passed nor failed.
// Pending in the output is total - evaluated.
func ComputeStats(total int, evals map[string]*Evaluation) Stats {
	st := Stats{Total: total, Evaluated: len(evals)}
	for _, e := range evals {
		switch e.Result {
		case ResultPass:
			st.Passed++
		case ResultFail:
			st.Failed++
		}
	}
	st.Pending = st.Total - st.Evaluated
	if st.Pending < 0 {
		st.Pending = 0
	}
	st.CompletionPercentage = Percentage(st.Evaluated, st.Total)
	st.PassPercentage = Percentage(st.Passed, st.Evaluated)
	return st
}

// Percentage returns part/whole*100, or 0 when whole is 0.
func Percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Suggestion is an LLM-proposed evaluation. It is never recorded automatically.
type Suggestion struct {
	QuestionID string  `json:"question_id"`
	Result     Result  `json:"result"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

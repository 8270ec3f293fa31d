package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
)

const defaultCriteria = `Judge whether the answer shows the control is actually in place for the organisation. A PASS needs a specific, credible description of what is done, by whom and how often, ideally backed by evidence. Vague, aspirational or empty answers FAIL. Use pending when the answer is plausible but needs evidence or clarification before a decision.`

// EvaluationSystemPrompt combines the generated clause prompts (or the default criteria) with the output schema.
func EvaluationSystemPrompt(clausePrompts []string) string {
	var b strings.Builder
	b.WriteString("You are a Cyber Essentials auditor assistant. You suggest a decision for one self-assessment answer; an auditor makes the final call.\n\n")
	b.WriteString("## Evaluation Criteria\n")
	if len(clausePrompts) == 0 {
		b.WriteString(defaultCriteria)
		b.WriteString("\n")
	}
	for i, p := range clausePrompts {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(strings.TrimSpace(p))
		b.WriteString("\n")
	}
	b.WriteString(`
## Output
Respond with one JSON object only (no markdown, no code fences):
{"result": "<pass|fail|pending>", "reason": "<one or two sentences>", "confidence": <number between 0 and 1>}`)
	return b.String()
}

// EvaluationUserPrompt renders the question, the answer and evidence file names.
func EvaluationUserPrompt(in evaluations.SuggestInput) string {
	evidence := "none"
	if len(in.Evidence) > 0 {
		evidence = strings.Join(in.Evidence, ", ")
	}
	answer := in.Answer
	if strings.TrimSpace(answer) == "" {
		answer = "(no answer)"
	}
	return fmt.Sprintf("Question %s: %s\n\nAnswer: %s\n\nEvidence files: %s", in.QuestionID, in.Question, answer, evidence)
}

type suggestionJSON struct {
	Result     string  `json:"result"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// ParseSuggestion reads the model's JSON reply. Text around the object is ignored.
func ParseSuggestion(questionID, content string) (*evaluations.Suggestion, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, goerr.New("no JSON object in suggestion", goerr.V("content", content))
	}
	var raw suggestionJSON
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to decode suggestion", goerr.V("content", content))
	}
	result, ok := evaluations.ParseResult(raw.Result)
	if !ok {
		return nil, goerr.New("unknown suggestion result", goerr.V("result", raw.Result))
	}
	conf := raw.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return &evaluations.Suggestion{QuestionID: questionID, Result: result, Reason: raw.Reason, Confidence: conf}, nil
}

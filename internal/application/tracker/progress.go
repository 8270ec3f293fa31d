package tracker

import (
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

// AnswerEntry is the answer text and files held for one question.
type AnswerEntry struct {
	Text  string                 `json:"text"`
	Files []answers.EvidenceFile `json:"files,omitempty"`
}

// Progress tracks one company's pass through the questionnaire.
// It is not safe for concurrent use; callers serialise access.
type Progress struct {
	questions []*questionnaire.Question
	index     map[string]int
	answers   map[string]AnswerEntry
	completed map[string]struct{}
	cursor    int
	submitted bool
}

// NewProgress returns an empty tracker.
func NewProgress() *Progress {
	return &Progress{
		index:     map[string]int{},
		answers:   map[string]AnswerEntry{},
		completed: map[string]struct{}{},
	}
}

// SetQuestions replaces the ordered question list and resets the cursor.
// Answers recorded for ids no longer present are kept but do not count.
func (p *Progress) SetQuestions(qs []*questionnaire.Question) {
	p.questions = qs
	p.index = make(map[string]int, len(qs))
	for i, q := range qs {
		p.index[q.ID] = i
	}
	p.cursor = 0
}

// Reload swaps in a fresh question list and keeps the cursor while it is still in range.
func (p *Progress) Reload(qs []*questionnaire.Question) {
	cursor := p.cursor
	p.SetQuestions(qs)
	if cursor < len(qs) {
		p.cursor = cursor
	}
}

// Questions returns the loaded list.
func (p *Progress) Questions() []*questionnaire.Question { return p.questions }

// Has reports whether questionID is part of the loaded list.
func (p *Progress) Has(questionID string) bool {
	_, ok := p.index[questionID]
	return ok
}

// RecordAnswer stores or overwrites the answer for questionID.
// The question is completed iff the trimmed text is non-empty; editing to empty un-completes it.
func (p *Progress) RecordAnswer(questionID, text string, files []answers.EvidenceFile) error {
	if _, ok := p.index[questionID]; !ok {
		return goerr.Wrap(errs.ErrNotFound, "question is not part of the questionnaire",
			goerr.V("question_id", questionID))
	}
	if files == nil {
		files = p.answers[questionID].Files
	}
	p.answers[questionID] = AnswerEntry{Text: text, Files: files}
	if strings.TrimSpace(text) != "" {
		p.completed[questionID] = struct{}{}
	} else {
		delete(p.completed, questionID)
	}
	return nil
}

// AttachFile appends an evidence file without touching the answer text.
func (p *Progress) AttachFile(questionID string, f answers.EvidenceFile) error {
	if _, ok := p.index[questionID]; !ok {
		return goerr.Wrap(errs.ErrNotFound, "question is not part of the questionnaire",
			goerr.V("question_id", questionID))
	}
	e := p.answers[questionID]
	e.Files = append(append([]answers.EvidenceFile(nil), e.Files...), f)
	p.answers[questionID] = e
	return nil
}

// Answer returns the entry for questionID, if any.
func (p *Progress) Answer(questionID string) (AnswerEntry, bool) {
	e, ok := p.answers[questionID]
	return e, ok
}

// IsCompleted reports whether questionID counts as answered.
func (p *Progress) IsCompleted(questionID string) bool {
	_, ok := p.completed[questionID]
	return ok
}

// MoveTo sets the cursor. Out-of-range indexes are ignored and false is returned.
func (p *Progress) MoveTo(i int) bool {
	if i < 0 || i >= len(p.questions) {
		return false
	}
	p.cursor = i
	return true
}

// Cursor is the current question index.
func (p *Progress) Cursor() int { return p.cursor }

// CompletedCount counts completed questions that belong to the loaded list.
func (p *Progress) CompletedCount() int {
	n := 0
	for id := range p.completed {
		if _, ok := p.index[id]; ok {
			n++
		}
	}
	return n
}

// CompletionPercentage is completed/total*100, 0 when no questions are loaded.
func (p *Progress) CompletionPercentage() float64 {
	return evaluations.Percentage(p.CompletedCount(), len(p.questions))
}

// CanSubmit reports whether every loaded question is completed.
func (p *Progress) CanSubmit() bool {
	return len(p.questions) > 0 && p.CompletedCount() == len(p.questions)
}

// Submit marks the questionnaire submitted. There is no way back.
func (p *Progress) Submit() error {
	if p.submitted {
		return nil
	}
	if !p.CanSubmit() {
		return goerr.Wrap(errs.ErrInvalidInput, "questionnaire is incomplete",
			goerr.V("completed", p.CompletedCount()), goerr.V("total", len(p.questions)))
	}
	p.submitted = true
	return nil
}

// Submitted reports the submission flag.
func (p *Progress) Submitted() bool { return p.submitted }

// ProgressSnapshot is the durable part of Progress. Questions and cursor are not persisted.
type ProgressSnapshot struct {
	Answers   map[string]AnswerEntry `json:"answers"`
	Completed []string               `json:"completed"`
	Submitted bool                   `json:"submitted"`
}

// Snapshot captures the durable state; Completed is sorted.
func (p *Progress) Snapshot() ProgressSnapshot {
	s := ProgressSnapshot{
		Answers:   make(map[string]AnswerEntry, len(p.answers)),
		Completed: make([]string, 0, len(p.completed)),
		Submitted: p.submitted,
	}
	for k, v := range p.answers {
		s.Answers[k] = v
	}
	for id := range p.completed {
		s.Completed = append(s.Completed, id)
	}
	sort.Strings(s.Completed)
	return s
}

// Restore loads a snapshot. The question list and cursor are left untouched.
func (p *Progress) Restore(s ProgressSnapshot) {
	p.answers = make(map[string]AnswerEntry, len(s.Answers))
	for k, v := range s.Answers {
		p.answers[k] = v
	}
	p.completed = make(map[string]struct{}, len(s.Completed))
	for _, id := range s.Completed {
		p.completed[id] = struct{}{}
	}
	p.submitted = s.Submitted
}

package tracker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cnav/internal/application/tracker"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

func questions(ids ...string) []*questionnaire.Question {
	out := make([]*questionnaire.Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, &questionnaire.Question{ID: id, Question: "question " + id})
	}
	return out
}

func TestProgress_AllAnswered(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1", "Q2", "Q3"))

	for _, id := range []string{"Q1", "Q2", "Q3"} {
		require.NoError(t, p.RecordAnswer(id, "yes", nil))
	}
	assert.Equal(t, 100.0, p.CompletionPercentage())
	assert.True(t, p.CanSubmit())
}

func TestProgress_EmptyAnswerUnmarks(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1", "Q2"))
	require.NoError(t, p.RecordAnswer("Q1", "yes", nil))
	require.NoError(t, p.RecordAnswer("Q2", "no", nil))
	require.True(t, p.CanSubmit())

	require.NoError(t, p.RecordAnswer("Q2", "", nil))
	assert.False(t, p.IsCompleted("Q2"))
	assert.False(t, p.CanSubmit())

	require.NoError(t, p.RecordAnswer("Q1", "   \n", nil))
	assert.False(t, p.IsCompleted("Q1"))
	assert.Equal(t, 0.0, p.CompletionPercentage())
}

func TestProgress_HalfAnswered(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1", "Q2"))
	require.NoError(t, p.RecordAnswer("Q1", "yes", nil))
	require.NoError(t, p.RecordAnswer("Q2", "", nil))

	assert.Equal(t, 50.0, p.CompletionPercentage())
	assert.False(t, p.CanSubmit())
}

func TestProgress_NoQuestions(t *testing.T) {
	p := tracker.NewProgress()
	assert.Equal(t, 0.0, p.CompletionPercentage())
	assert.False(t, p.CanSubmit())
}

func TestProgress_UnknownQuestion(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1"))
	err := p.RecordAnswer("Q9", "yes", nil)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestProgress_MoveTo(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1", "Q2", "Q3"))

	assert.True(t, p.MoveTo(2))
	assert.Equal(t, 2, p.Cursor())
	assert.False(t, p.MoveTo(3))
	assert.False(t, p.MoveTo(-1))
	assert.Equal(t, 2, p.Cursor())

	p.SetQuestions(questions("Q1"))
	assert.Equal(t, 0, p.Cursor())
}

func TestProgress_Submit(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1", "Q2"))
	require.NoError(t, p.RecordAnswer("Q1", "yes", nil))

	err := p.Submit()
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	assert.False(t, p.Submitted())

	require.NoError(t, p.RecordAnswer("Q2", "yes", nil))
	require.NoError(t, p.Submit())
	assert.True(t, p.Submitted())

	// editing later does not clear the flag
	require.NoError(t, p.RecordAnswer("Q2", "", nil))
	assert.True(t, p.Submitted())
}

func TestProgress_FilesKeptWhenOnlyTextChanges(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1"))
	f := answers.EvidenceFile{Filename: "policy.pdf", FileType: "application/pdf", UploadedAt: time.Unix(0, 0).UTC()}
	require.NoError(t, p.AttachFile("Q1", f))
	require.NoError(t, p.RecordAnswer("Q1", "see attached", nil))

	e, ok := p.Answer("Q1")
	require.True(t, ok)
	assert.Equal(t, "see attached", e.Text)
	assert.Equal(t, []answers.EvidenceFile{f}, e.Files)
}

func TestProgress_SnapshotRestore(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1", "Q2", "Q3"))
	require.NoError(t, p.RecordAnswer("Q3", "c", nil))
	require.NoError(t, p.RecordAnswer("Q1", "a", nil))
	p.MoveTo(2)

	snap := p.Snapshot()
	assert.Equal(t, []string{"Q1", "Q3"}, snap.Completed)

	restored := tracker.NewProgress()
	restored.SetQuestions(questions("Q1", "Q2", "Q3"))
	restored.Restore(snap)

	assert.Equal(t, 0, restored.Cursor())
	assert.True(t, restored.IsCompleted("Q1"))
	assert.False(t, restored.IsCompleted("Q2"))
	assert.InDelta(t, 66.666, restored.CompletionPercentage(), 0.01)
	e, ok := restored.Answer("Q3")
	require.True(t, ok)
	assert.Equal(t, "c", e.Text)
}

func TestProgress_ReloadPicksUpNewQuestions(t *testing.T) {
	p := tracker.NewProgress()
	p.SetQuestions(questions("Q1", "Q2"))
	require.NoError(t, p.RecordAnswer("Q1", "yes", nil))
	require.NoError(t, p.RecordAnswer("Q2", "yes", nil))
	require.True(t, p.MoveTo(1))
	require.True(t, p.CanSubmit())

	p.Reload(questions("Q1", "Q2", "Q3"))
	assert.Equal(t, 1, p.Cursor())
	assert.False(t, p.CanSubmit())
	assert.InDelta(t, 200.0/3, p.CompletionPercentage(), 0.001)

	p.Reload(questions("Q1"))
	assert.Equal(t, 0, p.Cursor())
	assert.True(t, p.CanSubmit())
}

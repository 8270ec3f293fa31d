package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/application"
	"github.com/bryanwahyu/cnav/internal/application/tracker"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	domain "github.com/bryanwahyu/cnav/internal/domain/questionnaire"
	"github.com/bryanwahyu/cnav/internal/domain/sessions"
)

var tracer = otel.Tracer("github.com/bryanwahyu/cnav/internal/application/questionnaire")

// Hooks are optional callbacks used for metrics.
type Hooks struct {
	AnswerRecorded func()
	Submitted      func()
}

// Service keeps one progress tracker per organization.
// Service is safe for concurrent use; each tracker is serialised by its own lock.
type Service struct {
	Questions domain.QuestionReader
	Orgs      organizations.Reader
	Answers   answers.Repository
	Evidence  answers.EvidenceStore
	Sessions  sessions.Store
	Clock     application.Clock
	Logger    *zap.Logger
	Hooks     Hooks

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu     sync.Mutex
	loaded bool
	p      *tracker.Progress
}

// View is the questionnaire state returned to the company.
type View struct {
	OrganizationID       string                         `json:"organization_id"`
	Questions            []*domain.Question             `json:"questions"`
	Answers              map[string]tracker.AnswerEntry `json:"answers"`
	Completed            []string                       `json:"completed"`
	Cursor               int                            `json:"cursor"`
	CompletionPercentage float64                        `json:"completionPercentage"`
	CanSubmit            bool                           `json:"canSubmit"`
	Submitted            bool                           `json:"submitted"`
}

func (s *Service) entryFor(orgID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = map[string]*entry{}
	}
	e, ok := s.entries[orgID]
	if !ok {
		e = &entry{}
		s.entries[orgID] = e
	}
	return e
}

// with runs fn on the loaded tracker of orgID while holding its lock.
// The question list is refreshed on every call. When persist is set the
// snapshot is written after fn succeeds; on any error the tracker is rolled back.
func (s *Service) with(ctx context.Context, orgID string, persist bool, fn func(p *tracker.Progress) error) (*View, error) {
	e := s.entryFor(orgID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		p, err := s.load(ctx, orgID)
		if err != nil {
			return nil, err
		}
		e.p, e.loaded = p, true
	} else {
		// daftar pertanyaan selalu diambil ulang, katalog bisa berubah
		qs, err := s.Questions.ListQuestions(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load questions")
		}
		e.p.Reload(qs)
	}

	// a failed operation must not stay visible in memory
	before, cursor := e.p.Snapshot(), e.p.Cursor()
	rollback := func() {
		e.p.Restore(before)
		e.p.MoveTo(cursor)
	}
	if err := fn(e.p); err != nil {
		rollback()
		return nil, err
	}
	if persist {
		if err := s.persist(ctx, orgID, e.p); err != nil {
			rollback()
			return nil, err
		}
	}
	return view(orgID, e.p), nil
}

// load builds a tracker from the question list, then restores the saved
// snapshot. Without a snapshot the stored answers are replayed instead.
func (s *Service) load(ctx context.Context, orgID string) (*tracker.Progress, error) {
	if _, err := s.Orgs.Get(ctx, orgID); err != nil {
		return nil, goerr.Wrap(err, "failed to load organization", goerr.V("organization_id", orgID))
	}
	qs, err := s.Questions.ListQuestions(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load questions")
	}
	p := tracker.NewProgress()
	p.SetQuestions(qs)

	raw, err := s.Sessions.Get(ctx, sessions.QuestionnaireKey(orgID))
	switch {
	case err == nil:
		var snap tracker.ProgressSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, goerr.Wrap(err, "corrupt questionnaire snapshot", goerr.V("organization_id", orgID))
		}
		p.Restore(snap)
		return p, nil
	case !errors.Is(err, errs.ErrNotFound):
		return nil, goerr.Wrap(err, "failed to read questionnaire snapshot", goerr.V("organization_id", orgID))
	}

	stored, err := s.Answers.List(ctx, answers.Filter{OrganizationID: orgID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load stored answers", goerr.V("organization_id", orgID))
	}
	for _, a := range stored {
		// jawaban untuk pertanyaan yang sudah dihapus dilewati
		if err := p.RecordAnswer(a.QuestionID, a.Answer, a.EvidenceFiles); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
	}
	return p, nil
}

func (s *Service) persist(ctx context.Context, orgID string, p *tracker.Progress) error {
	raw, err := json.Marshal(p.Snapshot())
	if err != nil {
		return goerr.Wrap(err, "failed to encode questionnaire snapshot")
	}
	if err := s.Sessions.Put(ctx, sessions.QuestionnaireKey(orgID), raw); err != nil {
		return goerr.Wrap(err, "failed to save questionnaire snapshot", goerr.V("organization_id", orgID))
	}
	return nil
}

func view(orgID string, p *tracker.Progress) *View {
	snap := p.Snapshot()
	return &View{
		OrganizationID:       orgID,
		Questions:            p.Questions(),
		Answers:              snap.Answers,
		Completed:            snap.Completed,
		Cursor:               p.Cursor(),
		CompletionPercentage: p.CompletionPercentage(),
		CanSubmit:            p.CanSubmit(),
		Submitted:            p.Submitted(),
	}
}

//
// ==== USE CASES ====
//

// State returns the questionnaire of orgID, loading it on first use.
func (s *Service) State(ctx context.Context, orgID string) (*View, error) {
	return s.with(ctx, orgID, false, func(*tracker.Progress) error { return nil })
}

// RecordAnswer stores text as the answer to questionID and upserts the answer row.
func (s *Service) RecordAnswer(ctx context.Context, orgID, questionID, text string) (*View, error) {
	ctx, span := tracer.Start(ctx, "questionnaire.RecordAnswer")
	defer span.End()
	span.SetAttributes(attribute.String("organization_id", orgID), attribute.String("question_id", questionID))

	v, err := s.with(ctx, orgID, true, func(p *tracker.Progress) error {
		if err := p.RecordAnswer(questionID, text, nil); err != nil {
			return err
		}
		entry, _ := p.Answer(questionID)
		return s.upsert(ctx, orgID, questionID, entry)
	})
	if err != nil {
		return nil, err
	}
	if s.Hooks.AnswerRecorded != nil {
		s.Hooks.AnswerRecorded()
	}
	return v, nil
}

// MoveTo sets the cursor; an out-of-range index leaves it unchanged.
func (s *Service) MoveTo(ctx context.Context, orgID string, index int) (*View, error) {
	return s.with(ctx, orgID, false, func(p *tracker.Progress) error {
		p.MoveTo(index)
		return nil
	})
}

// Submit finalises the questionnaire. Rejected unless every question is answered.
func (s *Service) Submit(ctx context.Context, orgID string) (*View, error) {
	ctx, span := tracer.Start(ctx, "questionnaire.Submit")
	defer span.End()

	v, err := s.with(ctx, orgID, true, func(p *tracker.Progress) error {
		return p.Submit()
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("questionnaire submitted", zap.String("organization_id", orgID))
	}
	if s.Hooks.Submitted != nil {
		s.Hooks.Submitted()
	}
	return v, nil
}

// EvidenceUpload is one file attached to an answer.
type EvidenceUpload struct {
	Filename    string
	ContentType string
	Description string
	Size        int64
	Body        io.Reader
}

// AttachEvidence uploads a file to object storage and attaches it to the answer of questionID.
func (s *Service) AttachEvidence(ctx context.Context, orgID, questionID string, up EvidenceUpload) (*answers.EvidenceFile, error) {
	ctx, span := tracer.Start(ctx, "questionnaire.AttachEvidence")
	defer span.End()

	name := path.Base(strings.ReplaceAll(up.Filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "missing file name")
	}
	if s.Evidence == nil {
		return nil, goerr.Wrap(errs.ErrBackendUnavailable, "evidence storage is not configured")
	}

	var file answers.EvidenceFile
	_, err := s.with(ctx, orgID, true, func(p *tracker.Progress) error {
		if !p.Has(questionID) {
			return goerr.Wrap(errs.ErrNotFound, "question is not part of the questionnaire",
				goerr.V("question_id", questionID))
		}
		key := fmt.Sprintf("evidence/%s/%s/%s-%s", orgID, questionID, uuid.NewString(), name)
		url, err := s.Evidence.Put(ctx, key, up.Body, up.Size, up.ContentType)
		if err != nil {
			return goerr.Wrap(err, "failed to upload evidence", goerr.V("key", key))
		}
		file = answers.EvidenceFile{
			Filename:    name,
			FileType:    up.ContentType,
			Description: up.Description,
			FilePath:    url,
			UploadedAt:  s.Clock.Now(),
		}
		if err := p.AttachFile(questionID, file); err != nil {
			return err
		}
		entry, _ := p.Answer(questionID)
		return s.upsert(ctx, orgID, questionID, entry)
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (s *Service) upsert(ctx context.Context, orgID, questionID string, e tracker.AnswerEntry) error {
	now := s.Clock.Now()
	files := append([]answers.EvidenceFile(nil), e.Files...)
	sort.SliceStable(files, func(i, j int) bool { return files[i].UploadedAt.Before(files[j].UploadedAt) })
	a := &answers.Answer{
		OrganizationID: orgID,
		QuestionID:     questionID,
		Answer:         e.Text,
		EvidenceFiles:  files,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}
	if err := s.Answers.Upsert(ctx, a); err != nil {
		return goerr.Wrap(err, "failed to save answer",
			goerr.V("organization_id", orgID), goerr.V("question_id", questionID))
	}
	return nil
}

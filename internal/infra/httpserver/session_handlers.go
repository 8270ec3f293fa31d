package httpserver

import (
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	appquestionnaire "github.com/bryanwahyu/cnav/internal/application/questionnaire"
	appreview "github.com/bryanwahyu/cnav/internal/application/review"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/prompts"
	"github.com/bryanwahyu/cnav/internal/middleware"
)

//
// ==== QUESTIONNAIRE (company) ====
//

func (r *Router) handleQuestionnaire(w http.ResponseWriter, req *http.Request) error {
	orgID, err := pathID(req, "id")
	if err != nil {
		return err
	}
	v, err := r.svc.Questionnaire.State(req.Context(), orgID)
	if err != nil {
		return err
	}
	return ok(w, v)
}

// PUT /api/v1/organizations/{id}/questionnaire/answers/{questionID}
// Body: {"answer": "..."}; an empty answer unmarks the question
func (r *Router) handleRecordAnswer(w http.ResponseWriter, req *http.Request) error {
	orgID, err := pathID(req, "id")
	if err != nil {
		return err
	}
	qid, err := pathID(req, "questionID")
	if err != nil {
		return err
	}
	var body struct {
		Answer string `json:"answer"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	v, err := r.svc.Questionnaire.RecordAnswer(req.Context(), orgID, qid, body.Answer)
	if err != nil {
		return err
	}
	return ok(w, v)
}

// POST /api/v1/organizations/{id}/questionnaire/cursor
// Body: {"index": 3}
func (r *Router) handleMoveCursor(w http.ResponseWriter, req *http.Request) error {
	orgID, err := pathID(req, "id")
	if err != nil {
		return err
	}
	var body struct {
		Index *int `json:"index"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if body.Index == nil {
		return goerr.Wrap(errs.ErrInvalidInput, "index is required")
	}
	v, err := r.svc.Questionnaire.MoveTo(req.Context(), orgID, *body.Index)
	if err != nil {
		return err
	}
	return ok(w, v)
}

func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	orgID, err := pathID(req, "id")
	if err != nil {
		return err
	}
	v, err := r.svc.Questionnaire.Submit(req.Context(), orgID)
	if err != nil {
		return err
	}
	return ok(w, v)
}

// POST /api/v1/organizations/{id}/questionnaire/answers/{questionID}/evidence
// multipart form: file, description
func (r *Router) handleAttachEvidence(w http.ResponseWriter, req *http.Request) error {
	orgID, err := pathID(req, "id")
	if err != nil {
		return err
	}
	qid, err := pathID(req, "questionID")
	if err != nil {
		return err
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return goerr.Wrap(errs.ErrInvalidInput, "evidence file too large", goerr.V("limit", r.maxUpload))
		}
		return goerr.Wrap(errs.ErrInvalidInput, "invalid multipart form", goerr.V("error", err.Error()))
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return goerr.Wrap(errs.ErrInvalidInput, "missing form file \"file\"")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	f, err := r.svc.Questionnaire.AttachEvidence(req.Context(), orgID, qid, appquestionnaire.EvidenceUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Description: middleware.SanitizeString(req.FormValue("description")),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		return err
	}
	return created(w, f)
}

//
// ==== REVIEW (auditor) ====
//

// the auditor identity is the API key name
func auditorOf(req *http.Request) string {
	return principal(req).Name
}

func (r *Router) handleReview(w http.ResponseWriter, req *http.Request) error {
	v, err := r.svc.Review.State(req.Context(), auditorOf(req))
	if err != nil {
		return err
	}
	return ok(w, v)
}

func (r *Router) handleReviewCompanies(w http.ResponseWriter, req *http.Request) error {
	list, err := r.svc.Review.Companies(req.Context(), auditorOf(req))
	if err != nil {
		return err
	}
	return ok(w, list)
}

// POST /api/v1/review/select
// Body: {"organization_id": "<id>"}
func (r *Router) handleReviewSelect(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		OrganizationID string `json:"organization_id"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := requireText("organization_id", body.OrganizationID); err != nil {
		return err
	}
	if err := middleware.ValidateID(body.OrganizationID); err != nil {
		return err
	}
	v, err := r.svc.Review.Select(req.Context(), auditorOf(req), body.OrganizationID)
	if err != nil {
		return err
	}
	return ok(w, v)
}

// PUT /api/v1/review/evaluations/{questionID}
// Body: {"result": "pass|fail|pending", "reason": "", "notes": ""}
func (r *Router) handleEvaluate(w http.ResponseWriter, req *http.Request) error {
	qid, err := pathID(req, "questionID")
	if err != nil {
		return err
	}
	var body struct {
		Result string `json:"result"`
		Reason string `json:"reason"`
		Notes  string `json:"notes"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	e, err := r.svc.Review.Evaluate(req.Context(), auditorOf(req), appreview.EvaluateCommand{
		QuestionID: qid,
		Result:     body.Result,
		Reason:     middleware.SanitizeString(body.Reason),
		Notes:      middleware.SanitizeString(body.Notes),
	})
	if err != nil {
		return err
	}
	return ok(w, e)
}

func (r *Router) handleSuggest(w http.ResponseWriter, req *http.Request) error {
	qid, err := pathID(req, "questionID")
	if err != nil {
		return err
	}
	s, err := r.svc.Review.Suggest(req.Context(), auditorOf(req), qid)
	if err != nil {
		return err
	}
	return ok(w, s)
}

func (r *Router) handleReviewStats(w http.ResponseWriter, req *http.Request) error {
	st, err := r.svc.Review.Stats(req.Context(), auditorOf(req))
	if err != nil {
		return err
	}
	return ok(w, st)
}

func (r *Router) handleReviewReport(w http.ResponseWriter, req *http.Request) error {
	rep, err := r.svc.Review.Report(req.Context(), auditorOf(req))
	if err != nil {
		return err
	}
	return ok(w, rep)
}

func (r *Router) handleReviewGaps(w http.ResponseWriter, req *http.Request) error {
	gaps, err := r.svc.Review.Gaps(req.Context(), auditorOf(req))
	if err != nil {
		return err
	}
	return ok(w, gaps)
}

// POST /api/v1/review/narrative
// Body: {"audience": "executive|technical|audit"}
func (r *Router) handleReviewNarrative(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Audience string `json:"audience"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	n, err := r.svc.Review.Narrative(req.Context(), auditorOf(req), evaluations.Audience(body.Audience))
	if err != nil {
		return err
	}
	return created(w, n)
}

//
// ==== REPORTS & PROMPT RUNS ====
//

// GET /api/v1/organizations/{id}/report, built from persisted evaluations
func (r *Router) handleOrganizationReport(w http.ResponseWriter, req *http.Request) error {
	orgID, err := pathID(req, "id")
	if err != nil {
		return err
	}
	rep, err := r.svc.Reports.Build(req.Context(), orgID)
	if err != nil {
		return err
	}
	return ok(w, rep)
}

// GET /api/v1/prompt-runs?limit=20
func (r *Router) handleListPromptRuns(w http.ResponseWriter, req *http.Request) error {
	page, err := middleware.ParsePage(req.URL.Query())
	if err != nil {
		return err
	}
	runs, err := r.svc.Prompts.Runs(req.Context(), middleware.ValidateLimit(page.Limit))
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []*prompts.Run{}
	}
	return ok(w, runs)
}

func (r *Router) handleRunPrompts(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	list, err := r.svc.Prompts.RunPrompts(req.Context(), prompts.RunID(id))
	if err != nil {
		return err
	}
	return ok(w, list)
}

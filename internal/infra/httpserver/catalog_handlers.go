package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
	"github.com/bryanwahyu/cnav/internal/middleware"
)

//
// ==== QUESTIONS ====
//

// GET /api/v1/questions?limit=&offset=
func (r *Router) handleListQuestions(w http.ResponseWriter, req *http.Request) error {
	page, err := middleware.ParsePage(req.URL.Query())
	if err != nil {
		return err
	}
	list, err := r.svc.Catalog.ListQuestions(req.Context(), page)
	if err != nil {
		return err
	}
	return ok(w, list)
}

// POST /api/v1/questions
func (r *Router) handleCreateQuestion(w http.ResponseWriter, req *http.Request) error {
	var q questionnaire.Question
	if err := decode(req, &q); err != nil {
		return err
	}
	if err := middleware.ValidateQuestion(&q); err != nil {
		return err
	}
	if err := r.svc.Catalog.CreateQuestion(req.Context(), &q); err != nil {
		return err
	}
	return created(w, q)
}

func (r *Router) handleGetQuestion(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	q, err := r.svc.Catalog.GetQuestion(req.Context(), id)
	if err != nil {
		return err
	}
	return ok(w, q)
}

// PUT /api/v1/questions/{id}; empty fields keep their value
func (r *Router) handleUpdateQuestion(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	var in questionnaire.Question
	if err := decode(req, &in); err != nil {
		return err
	}
	if err := middleware.ValidateAudience(in.Audience); err != nil {
		return err
	}
	if err := middleware.ValidateGroupTag(in.GroupTag); err != nil {
		return err
	}
	q, err := r.svc.Catalog.UpdateQuestion(req.Context(), id, &in)
	if err != nil {
		return err
	}
	return ok(w, q)
}

func (r *Router) handleDeleteQuestion(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	if err := r.svc.Catalog.DeleteQuestion(req.Context(), id); err != nil {
		return err
	}
	return ok(w, map[string]string{"message": "question deleted", "id": id})
}

func (r *Router) handleProvisionsOfQuestion(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	list, err := r.svc.Catalog.ProvisionsOfQuestion(req.Context(), id)
	if err != nil {
		return err
	}
	return ok(w, list)
}

//
// ==== PROVISIONS ====
//

func (r *Router) handleListProvisions(w http.ResponseWriter, req *http.Request) error {
	page, err := middleware.ParsePage(req.URL.Query())
	if err != nil {
		return err
	}
	list, err := r.svc.Catalog.ListProvisions(req.Context(), page)
	if err != nil {
		return err
	}
	return ok(w, list)
}

func (r *Router) handleCreateProvision(w http.ResponseWriter, req *http.Request) error {
	var p questionnaire.Provision
	if err := decode(req, &p); err != nil {
		return err
	}
	if err := middleware.ValidateProvision(&p); err != nil {
		return err
	}
	if err := r.svc.Catalog.CreateProvision(req.Context(), &p); err != nil {
		return err
	}
	return created(w, p)
}

func (r *Router) handleGetProvision(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	p, err := r.svc.Catalog.GetProvision(req.Context(), id)
	if err != nil {
		return err
	}
	return ok(w, p)
}

func (r *Router) handleUpdateProvision(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	var in questionnaire.Provision
	if err := decode(req, &in); err != nil {
		return err
	}
	p, err := r.svc.Catalog.UpdateProvision(req.Context(), id, &in)
	if err != nil {
		return err
	}
	return ok(w, p)
}

func (r *Router) handleDeleteProvision(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	if err := r.svc.Catalog.DeleteProvision(req.Context(), id); err != nil {
		return err
	}
	return ok(w, map[string]string{"message": "provision deleted", "id": id})
}

func (r *Router) handleQuestionsOfProvision(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	list, err := r.svc.Catalog.QuestionsOfProvision(req.Context(), id)
	if err != nil {
		return err
	}
	return ok(w, list)
}

//
// ==== MAPPINGS ====
//

// POST /api/v1/mappings
// Body: {"question_id": "Q1", "provision_id": "A.1.4"}
func (r *Router) handleCreateMapping(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		QuestionID  string `json:"question_id"`
		ProvisionID string `json:"provision_id"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateID(body.QuestionID); err != nil {
		return err
	}
	if err := middleware.ValidateID(body.ProvisionID); err != nil {
		return err
	}
	m, err := r.svc.Catalog.CreateMapping(req.Context(), body.QuestionID, body.ProvisionID)
	if err != nil {
		return err
	}
	return created(w, m)
}

// DELETE /api/v1/mappings?question_id=&provision_id=
func (r *Router) handleDeleteMapping(w http.ResponseWriter, req *http.Request) error {
	qid := req.URL.Query().Get("question_id")
	pid := req.URL.Query().Get("provision_id")
	if err := middleware.ValidateID(qid); err != nil {
		return err
	}
	if err := middleware.ValidateID(pid); err != nil {
		return err
	}
	if err := r.svc.Catalog.DeleteMapping(req.Context(), qid, pid); err != nil {
		return err
	}
	return ok(w, map[string]string{"message": "mapping deleted", "question_id": qid, "provision_id": pid})
}

func (r *Router) handleMappingStats(w http.ResponseWriter, req *http.Request) error {
	st, err := r.svc.Catalog.MappingStats(req.Context())
	if err != nil {
		return err
	}
	return ok(w, st)
}

//
// ==== ORGANIZATIONS ====
//

func (r *Router) handleListOrganizations(w http.ResponseWriter, req *http.Request) error {
	page, err := middleware.ParsePage(req.URL.Query())
	if err != nil {
		return err
	}
	list, err := r.svc.Catalog.ListOrganizations(req.Context(), page)
	if err != nil {
		return err
	}
	return ok(w, list)
}

// POST /api/v1/organizations; a company key always registers its own organization id
func (r *Router) handleCreateOrganization(w http.ResponseWriter, req *http.Request) error {
	var o organizations.Organization
	if err := decode(req, &o); err != nil {
		return err
	}
	if p := principal(req); p.Role == middleware.RoleCompany {
		o.ID = p.OrganizationID
	}
	if err := middleware.ValidateOrganization(&o); err != nil {
		return err
	}
	if err := r.svc.Catalog.CreateOrganization(req.Context(), &o); err != nil {
		return err
	}
	return created(w, o)
}

func (r *Router) handleGetOrganization(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	o, err := r.svc.Catalog.GetOrganization(req.Context(), id)
	if err != nil {
		return err
	}
	return ok(w, o)
}

func (r *Router) handleUpdateOrganization(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	var patch organizations.Patch
	if err := decode(req, &patch); err != nil {
		return err
	}
	if patch.ContactEmail != nil {
		if err := middleware.ValidateEmail(*patch.ContactEmail); err != nil {
			return err
		}
	}
	if patch.Name != nil {
		name := middleware.SanitizeString(*patch.Name)
		patch.Name = &name
	}
	o, err := r.svc.Catalog.UpdateOrganization(req.Context(), id, patch)
	if err != nil {
		return err
	}
	return ok(w, o)
}

func (r *Router) handleDeleteOrganization(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	if err := r.svc.Catalog.DeleteOrganization(req.Context(), id); err != nil {
		return err
	}
	return ok(w, map[string]string{"message": "organization deleted", "id": id})
}

// GET /api/v1/organizations/search/by-name/{pattern}
func (r *Router) handleSearchByName(w http.ResponseWriter, req *http.Request) error {
	page, err := middleware.ParsePage(req.URL.Query())
	if err != nil {
		return err
	}
	pattern := middleware.SanitizeString(chi.URLParam(req, "pattern"))
	list, err := r.svc.Catalog.SearchOrganizationsByName(req.Context(), pattern, page)
	if err != nil {
		return err
	}
	return ok(w, list)
}

// GET /api/v1/organizations/search/by-employee-count/{min}/{max}
func (r *Router) handleSearchByEmployeeCount(w http.ResponseWriter, req *http.Request) error {
	page, err := middleware.ParsePage(req.URL.Query())
	if err != nil {
		return err
	}
	minCount, err := pathInt(req, "min")
	if err != nil {
		return err
	}
	maxCount, err := pathInt(req, "max")
	if err != nil {
		return err
	}
	list, err := r.svc.Catalog.SearchOrganizationsByEmployeeCount(req.Context(), minCount, maxCount, page)
	if err != nil {
		return err
	}
	return ok(w, list)
}

//
// ==== ANSWERS ====
//

// GET /api/v1/answers?organization_id=&question_id=&provision_id=&contains=&limit=&offset=
func (r *Router) handleListAnswers(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	f := answers.Filter{
		OrganizationID: q.Get("organization_id"),
		QuestionID:     q.Get("question_id"),
		ProvisionID:    q.Get("provision_id"),
		Contains:       middleware.SanitizeString(q.Get("contains")),
	}
	for _, id := range []string{f.OrganizationID, f.QuestionID, f.ProvisionID} {
		if id == "" {
			continue
		}
		if err := middleware.ValidateID(id); err != nil {
			return err
		}
	}
	return r.listAnswers(w, req, f)
}

func (r *Router) handleAnswersByOrganization(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	return r.listAnswers(w, req, answers.Filter{OrganizationID: id})
}

func (r *Router) handleAnswersByQuestion(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "questionID")
	if err != nil {
		return err
	}
	return r.listAnswers(w, req, answers.Filter{QuestionID: id})
}

func (r *Router) listAnswers(w http.ResponseWriter, req *http.Request, f answers.Filter) error {
	page, err := middleware.ParsePage(req.URL.Query())
	if err != nil {
		return err
	}
	list, err := r.svc.Catalog.ListAnswers(req.Context(), f, page)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*answers.Answer{}
	}
	return ok(w, list)
}

func (r *Router) handleGetAnswer(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "answerID")
	if err != nil {
		return err
	}
	a, err := r.svc.Catalog.GetAnswer(req.Context(), answers.AnswerID(id))
	if err != nil {
		return err
	}
	return ok(w, a)
}

func (r *Router) handleDeleteAnswer(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "answerID")
	if err != nil {
		return err
	}
	if err := r.svc.Catalog.DeleteAnswer(req.Context(), answers.AnswerID(id)); err != nil {
		return err
	}
	return ok(w, map[string]string{"message": "answer deleted", "id": id})
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return goerr.Wrap(errs.ErrInvalidInput, field+" is required")
	}
	return nil
}

package v1alpha1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	api "github.com/studyhall/solver/api/v1alpha1"
	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/handlers/validator"
	"github.com/studyhall/solver/internal/service"
	"github.com/studyhall/solver/internal/service/mappers"
	"github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

const maxAttachmentSize = 10 << 20

var sortOrders = map[string]store.SortOrder{
	"":            store.SortByCreatedDesc,
	"created_at":  store.SortByCreatedAsc,
	"-created_at": store.SortByCreatedDesc,
	"title":       store.SortByTitleAsc,
	"-title":      store.SortByTitleDesc,
	"subject":     store.SortBySubject,
	"due_date":    store.SortByDueDate,
}

var assignmentStatuses = map[string]struct{}{
	model.AssignmentStatusPending:    {},
	model.AssignmentStatusProcessing: {},
	model.AssignmentStatusCompleted:  {},
	model.AssignmentStatusFailed:     {},
}

// (GET /api/v1/assignments)
func (s *ServiceHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	filter, ok := s.listFilter(w, r)
	if !ok {
		return
	}

	assignments, total, err := s.assignmentSrv.ListAssignments(r.Context(), user, filter)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.AssignmentListToApi(assignments, total))
}

// (POST /api/v1/assignments)
func (s *ServiceHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	form := &api.AssignmentForm{}
	if err := render.Bind(r, form); err != nil {
		s.renderBadRequest(w, r, "malformed request body")
		return
	}

	v := validator.NewValidator()
	v.Register(validator.NewAssignmentValidationRules()...)
	if err := v.Struct(form); err != nil {
		s.renderBadRequest(w, r, err.Error())
		return
	}

	if _, err := s.userSrv.EnsureUser(r.Context(), user); err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	assignment, err := s.assignmentSrv.CreateAssignment(r.Context(), mappers.AssignmentFormFromApi(user, form))
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mappers.AssignmentToApi(*assignment))
}

// (GET /api/v1/assignments/{id})
func (s *ServiceHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	assignment, err := s.assignmentSrv.GetAssignment(r.Context(), id, user)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.AssignmentToApi(*assignment))
}

// (PUT /api/v1/assignments/{id})
func (s *ServiceHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	update := &api.AssignmentUpdate{}
	if err := render.Bind(r, update); err != nil {
		s.renderBadRequest(w, r, "malformed request body")
		return
	}

	v := validator.NewValidator()
	v.Register(validator.NewAssignmentValidationRules()...)
	if err := v.Struct(update); err != nil {
		s.renderBadRequest(w, r, err.Error())
		return
	}

	assignment, err := s.assignmentSrv.UpdateAssignment(r.Context(), id, user, mappers.AssignmentUpdateFromApi(update))
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.AssignmentToApi(*assignment))
}

// (DELETE /api/v1/assignments/{id})
func (s *ServiceHandler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	if err := s.assignmentSrv.DeleteAssignment(r.Context(), id, user); err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.NoContent(w, r)
}

// (POST /api/v1/assignments/{id}/solve)
func (s *ServiceHandler) SolveAssignment(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	assignment, err := s.assignmentSrv.Solve(r.Context(), id, user)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.SolveAck{ID: assignment.ID, Status: assignment.Status})
}

// (POST /api/v1/assignments/{id}/regenerate)
func (s *ServiceHandler) RegenerateSolution(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	assignment, err := s.assignmentSrv.Regenerate(r.Context(), id, user)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.SolveAck{ID: assignment.ID, Status: assignment.Status})
}

// (POST /api/v1/assignments/{id}/reset-status)
func (s *ServiceHandler) ResetAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	assignment, err := s.assignmentSrv.ResetStuck(r.Context(), id, user)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, api.SolveAck{ID: assignment.ID, Status: assignment.Status})
}

// (GET /api/v1/assignments/stats)
func (s *ServiceHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	stats, err := s.assignmentSrv.Stats(r.Context(), user)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, mappers.StatsToApi(stats))
}

// (POST /api/v1/assignments/{id}/attachments)
func (s *ServiceHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		s.renderBadRequest(w, r, "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.renderBadRequest(w, r, "missing file field")
		return
	}
	defer file.Close()

	attachment, err := s.assignmentSrv.AddAttachment(r.Context(), id, user,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.Attachment{
		Filename:    attachment.Filename,
		ContentType: attachment.ContentType,
		SizeBytes:   attachment.SizeBytes,
	})
}

func (s *ServiceHandler) listFilter(w http.ResponseWriter, r *http.Request) (*service.AssignmentFilter, bool) {
	q := r.URL.Query()

	sort, ok := sortOrders[q.Get("sort")]
	if !ok {
		s.renderBadRequest(w, r, "unknown sort order")
		return nil, false
	}

	if status := q.Get("status"); status != "" {
		if _, ok := assignmentStatuses[status]; !ok {
			s.renderBadRequest(w, r, "unknown status filter")
			return nil, false
		}
	}
	if source := q.Get("source"); source != "" &&
		source != model.AssignmentSourceClassroom && source != model.AssignmentSourceManual {
		s.renderBadRequest(w, r, "unknown source filter")
		return nil, false
	}

	filter := &service.AssignmentFilter{
		Title:   q.Get("title"),
		Subject: q.Get("subject"),
		Status:  q.Get("status"),
		Source:  q.Get("source"),
		Kind:    q.Get("kind"),
		Sort:    sort,
	}

	var err error
	if filter.Limit, err = positiveIntParam(q.Get("limit")); err != nil {
		s.renderBadRequest(w, r, "limit must be a non-negative integer")
		return nil, false
	}
	if filter.Offset, err = positiveIntParam(q.Get("offset")); err != nil {
		s.renderBadRequest(w, r, "offset must be a non-negative integer")
		return nil, false
	}

	return filter, true
}

func positiveIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0, strconv.ErrSyntax
	}
	return val, nil
}

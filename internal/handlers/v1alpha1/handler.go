// Package v1alpha1 exposes the assignment solver REST API over chi.
package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/studyhall/solver/api/v1alpha1"
	"github.com/studyhall/solver/internal/service"
	"github.com/studyhall/solver/pkg/requestid"
)

type ServiceHandler struct {
	assignmentSrv *service.AssignmentService
	solutionSrv   *service.SolutionService
	userSrv       *service.UserService
	classroomSrv  *service.ClassroomService
}

func NewServiceHandler(
	assignmentService *service.AssignmentService,
	solutionService *service.SolutionService,
	userService *service.UserService,
	classroomService *service.ClassroomService,
) *ServiceHandler {
	return &ServiceHandler{
		assignmentSrv: assignmentService,
		solutionSrv:   solutionService,
		userSrv:       userService,
		classroomSrv:  classroomService,
	}
}

func (s *ServiceHandler) Routes(router chi.Router) {
	router.Route("/api/v1/assignments", func(r chi.Router) {
		r.Get("/", s.ListAssignments)
		r.Post("/", s.CreateAssignment)
		r.Get("/stats", s.GetStats)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetAssignment)
			r.Put("/", s.UpdateAssignment)
			r.Delete("/", s.DeleteAssignment)

			r.Post("/solve", s.SolveAssignment)
			r.Post("/regenerate", s.RegenerateSolution)
			r.Post("/reset-status", s.ResetAssignmentStatus)

			r.Get("/solution", s.GetSolution)
			r.Put("/solution/rating", s.RateSolution)

			r.Post("/attachments", s.UploadAttachment)
		})
	})
	router.Post("/api/v1/classroom/import", s.ImportFromClassroom)
	router.Get("/health", s.Health)
}

func (s *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, api.Health{Status: "ok"})
}

// assignmentID parses the id route parameter; a malformed id renders 400
// and reports false.
func (s *ServiceHandler) assignmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.renderBadRequest(w, r, "invalid assignment id")
		return uuid.UUID{}, false
	}
	return id, true
}

func (s *ServiceHandler) renderBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, api.Error{Message: message, RequestID: requestid.FromRequest(r)})
}

// renderServiceError maps the service error taxonomy onto HTTP statuses.
// Unrecognized errors render an opaque 500; the detail goes to the log
// keyed by request id.
func (s *ServiceHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *service.ErrResourceNotFound
		inProgress *service.ErrSolveInProgress
		invalid    *service.ErrInvalidTransition
		notLinked  *service.ErrClassroomNotLinked
	)

	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.As(err, &inProgress), errors.As(err, &invalid):
		status = http.StatusConflict
		message = err.Error()
	case errors.As(err, &notLinked):
		status = http.StatusBadRequest
		message = err.Error()
	default:
		zap.S().Named("api").Errorw("request failed",
			"request_id", requestid.FromRequest(r), "path", r.URL.Path, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, api.Error{Message: message, RequestID: requestid.FromRequest(r)})
}

package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/studyhall/solver/api/v1alpha1"
	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/handlers/validator"
	"github.com/studyhall/solver/internal/service/mappers"
)

// (GET /api/v1/assignments/{id}/solution)
func (s *ServiceHandler) GetSolution(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	solution, err := s.solutionSrv.GetSolution(r.Context(), id, user)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	out, err := mappers.SolutionToApi(*solution)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}
	render.JSON(w, r, out)
}

// (PUT /api/v1/assignments/{id}/solution/rating)
func (s *ServiceHandler) RateSolution(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, ok := s.assignmentID(w, r)
	if !ok {
		return
	}

	form := &api.RatingForm{}
	if err := render.Bind(r, form); err != nil {
		s.renderBadRequest(w, r, "malformed request body")
		return
	}
	if err := validator.NewValidator().Struct(form); err != nil {
		s.renderBadRequest(w, r, err.Error())
		return
	}

	if err := s.solutionSrv.RateSolution(r.Context(), id, user, form.Rating); err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.NoContent(w, r)
}

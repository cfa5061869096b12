package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/studyhall/solver/api/v1alpha1"
	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/handlers/validator"
)

// (POST /api/v1/classroom/import)
func (s *ServiceHandler) ImportFromClassroom(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	form := &api.ClassroomImportForm{}
	if err := render.Bind(r, form); err != nil {
		s.renderBadRequest(w, r, "malformed request body")
		return
	}
	if err := validator.NewValidator().Struct(form); err != nil {
		s.renderBadRequest(w, r, err.Error())
		return
	}

	if _, err := s.userSrv.EnsureUser(r.Context(), user); err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	// A token passed explicitly is remembered for the next import.
	if form.Token != "" {
		if err := s.userSrv.LinkClassroomToken(r.Context(), user, form.Token); err != nil {
			s.renderServiceError(w, r, err)
			return
		}
	}

	result, err := s.classroomSrv.Import(r.Context(), user, form.CourseID, form.Token)
	if err != nil {
		s.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, api.ImportResult{Imported: result.Imported, Skipped: result.Skipped})
}

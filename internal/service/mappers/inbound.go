package mappers

import (
	"github.com/google/uuid"

	api "github.com/studyhall/solver/api/v1alpha1"
	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

func AssignmentFormFromApi(user auth.User, resource *api.AssignmentForm) model.Assignment {
	assignment := model.Assignment{
		ID:          uuid.New(),
		Username:    user.Username,
		OrgID:       user.Organization,
		Title:       resource.Title,
		Description: resource.Description,
		Subject:     resource.Subject,
		CourseName:  resource.CourseName,
		Instructor:  resource.Instructor,
		DueDate:     resource.DueDate,
		Kind:        resource.Kind,
		Source:      model.AssignmentSourceManual,
		Status:      model.AssignmentStatusPending,
	}
	if assignment.Kind == "" {
		assignment.Kind = model.AssignmentKindGeneral
	}
	return assignment
}

func AssignmentUpdateFromApi(resource *api.AssignmentUpdate) store.AssignmentUpdate {
	return store.AssignmentUpdate{
		Title:       resource.Title,
		Description: resource.Description,
		Subject:     resource.Subject,
		CourseName:  resource.CourseName,
		Instructor:  resource.Instructor,
		DueDate:     resource.DueDate,
		Kind:        resource.Kind,
	}
}

func UserFromAuth(user auth.User) model.User {
	return model.User{
		Username:    user.Username,
		OrgID:       user.Organization,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

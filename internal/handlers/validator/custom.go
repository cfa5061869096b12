package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/studyhall/solver/internal/store/model"
)

var assignmentKinds = map[string]struct{}{
	model.AssignmentKindProblemSet:     {},
	model.AssignmentKindEssay:          {},
	model.AssignmentKindLabReport:      {},
	model.AssignmentKindShortAnswer:    {},
	model.AssignmentKindMultipleChoice: {},
	model.AssignmentKindProject:        {},
	model.AssignmentKindGeneral:        {},
}

func assignmentKindValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, found := assignmentKinds[val]
	return found
}

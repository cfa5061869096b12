package mappers

import (
	api "github.com/studyhall/solver/api/v1alpha1"
	"github.com/studyhall/solver/internal/store/model"
)

func AssignmentToApi(a model.Assignment) api.Assignment {
	out := api.Assignment{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Subject:     a.Subject,
		CourseName:  a.CourseName,
		Instructor:  a.Instructor,
		DueDate:     a.DueDate,
		Kind:        a.Kind,
		Source:      a.Source,
		Status:      a.Status,
		StatusInfo:  a.StatusInfo,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	for _, att := range a.Attachments {
		out.Attachments = append(out.Attachments, api.Attachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			SizeBytes:   att.SizeBytes,
		})
	}
	return out
}

func AssignmentListToApi(assignments model.AssignmentList, total int64) api.AssignmentList {
	items := make([]api.Assignment, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, AssignmentToApi(a))
	}
	return api.AssignmentList{Items: items, Total: total}
}

func SolutionToApi(s model.Solution) (api.Solution, error) {
	out := api.Solution{
		ID:         s.ID,
		Content:    s.Content,
		Reasoning:  s.Reasoning,
		Confidence: s.Confidence,
		Model:      s.ModelID,
		Rating:     s.Rating,
		CreatedAt:  s.CreatedAt,
	}
	steps, err := s.DecodeSteps()
	if err != nil {
		return out, err
	}
	for _, step := range steps {
		out.Steps = append(out.Steps, api.SolutionStep{Text: step.Text, Detail: step.Detail})
	}
	return out, nil
}

func StatsToApi(s model.SolveStats) api.Stats {
	return api.Stats{
		Total:     s.Total,
		ByStatus:  s.ByStatus,
		BySubject: s.BySubject,
	}
}

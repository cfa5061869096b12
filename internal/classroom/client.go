// Package classroom pulls coursework from the Google Classroom API on
// behalf of a user-supplied OAuth token.
package classroom

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	classroomapi "google.golang.org/api/classroom/v1"
	"google.golang.org/api/option"
)

// Coursework is the subset of a classroom assignment the solver stores.
type Coursework struct {
	ID          string
	Title       string
	Description string
	CourseName  string
	DueDate     *time.Time
}

type Client interface {
	ListCoursework(ctx context.Context, token, courseID string) ([]Coursework, error)
}

type GoogleClient struct{}

var _ Client = (*GoogleClient)(nil)

func NewGoogleClient() *GoogleClient {
	return &GoogleClient{}
}

func (g *GoogleClient) ListCoursework(ctx context.Context, token, courseID string) ([]Coursework, error) {
	svc, err := classroomapi.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
	if err != nil {
		return nil, fmt.Errorf("failed to create classroom service: %w", err)
	}

	course, err := svc.Courses.Get(courseID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch course %s: %w", courseID, err)
	}

	var out []Coursework
	call := svc.Courses.CourseWork.List(courseID).PageSize(100)
	err = call.Pages(ctx, func(resp *classroomapi.ListCourseWorkResponse) error {
		for _, cw := range resp.CourseWork {
			out = append(out, Coursework{
				ID:          cw.Id,
				Title:       cw.Title,
				Description: cw.Description,
				CourseName:  course.Name,
				DueDate:     dueDate(cw),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list coursework for course %s: %w", courseID, err)
	}

	return out, nil
}

// dueDate folds the API's split date and time-of-day into one timestamp.
// Coursework without a due date yields nil.
func dueDate(cw *classroomapi.CourseWork) *time.Time {
	if cw.DueDate == nil {
		return nil
	}
	hour, minute := 23, 59
	if cw.DueTime != nil {
		hour, minute = int(cw.DueTime.Hours), int(cw.DueTime.Minutes)
	}
	t := time.Date(int(cw.DueDate.Year), time.Month(cw.DueDate.Month), int(cw.DueDate.Day), hour, minute, 0, 0, time.UTC)
	return &t
}

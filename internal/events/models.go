package events

// AssignmentEvent describes a lifecycle change of one assignment.
type AssignmentEvent struct {
	AssignmentID string `json:"assignment_id"`
	OrgID        string `json:"org_id"`
	Status       string `json:"status"`
	StatusInfo   string `json:"status_info,omitempty"`
	Generation   int64  `json:"generation,omitempty"`
	Trigger      string `json:"trigger,omitempty"`
}

package server

import "crewcal/internal/domain"

// Request payloads

type CreateEventRequest struct {
	Name     string `json:"name"`
	Start    string `json:"start_date"`
	End      string `json:"end_date"`
	Acting   string `json:"acting,omitempty"`
	Partners string `json:"partners,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Area        string   `json:"area" enum:"marketing,diretoria,rh,financeiro,ensino"`
	Due         string   `json:"due_date"`
	AssigneeIDs []int64  `json:"assignee_ids"`
	Tools       []string `json:"tools,omitempty"`
	Details     string   `json:"details,omitempty"`
}

type SetProgressRequest struct {
	Percent int `json:"percent" minimum:"0" maximum:"100"`
}

// CompleteTaskRequest nominates a reviewer. The reviewer's role names are
// supplied by the caller because role membership lives in the chat platform,
// not in this service.
type CompleteTaskRequest struct {
	DeliveryLink  string   `json:"delivery_link"`
	ReviewerID    int64    `json:"reviewer_id"`
	ReviewerRoles []string `json:"reviewer_roles"`
}

type ReviewTaskRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment,omitempty"`
}

// Responses

type EventSummary struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Tasks     int    `json:"tasks"`
}

type TaskResponse struct {
	Index        int      `json:"index"`
	Title        string   `json:"title"`
	Area         string   `json:"area"`
	DueDate      string   `json:"due_date"`
	Details      string   `json:"details,omitempty"`
	Tools        []string `json:"tools"`
	AssigneeIDs  []int64  `json:"assignee_ids"`
	Progress     int      `json:"progress"`
	State        string   `json:"state"`
	DeliveryLink string   `json:"delivery_link,omitempty"`
	ReviewerID   *int64   `json:"reviewer_id,omitempty"`
}

type EventResponse struct {
	Index     int            `json:"index"`
	Name      string         `json:"name"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Acting    string         `json:"acting,omitempty"`
	Partners  string         `json:"partners,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Tasks     []TaskResponse `json:"tasks"`
}

type PendingTaskResponse struct {
	EventIndex int     `json:"event_index"`
	EventName  string  `json:"event_name"`
	TaskIndex  int     `json:"task_index"`
	Title      string  `json:"title"`
	DueDate    string  `json:"due_date"`
	Progress   int     `json:"progress"`
	Assignees  []int64 `json:"assignee_ids"`
}

func toTaskResponse(index int, t domain.Task) TaskResponse {
	return TaskResponse{
		Index:        index,
		Title:        t.Title,
		Area:         string(t.Area),
		DueDate:      t.DueDate.String(),
		Details:      t.Details,
		Tools:        t.Tools,
		AssigneeIDs:  t.AssigneeIDs,
		Progress:     t.Progress,
		State:        string(t.State()),
		DeliveryLink: t.DeliveryLink,
		ReviewerID:   t.ReviewerID,
	}
}

func toEventResponse(index int, e domain.Event) EventResponse {
	tasks := make([]TaskResponse, 0, len(e.Tasks))
	for i, t := range e.Tasks {
		tasks = append(tasks, toTaskResponse(i+1, t))
	}
	return EventResponse{
		Index:     index,
		Name:      e.Name,
		StartDate: e.StartDate.String(),
		EndDate:   e.EndDate.String(),
		Acting:    e.Acting,
		Partners:  e.Partners,
		Notes:     e.Notes,
		Tasks:     tasks,
	}
}

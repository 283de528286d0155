// Package server exposes the coordination commands over HTTP. The chat
// platform (or any other front end) resolves identities and calls in with a
// bearer token carrying the user id and role names.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"crewcal/internal/domain"
	"crewcal/internal/engine"
	"crewcal/internal/engine/auth"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"event index 9 out of range"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Crewcal API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Crewcal API", "0.1.0")
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerEvents(group, cfg.Engine)
	registerTasks(group, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps the engine's error taxonomy onto HTTP statuses.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var ve domain.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": ve.Field})
	}
	var nfe engine.NotFoundError
	if errors.As(err, &nfe) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{"kind": nfe.Kind, "index": nfe.Index})
	}
	var ae auth.AuthorizationError
	if errors.As(err, &ae) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Status string `json:"status"`
		}
	}, error) {
		out := &struct {
			Body struct {
				Status string `json:"status"`
			}
		}{}
		out.Body.Status = "ok"
		return out, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []EventSummary `json:"body"`
	}, error) {
		events, err := e.ListEvents(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		summaries := make([]EventSummary, 0, len(events))
		for i, event := range events {
			summaries = append(summaries, EventSummary{
				Index:     i + 1,
				Name:      event.Name,
				StartDate: event.StartDate.String(),
				EndDate:   event.EndDate.String(),
				Tasks:     len(event.Tasks),
			})
		}
		return &struct {
			Body []EventSummary `json:"body"`
		}{Body: summaries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Add an event",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateEventRequest `json:"body"`
	}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		event, err := e.AddEvent(ctx, actor, engine.AddEventOptions{
			Name:     input.Body.Name,
			Start:    input.Body.Start,
			End:      input.Body.End,
			Acting:   input.Body.Acting,
			Partners: input.Body.Partners,
			Notes:    input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		events, err := e.ListEvents(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: toEventResponse(len(events), event)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "show-event",
		Method:      http.MethodGet,
		Path:        "/events/{index}",
		Summary:     "Show event detail",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Index int `path:"index" minimum:"1"`
	}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		event, err := e.EventDetail(ctx, input.Index)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: toEventResponse(input.Index, event)}, nil
	})
}

func registerTasks(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-pending-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/pending",
		Summary:     "List pending tasks by area",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Area string `query:"area" enum:"marketing,diretoria,rh,financeiro,ensino"`
	}) (*struct {
		Body []PendingTaskResponse `json:"body"`
	}, error) {
		pending, err := e.PendingByArea(ctx, input.Area)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]PendingTaskResponse, 0, len(pending))
		for _, p := range pending {
			out = append(out, PendingTaskResponse{
				EventIndex: p.EventIndex,
				EventName:  p.EventName,
				TaskIndex:  p.TaskIndex,
				Title:      p.Task.Title,
				DueDate:    p.Task.DueDate.String(),
				Progress:   p.Task.Progress,
				Assignees:  p.Task.AssigneeIDs,
			})
		}
		return &struct {
			Body []PendingTaskResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/events/{index}/tasks",
		Summary:       "Add a task to an event",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Index int               `path:"index" minimum:"1"`
		Body  CreateTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		task, err := e.AddTask(ctx, actor, engine.AddTaskOptions{
			EventIndex:  input.Index,
			Title:       input.Body.Title,
			Area:        input.Body.Area,
			Due:         input.Body.Due,
			AssigneeIDs: input.Body.AssigneeIDs,
			Tools:       input.Body.Tools,
			Details:     input.Body.Details,
		})
		if err != nil {
			return nil, handleError(err)
		}
		event, err := e.EventDetail(ctx, input.Index)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: toTaskResponse(len(event.Tasks), task)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-progress",
		Method:      http.MethodPatch,
		Path:        "/events/{index}/tasks/{task_index}/progress",
		Summary:     "Update task progress",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Index     int                `path:"index" minimum:"1"`
		TaskIndex int                `path:"task_index" minimum:"1"`
		Body      SetProgressRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		task, err := e.SetProgress(ctx, actor, input.Index, input.TaskIndex, input.Body.Percent)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: toTaskResponse(input.TaskIndex, task)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/events/{index}/tasks/{task_index}/complete",
		Summary:     "Submit a task for review",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Index     int                 `path:"index" minimum:"1"`
		TaskIndex int                 `path:"task_index" minimum:"1"`
		Body      CompleteTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		reviewer := auth.Actor{ID: input.Body.ReviewerID, Roles: input.Body.ReviewerRoles}
		task, err := e.Complete(ctx, actor, input.Index, input.TaskIndex, input.Body.DeliveryLink, reviewer)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: toTaskResponse(input.TaskIndex, task)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review-task",
		Method:      http.MethodPost,
		Path:        "/events/{index}/tasks/{task_index}/review",
		Summary:     "Approve or reject a submitted task",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Index     int               `path:"index" minimum:"1"`
		TaskIndex int               `path:"task_index" minimum:"1"`
		Body      ReviewTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		task, err := e.Review(ctx, actor, input.Index, input.TaskIndex, input.Body.Approve, input.Body.Comment)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: toTaskResponse(input.TaskIndex, task)}, nil
	})
}

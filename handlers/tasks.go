package handlers

import (
	"net/http"

	"crm_dashboard_go/middleware"
	"crm_dashboard_go/services"

	"github.com/labstack/echo/v4"
)

// ListTasks returns the acting user's reminders split into pending and completed
func (h *Handler) ListTasks(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	view := services.NewRemindersView(user.ID, services.NewTaskService(h.DB), h.clientService())
	defer view.Dispose()

	if !view.Load(c.Request().Context()) {
		return respondFail(c, http.StatusInternalServerError, view.LastError())
	}

	pending, completed := view.Split()
	return respond(c, http.StatusOK, map[string]interface{}{
		"pending":   pending,
		"completed": completed,
	})
}

func (h *Handler) CreateTask(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var in services.TaskInput
	if err := c.Bind(&in); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	task, err := services.NewTaskService(h.DB).Create(c.Request().Context(), in, user.ID)
	if err != nil {
		return respondError(c, err, "Failed to create reminder")
	}
	return respond(c, http.StatusCreated, task)
}

func (h *Handler) MarkTaskDone(c echo.Context) error {
	task, err := services.NewTaskService(h.DB).MarkDone(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "Failed to update reminder")
	}
	return respond(c, http.StatusOK, task)
}

func (h *Handler) DeleteTask(c echo.Context) error {
	if err := services.NewTaskService(h.DB).Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err, "Failed to delete reminder")
	}
	return respond(c, http.StatusOK, nil)
}

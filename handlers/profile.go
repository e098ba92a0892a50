package handlers

import (
	"net/http"
	"strconv"

	"crm_dashboard_go/middleware"
	"crm_dashboard_go/services"

	"github.com/labstack/echo/v4"
)

func (h *Handler) activityView(c echo.Context) *services.ActivityView {
	user := middleware.GetCurrentUser(c)
	return services.NewActivityView(user.ID, h.Profiles, services.NewActivityLogService(h.DB, h.Profiles))
}

func (h *Handler) GetProfile(c echo.Context) error {
	view := h.activityView(c)
	defer view.Dispose()

	if !view.Load(c.Request().Context()) {
		return respondFail(c, http.StatusInternalServerError, view.LastError())
	}
	return respond(c, http.StatusOK, view.Profile().Data)
}

// UpdateProfile changes the acting user's name and phone
func (h *Handler) UpdateProfile(c echo.Context) error {
	var upd services.ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := upd.Validate(); err != nil {
		return respondFail(c, http.StatusBadRequest, err.Error())
	}

	view := h.activityView(c)
	defer view.Dispose()

	if !view.UpdateProfile(c.Request().Context(), upd) {
		return respondFail(c, http.StatusInternalServerError, view.LastError())
	}
	return respond(c, http.StatusOK, view.Profile().Data)
}

// MyActivity returns the acting user's recent activity
func (h *Handler) MyActivity(c echo.Context) error {
	view := h.activityView(c)
	defer view.Dispose()

	if !view.Load(c.Request().Context()) {
		return respondFail(c, http.StatusInternalServerError, view.LastError())
	}
	return respond(c, http.StatusOK, view.OwnActivity())
}

// RecentActivity returns the latest activity of every user
func (h *Handler) RecentActivity(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > services.RecentActivityLimit {
		limit = services.RecentActivityLimit
	}

	logs, err := services.NewActivityLogService(h.DB, h.Profiles).ListRecent(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err, "Failed to fetch activity")
	}
	return respond(c, http.StatusOK, logs)
}

func (h *Handler) ListUsers(c echo.Context) error {
	view := h.activityView(c)
	defer view.Dispose()

	if !view.LoadAdmin(c.Request().Context()) {
		return respondFail(c, http.StatusInternalServerError, view.LastError())
	}
	return respond(c, http.StatusOK, view.Users())
}

package handlers

import (
	"net/http"

	"crm_dashboard_go/middleware"
	"crm_dashboard_go/services"

	"github.com/labstack/echo/v4"
)

// ListInteractions returns a client's interactions, optionally narrowed by
// type and date range
func (h *Handler) ListInteractions(c echo.Context) error {
	filter, err := services.ParseInteractionFilter(c.QueryParam("type"), c.QueryParam("date_from"), c.QueryParam("date_to"))
	if err != nil {
		return respondFail(c, http.StatusBadRequest, err.Error())
	}

	interactions, err := h.interactionService().ListByClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch interactions")
	}
	return respond(c, http.StatusOK, services.FilterInteractions(interactions, filter))
}

func (h *Handler) CreateInteraction(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var in services.InteractionInput
	if err := c.Bind(&in); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}
	in.ClientID = c.Param("id")
	in.UserID = user.ID

	interaction, err := h.interactionService().Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err, "Failed to add interaction")
	}
	return respond(c, http.StatusCreated, interaction)
}

func (h *Handler) UpdateInteraction(c echo.Context) error {
	var upd services.InteractionUpdate
	if err := c.Bind(&upd); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	interaction, err := h.interactionService().Update(c.Request().Context(), c.Param("id"), upd)
	if err != nil {
		return respondError(c, err, "Failed to update interaction")
	}
	return respond(c, http.StatusOK, interaction)
}

func (h *Handler) DeleteInteraction(c echo.Context) error {
	if err := h.interactionService().Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err, "Failed to delete interaction")
	}
	return respond(c, http.StatusOK, nil)
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"crm_dashboard_go/middleware"
	"crm_dashboard_go/models"
	"crm_dashboard_go/services"

	"github.com/labstack/echo/v4"
)

// clientQuery reads the search term and filter from the query string
func clientQuery(c echo.Context) (string, services.ClientFilter, error) {
	filter := services.DefaultClientFilter()
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return "", filter, err
	}
	if err := filter.Validate(); err != nil {
		return "", filter, err
	}
	return c.QueryParam("q"), filter, nil
}

// ListClients returns one page of clients matching the search and filters
func (h *Handler) ListClients(c echo.Context) error {
	search, filter, err := clientQuery(c)
	if err != nil {
		return respondFail(c, http.StatusBadRequest, err.Error())
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))

	view := services.NewClientsView(h.clientService(), h.Profiles, h.pageSize(c))
	defer view.Dispose()

	if !view.Load(c.Request().Context()) {
		return respondFail(c, http.StatusInternalServerError, view.LastError())
	}
	view.SetSearch(search)
	view.SetFilter(filter)
	view.SetPage(page)

	return respond(c, http.StatusOK, view.Visible())
}

// ClientOptions returns the countries, industries, statuses and revenue
// ranges offered by the clients filter, plus the assignable users
func (h *Handler) ClientOptions(c echo.Context) error {
	ctx := c.Request().Context()

	countries, industries, err := h.clientService().Options(ctx)
	if err != nil {
		return respondError(c, err, "Failed to fetch filter options")
	}
	users, err := h.Profiles.List(ctx)
	if err != nil {
		return respondError(c, err, "Failed to fetch users")
	}

	return respond(c, http.StatusOK, map[string]interface{}{
		"countries":      countries,
		"industries":     industries,
		"statuses":       models.ClientStatuses(),
		"revenue_ranges": services.DefaultRevenueBuckets,
		"users":          users,
	})
}

func (h *Handler) GetClient(c echo.Context) error {
	ctx := c.Request().Context()
	view := services.NewClientDetailView(c.Param("id"), h.clientService(), h.interactionService(), h.attachmentService())
	defer view.Dispose()

	if !view.Load(ctx) {
		if client := view.Client(); client.Err != nil {
			return respondError(c, client.Err, view.LastError())
		}
		return respondFail(c, http.StatusInternalServerError, view.LastError())
	}

	return respond(c, http.StatusOK, map[string]interface{}{
		"client":       view.Client().Data,
		"interactions": view.Interactions(),
		"attachments":  view.Attachments(),
	})
}

func (h *Handler) CreateClient(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var in services.ClientInput
	if err := c.Bind(&in); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	client, err := h.clientService().Create(c.Request().Context(), in, user.ID)
	if err != nil {
		return respondError(c, err, "Failed to add client")
	}
	return respond(c, http.StatusCreated, client)
}

func (h *Handler) UpdateClient(c echo.Context) error {
	var upd services.ClientUpdate
	if err := c.Bind(&upd); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	client, err := h.clientService().Update(c.Request().Context(), c.Param("id"), upd)
	if err != nil {
		return respondError(c, err, "Failed to update client")
	}
	return respond(c, http.StatusOK, client)
}

func (h *Handler) UpdateClientStatus(c echo.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	client, err := h.clientService().UpdateStatus(c.Request().Context(), c.Param("id"), body.Status)
	if err != nil {
		return respondError(c, err, "Failed to update status")
	}
	return respond(c, http.StatusOK, client)
}

func (h *Handler) DeleteClient(c echo.Context) error {
	if err := h.clientService().Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err, "Failed to delete client")
	}
	return respond(c, http.StatusOK, nil)
}

// ExportClients downloads every client matching the search and filters as a spreadsheet
func (h *Handler) ExportClients(c echo.Context) error {
	search, filter, err := clientQuery(c)
	if err != nil {
		return respondFail(c, http.StatusBadRequest, err.Error())
	}

	view := services.NewClientsView(h.clientService(), h.Profiles, h.pageSize(c))
	defer view.Dispose()

	if !view.Load(c.Request().Context()) {
		return respondFail(c, http.StatusInternalServerError, view.LastError())
	}
	view.SetSearch(search)
	view.SetFilter(filter)

	buf, err := services.ExportClients(view.Matching())
	if err != nil {
		return respondError(c, err, "Failed to export clients")
	}

	filename := fmt.Sprintf("clients_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Stream(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf)
}

// ImportClients creates clients from an uploaded spreadsheet
func (h *Handler) ImportClients(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "No file uploaded")
	}
	if fileHeader.Size > h.Config.MaxUploadBytes() {
		return respondFail(c, http.StatusBadRequest, "File size exceeds maximum allowed size")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "Failed to read file")
	}
	defer file.Close()

	result, err := services.ImportClients(c.Request().Context(), h.clientService(), user.ID, file)
	if err != nil {
		return respondError(c, err, "Failed to import clients")
	}
	return respond(c, http.StatusOK, result)
}

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"crm_dashboard_go/config"
	"crm_dashboard_go/middleware"
	"crm_dashboard_go/services"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Handler serves the JSON API. Services are built per request from the
// shared dependencies; the profile service is shared so its cache is too.
type Handler struct {
	DB         *gorm.DB
	Config     *config.Config
	Storage    services.StorageProvider
	Dispatcher *services.Dispatcher
	Changes    services.ChangeFeed
	Profiles   *services.ProfileService

	apiLimiter    *middleware.RateLimiter
	uploadLimiter *middleware.RateLimiter
}

func New(cfg *config.Config, database *gorm.DB, storage services.StorageProvider, dispatcher *services.Dispatcher, changes services.ChangeFeed) *Handler {
	return &Handler{
		DB:            database,
		Config:        cfg,
		Storage:       storage,
		Dispatcher:    dispatcher,
		Changes:       changes,
		Profiles:      services.NewProfileService(database),
		apiLimiter:    middleware.NewRateLimiter(middleware.APIRateLimitConfig),
		uploadLimiter: middleware.NewRateLimiter(middleware.UploadRateLimitConfig),
	}
}

// CleanupLimiters drops expired rate limit windows
func (h *Handler) CleanupLimiters() {
	h.apiLimiter.Cleanup()
	h.uploadLimiter.Cleanup()
}

// Register mounts every route on e
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api", middleware.RequireUser(h.Profiles), h.apiLimiter.Middleware())

	// Clients
	api.GET("/clients", h.ListClients)
	api.POST("/clients", h.CreateClient)
	api.GET("/clients/options", h.ClientOptions)
	api.GET("/clients/export", h.ExportClients)
	api.POST("/clients/import", h.ImportClients, h.uploadLimiter.Middleware())
	api.GET("/clients/:id", h.GetClient)
	api.PUT("/clients/:id", h.UpdateClient)
	api.DELETE("/clients/:id", h.DeleteClient)
	api.PUT("/clients/:id/status", h.UpdateClientStatus)

	// Interactions
	api.GET("/clients/:id/interactions", h.ListInteractions)
	api.POST("/clients/:id/interactions", h.CreateInteraction)
	api.PUT("/interactions/:id", h.UpdateInteraction)
	api.DELETE("/interactions/:id", h.DeleteInteraction)

	// Attachments
	api.GET("/clients/:id/attachments", h.ListAttachments)
	api.POST("/clients/:id/attachments", h.UploadAttachment, h.uploadLimiter.Middleware())
	api.GET("/attachments/:id/download", h.DownloadAttachment)
	api.DELETE("/attachments/:id", h.DeleteAttachment)

	// Reminders
	api.GET("/tasks", h.ListTasks)
	api.POST("/tasks", h.CreateTask)
	api.PUT("/tasks/:id/done", h.MarkTaskDone)
	api.DELETE("/tasks/:id", h.DeleteTask)

	// Profile and activity
	api.GET("/me", h.GetProfile)
	api.PUT("/me", h.UpdateProfile)
	api.GET("/me/activity", h.MyActivity)
	api.GET("/activity", h.RecentActivity)
	api.GET("/users", h.ListUsers)

	// Dashboard
	api.GET("/dashboard", h.Dashboard)
	api.GET("/dashboard/stream", h.DashboardStream)
}

func (h *Handler) clientService() *services.ClientService {
	var publisher services.ChangePublisher
	if h.Changes != nil {
		publisher = h.Changes
	}
	return services.NewClientService(h.DB, h.Profiles, publisher)
}

func (h *Handler) interactionService() *services.InteractionService {
	return services.NewInteractionService(h.DB, h.Profiles, h.Dispatcher)
}

func (h *Handler) attachmentService() *services.AttachmentService {
	return services.NewAttachmentService(h.DB, h.Storage, h.Config.MaxUploadBytes())
}

func (h *Handler) pageSize(c echo.Context) int {
	if size, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && size > 0 {
		return size
	}
	return h.Config.PageSize
}

// Response is the envelope of every API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func respondFail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Error: message})
}

// respondError maps a service error onto a status code and message
func respondError(c echo.Context, err error, fallback string) error {
	switch {
	case services.IsValidationError(err):
		return respondFail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return respondFail(c, http.StatusNotFound, "Not found")
	}
	log.Printf("[WARNING] %s: %v", fallback, err)
	return respondFail(c, http.StatusInternalServerError, fallback)
}

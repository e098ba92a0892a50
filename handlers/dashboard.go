package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crm_dashboard_go/services"

	"github.com/labstack/echo/v4"
)

const streamKeepAlive = 30 * time.Second

// Dashboard returns the current dashboard aggregates
func (h *Handler) Dashboard(c echo.Context) error {
	stats, err := services.LoadDashboard(c.Request().Context(), h.clientService())
	if err != nil {
		return respondError(c, err, "Failed to fetch dashboard data")
	}
	return respond(c, http.StatusOK, stats)
}

// DashboardStream pushes dashboard aggregates as Server-Sent Events. A
// "stats" event follows every recompute and a "change" event carries the
// summary of each client change. The bridge lives as long as the request.
func (h *Handler) DashboardStream(c echo.Context) error {
	if h.Changes == nil {
		return respondFail(c, http.StatusServiceUnavailable, "Realtime updates are not available")
	}

	ctx := c.Request().Context()
	bridge := services.NewBridge(h.Changes, h.clientService())

	updates := make(chan services.DashboardStats, 1)
	bridge.OnChange(func(stats services.DashboardStats) {
		// Keep only the latest aggregates for a slow reader
		for {
			select {
			case updates <- stats:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})

	if err := bridge.Start(ctx); err != nil {
		return respondError(c, err, "Failed to subscribe to changes")
	}
	defer bridge.Stop()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	summaries := bridge.Summaries()
	for {
		select {
		case <-ctx.Done():
			return nil
		case stats := <-updates:
			if err := writeEvent(w, "stats", stats); err != nil {
				return nil
			}
		case msg, ok := <-summaries:
			if !ok {
				return nil
			}
			if err := writeEvent(w, "change", map[string]string{"message": msg}); err != nil {
				return nil
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeEvent(w *echo.Response, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}

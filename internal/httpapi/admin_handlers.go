package httpapi

import (
	"net/http"
	"time"

	"dokuai.org/internal/auth"
)

const (
	// Window for the "currently active" user list and counter.
	activityWindow = 10 * time.Minute
	// Conversion log page size; the endpoint is a fixed recent slice.
	logLimit = 100
	// Monthly visit histogram depth, current month inclusive.
	monthsWindow = 12
)

// requireAdmin repeats the role gate inside the handler so the message is
// specific even if the route-level middleware is ever rearranged.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return auth.Identity{}, false
	}
	if id.Role != auth.RoleAdmin {
		writeMessage(w, http.StatusForbidden, false, "Unauthorized: Admin access required")
		return auth.Identity{}, false
	}
	return id, true
}

func (a *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	stats, err := a.reports.Stats(r.Context(), activityWindow)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, "Failed to fetch statistics", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"data":    stats,
	})
}

func (a *API) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	logs, err := a.reports.RecentConversions(r.Context(), logLimit)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, "Failed to fetch conversion logs", err)
		return
	}
	if logs == nil {
		logs = []auth.ConversionLog{}
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"logs":    logs,
		"count":   len(logs),
	})
}

func (a *API) handleAdminActiveUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	users, err := a.reports.ActiveUsers(r.Context(), activityWindow)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, "Failed to fetch active users", err)
		return
	}
	if users == nil {
		users = []auth.ActiveUser{}
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"users":   users,
	})
}

func (a *API) handleAdminMonthlyViews(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	views, err := a.reports.MonthlySiteViews(r.Context(), monthsWindow)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, "Failed to fetch monthly site views", err)
		return
	}
	if views == nil {
		views = []auth.MonthlyViews{}
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"views":   views,
	})
}

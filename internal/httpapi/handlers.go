package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/report"
	"hisabkitab/backend/internal/service"
	"hisabkitab/backend/internal/store"
)

func (a *API) resourceFor(w http.ResponseWriter, r *http.Request) (service.Resource, bool) {
	name := r.PathValue("collection")
	res, ok := a.service.Resource(name)
	if !ok {
		a.writeError(w, http.StatusNotFound, fmt.Errorf("unknown collection %q", name))
		return nil, false
	}
	return res, true
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", store.ErrInvalidInput)
	}
	return id, nil
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resourceFor(w, r)
	if !ok {
		return
	}
	items, err := res.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resourceFor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	item, err := res.Get(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": item})
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resourceFor(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.fail(w, err)
		return
	}
	created, err := res.Create(r.Context(), body, a.validateStruct)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": created})
}

func (a *API) handleUpdate(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resourceFor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}

	patch := map[string]any{}
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&patch); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := res.Update(r.Context(), id, patch, a.validateStruct)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": updated})
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resourceFor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := res.Delete(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rawFrom := strings.TrimSpace(r.URL.Query().Get("from"))
	rawTo := strings.TrimSpace(r.URL.Query().Get("to"))

	var rng report.Range
	if rawFrom != "" || rawTo != "" {
		from, err := domain.ParseDate(rawFrom)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, errors.New("from must be YYYY-MM-DD"))
			return
		}
		to, err := domain.ParseDate(rawTo)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, errors.New("to must be YYYY-MM-DD"))
			return
		}
		if to.Before(from.Time) {
			a.writeError(w, http.StatusBadRequest, errors.New("to must not be before from"))
			return
		}
		rng = report.Range{From: from, To: to}
	}

	dashboard, err := a.service.Dashboard(r.Context(), rng)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (a *API) handleSubscriptionQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := a.service.QuoteSubscription(r.URL.Query().Get("plan"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *API) handleSubscriptionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.SubscriptionStats(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req service.RecordPaymentRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	payment, err := a.service.RecordSubscriptionPayment(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": payment})
}

func (a *API) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req service.ConfirmPaymentRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	payment, err := a.service.ConfirmSubscriptionPayment(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": payment})
}

func (a *API) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	notification, err := a.service.MarkNotificationRead(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": notification})
}

func (a *API) handleNotificationsReadAll(w http.ResponseWriter, r *http.Request) {
	updated, err := a.service.MarkAllNotificationsRead(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (a *API) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := a.service.UnreadCount(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.GetSettings(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": settings})
}

func (a *API) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.BusinessSettings
	if err := a.decodeValid(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	saved, err := a.service.SaveSettings(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": saved})
}

func (a *API) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.SyncStatus())
}

func (a *API) handleSyncPending(w http.ResponseWriter, r *http.Request) {
	pending, err := a.service.Pending(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": pending, "count": len(pending)})
}

func (a *API) handleReconcile(w http.ResponseWriter, r *http.Request) {
	results, err := a.service.Reconcile(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": results})
}

type onlineRequest struct {
	Online *bool `json:"online" validate:"required"`
}

func (a *API) handleSetOnline(w http.ResponseWriter, r *http.Request) {
	var req onlineRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if err := a.service.SetOnline(r.Context(), *req.Online); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.service.SyncStatus())
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"data": a.auth.ListUsers(r.Context(), actor.CompanyID)})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserCreateRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	actor, _ := service.ActorFromContext(r.Context())
	user, err := a.auth.CreateUser(r.Context(), actor, req)
	if err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": user})
}

// handleScheduledExports is called by an external scheduler. It carries no
// user token; the shared cron secret stands in for it.
func (a *API) handleScheduledExports(w http.ResponseWriter, r *http.Request) {
	if a.cronSecret == "" {
		a.writeError(w, http.StatusServiceUnavailable, errors.New("scheduled exports are disabled"))
		return
	}
	provided := r.Header.Get("x-cron-secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(a.cronSecret)) != 1 {
		a.writeError(w, http.StatusUnauthorized, errors.New("invalid cron secret"))
		return
	}

	summary := a.service.RunScheduledExports(r.Context(), time.Now())
	writeJSON(w, http.StatusOK, summary)
}

// decodeValid decodes a JSON body and runs the struct's validate tags.
func (a *API) decodeValid(r *http.Request, dest any) error {
	if err := decodeJSON(r, dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return a.validateStruct(dest)
}

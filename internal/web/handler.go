package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/orderflow-console/internal/console"
	"github.com/joao-fontenele/orderflow-console/internal/domain"
)

const SessionCookie = "orderflow_console_session"

//go:embed templates/console.html
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/console.html"))

type Handler struct {
	store      *console.Store
	baseURL    string
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewHandler(store *console.Store, baseURL string, sessionTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		baseURL:    baseURL,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

type pageData struct {
	BaseURL       string
	User          domain.UserDraft
	Order         domain.OrderDraft
	CreatedUserID string
	Pending       bool
	OK            bool
	Err           bool
	Payload       string
}

func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(r)

	data := pageData{
		BaseURL:       h.baseURL,
		User:          snap.User,
		Order:         snap.Order,
		CreatedUserID: snap.CreatedUserID,
		Pending:       snap.Result.Kind == domain.ResultInFlight,
		OK:            snap.Result.Kind == domain.ResultOK,
		Err:           snap.Result.Kind == domain.ResultErr,
		Payload:       snap.Result.Payload,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := page.Execute(w, data); err != nil {
		h.logger.Error("failed to render console page", "error", err)
	}
}

type stateResponse struct {
	User          domain.UserDraft `json:"user"`
	Order         orderDraftJSON   `json:"order"`
	CreatedUserID string           `json:"created_user_id"`
	Result        resultJSON       `json:"result"`
}

type orderDraftJSON struct {
	UserID   string `json:"user_id"`
	SKU      string `json:"sku"`
	Quantity string `json:"quantity"`
	Total    string `json:"total"`
}

type resultJSON struct {
	State   string `json:"state"`
	Payload string `json:"payload,omitempty"`
}

// HandleState returns the session's console state as JSON.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(r)

	h.writeJSON(w, http.StatusOK, stateResponse{
		User: snap.User,
		Order: orderDraftJSON{
			UserID:   snap.Order.UserID,
			SKU:      snap.Order.SKU,
			Quantity: snap.Order.Quantity,
			Total:    snap.Order.Total,
		},
		CreatedUserID: snap.CreatedUserID,
		Result: resultJSON{
			State:   snap.Result.Kind.String(),
			Payload: snap.Result.Payload,
		},
	})
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	c := h.session(w, r)
	c.CreateUser(detach(r), domain.UserDraft{
		Name:  r.PostFormValue("name"),
		Email: r.PostFormValue("email"),
	})

	h.redirectHome(w, r)
}

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	c := h.session(w, r)
	c.CreateOrder(detach(r), domain.OrderDraft{
		UserID:   r.PostFormValue("user_id"),
		SKU:      r.PostFormValue("sku"),
		Quantity: r.PostFormValue("quantity"),
		Total:    r.PostFormValue("total"),
	})

	h.redirectHome(w, r)
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)
	c.ListOrders(detach(r))

	h.redirectHome(w, r)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// detach keeps request values such as the trace span but outlives the
// request, since operations settle after the redirect has been sent.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// snapshot reads the caller's console state. Reads never create a session;
// only form submissions do.
func (h *Handler) snapshot(r *http.Request) console.Snapshot {
	if c, ok := h.store.Lookup(sessionID(r)); ok {
		return c.Snapshot()
	}
	return console.EmptySnapshot()
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) *console.Console {
	requested := sessionID(r)

	id, c := h.store.Acquire(requested)
	if id != requested {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int(h.sessionTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c
}

func (h *Handler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Routes registers the console endpoints on mux. wrap is applied to every
// handler, typically to tag the tracing span with the matched route.
func (h *Handler) Routes(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /{$}", wrap(h.HandlePage))
	mux.HandleFunc("GET /console/state", wrap(h.HandleState))
	mux.HandleFunc("POST /console/users", wrap(h.HandleCreateUser))
	mux.HandleFunc("POST /console/orders", wrap(h.HandleCreateOrder))
	mux.HandleFunc("POST /console/orders/list", wrap(h.HandleListOrders))
	mux.HandleFunc("GET /healthz", wrap(HandleHealth))
}

// Package httpapi exposes the REST surface and binds the access gate to each
// route.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	app "github.com/emphub/workforce/internal/app"
	"github.com/emphub/workforce/internal/app/domain/payment"
	"github.com/emphub/workforce/internal/app/domain/user"
	"github.com/emphub/workforce/internal/app/metrics"
	"github.com/emphub/workforce/internal/app/services/payroll"
	"github.com/emphub/workforce/internal/auth"
	apperrors "github.com/emphub/workforce/internal/errors"
	"github.com/emphub/workforce/internal/httputil"
	"github.com/emphub/workforce/internal/middleware"
	"github.com/emphub/workforce/pkg/logger"
)

const dateLayout = "2006-01-02"

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	tokens *auth.TokenService
	log    *logger.Logger
}

// New returns a router exposing the core REST API. Every protected route
// passes token verification first; role and self checks are layered on top
// in strict order.
func New(application *app.Application, tokens *auth.TokenService, log *logger.Logger) *mux.Router {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, tokens: tokens, log: log}

	authn := middleware.NewAuthenticator(tokens, log)
	admin := middleware.RequireRole(application.Directory, user.RoleAdmin, log)
	hr := middleware.RequireRole(application.Directory, user.RoleHR, log)
	selfEmail := middleware.RequireSelf("email")
	selfOrHR := middleware.RequireSelfOrRole(application.Directory, user.RoleHR, "email", log)

	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/token", h.issueToken).Methods(http.MethodPost)
	r.HandleFunc("/users", h.createUser).Methods(http.MethodPost)

	// Specific /users routes are registered before the {id} catch-all.
	r.Handle("/users/admin/{email}", gate(authn, http.HandlerFunc(h.isAdmin), selfEmail)).Methods(http.MethodGet)
	r.Handle("/users/hr/{email}", gate(authn, http.HandlerFunc(h.isHR), selfEmail)).Methods(http.MethodGet)
	r.Handle("/users", gate(authn, http.HandlerFunc(h.listUsers), admin)).Methods(http.MethodGet)
	r.Handle("/users/{id}/verify", gate(authn, http.HandlerFunc(h.verifyUser), hr)).Methods(http.MethodPatch)
	r.Handle("/users/{id}", gate(authn, http.HandlerFunc(h.getUser), hr)).Methods(http.MethodGet)
	r.Handle("/employees", gate(authn, http.HandlerFunc(h.listEmployees), hr)).Methods(http.MethodGet)

	// The submission email lives in the body, so the self check happens in
	// the handler rather than in a path-based middleware.
	r.Handle("/work-entries", gate(authn, http.HandlerFunc(h.submitEntry))).Methods(http.MethodPost)
	r.Handle("/work-entries", gate(authn, http.HandlerFunc(h.listEntries), selfOrHR)).Methods(http.MethodGet)

	r.Handle("/payment-intents", gate(authn, http.HandlerFunc(h.createIntent), hr)).Methods(http.MethodPost)
	r.Handle("/payments", gate(authn, http.HandlerFunc(h.recordPayment), hr)).Methods(http.MethodPost)
	r.Handle("/payments/{email}", gate(authn, http.HandlerFunc(h.paymentsSelf), selfEmail)).Methods(http.MethodGet)
	r.Handle("/payments", gate(authn, http.HandlerFunc(h.listPayments), hr)).Methods(http.MethodGet)

	return r
}

// gate applies token verification, then the additional checks in order.
func gate(authn *middleware.Authenticator, inner http.Handler, checks ...mux.MiddlewareFunc) http.Handler {
	wrapped := inner
	for i := len(checks) - 1; i >= 0; i-- {
		wrapped = checks[i](wrapped)
	}
	return authn.Handler(wrapped)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "workforce",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// --- auth --------------------------------------------------------------------

func (h *handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, apperrors.Validation("invalid request body"))
		return
	}
	if payload.Role != "" {
		if _, err := user.ParseRole(payload.Role); err != nil {
			httputil.WriteError(w, apperrors.Validation(err.Error()))
			return
		}
	}

	token, err := h.tokens.Issue(payload.Email, payload.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// --- users -------------------------------------------------------------------

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, apperrors.Validation("invalid request body"))
		return
	}

	created, err := h.app.Directory.Register(r.Context(), payload.Name, payload.Email, payload.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.Directory.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Directory.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.app.Directory.ListEmployees(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, employees)
}

func (h *handler) isAdmin(w http.ResponseWriter, r *http.Request) {
	ok, err := h.app.Directory.HasRole(r.Context(), mux.Vars(r)["email"], user.RoleAdmin)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"admin": ok})
}

func (h *handler) isHR(w http.ResponseWriter, r *http.Request) {
	ok, err := h.app.Directory.HasRole(r.Context(), mux.Vars(r)["email"], user.RoleHR)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"hr": ok})
}

func (h *handler) verifyUser(w http.ResponseWriter, r *http.Request) {
	payload := struct {
		Verified *bool `json:"verified"`
	}{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r.Body, &payload); err != nil {
			httputil.WriteError(w, apperrors.Validation("invalid request body"))
			return
		}
	}
	verified := true
	if payload.Verified != nil {
		verified = *payload.Verified
	}

	updated, err := h.app.Directory.SetVerified(r.Context(), mux.Vars(r)["id"], verified)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// --- work entries ------------------------------------------------------------

func (h *handler) submitEntry(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Task        string  `json:"task"`
		HoursWorked float64 `json:"hoursWorked"`
		Date        string  `json:"date"`
		Email       string  `json:"email"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, apperrors.Validation("invalid request body"))
		return
	}

	caller := middleware.CallerEmail(r.Context())
	if payload.Email == "" {
		payload.Email = caller
	} else if !strings.EqualFold(payload.Email, caller) {
		h.log.WithFields(map[string]interface{}{
			"trace_id": middleware.TraceIDFrom(r.Context()),
			"caller":   caller,
		}).Warn("work entry submission rejected for another employee")
		httputil.Forbidden(w, "")
		return
	}

	date, err := time.Parse(dateLayout, payload.Date)
	if err != nil {
		httputil.WriteError(w, apperrors.Validation("date must be formatted YYYY-MM-DD"))
		return
	}

	entry, agg, err := h.app.Payroll.Submit(r.Context(), payroll.Submission{
		Email:       payload.Email,
		Task:        payload.Task,
		HoursWorked: payload.HoursWorked,
		Date:        date,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"entry":       entry,
		"periodTotal": agg.TotalAmount,
	})
}

func (h *handler) listEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.Payroll.ListEntries(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// --- payments ----------------------------------------------------------------

func (h *handler) createIntent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Salary     float64 `json:"salary"`
		EmployeeID string  `json:"employeeId"`
		Email      string  `json:"email"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, apperrors.Validation("invalid request body"))
		return
	}

	intent, err := h.app.Payments.CreateIntent(r.Context(), payload.Salary, payload.EmployeeID, payload.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"clientSecret": intent.ClientSecret})
}

func (h *handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EmployeeID    string  `json:"employeeId"`
		Email         string  `json:"email"`
		Date          string  `json:"date"`
		Amount        float64 `json:"amount"`
		TransactionID string  `json:"transactionId"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, apperrors.Validation("invalid request body"))
		return
	}

	rec := payment.Record{
		EmployeeID:    payload.EmployeeID,
		Email:         payload.Email,
		Amount:        payload.Amount,
		TransactionID: payload.TransactionID,
	}
	if payload.Date != "" {
		date, err := time.Parse(dateLayout, payload.Date)
		if err != nil {
			httputil.WriteError(w, apperrors.Validation("date must be formatted YYYY-MM-DD"))
			return
		}
		rec.Date = date
	}

	stored, err := h.app.Payments.Record(r.Context(), rec)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, stored)
}

func (h *handler) listPayments(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employeeId")
	rawDate := r.URL.Query().Get("date")

	if rawDate == "" {
		records, err := h.app.Payments.ListByEmployee(r.Context(), employeeID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, records)
		return
	}

	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		httputil.WriteError(w, apperrors.Validation("date must be formatted YYYY-MM-DD"))
		return
	}
	records, err := h.app.Payments.ListByEmployeeAndDate(r.Context(), employeeID, date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *handler) paymentsSelf(w http.ResponseWriter, r *http.Request) {
	records, err := h.app.Payments.ListByEmail(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

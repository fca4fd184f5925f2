// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teamtrait/identity-service/internal/db"
	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/monitoring"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/internal/validation"
	"github.com/teamtrait/identity-service/pkg/audit"
	"github.com/teamtrait/identity-service/pkg/authentication"
	"github.com/teamtrait/identity-service/pkg/token"

	httptypes "github.com/teamtrait/identity-service/internal/http/types"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

type API struct {
	service  ServiceInterface
	limiter  *RateLimiter
	auditor  audit.RecorderInterface
	dbClient db.DBClientInterface
	baseURL  string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"max=100"`
	InvitationToken string `json:"invitationToken"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type accountView struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	AvatarURL     *string    `json:"avatarUrl,omitempty"`
	Role          types.Role `json:"role"`
	TenantID      *string    `json:"tenantId,omitempty"`
	EmailVerified bool       `json:"emailVerified"`
}

type sessionResponse struct {
	Account accountView `json:"account"`
	Tokens  *token.Pair `json:"tokens"`
}

func viewOf(a *types.Account) accountView {
	return accountView{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		AvatarURL:     a.AvatarURL,
		Role:          a.Role,
		TenantID:      a.TenantID,
		EmailVerified: a.EmailVerified,
	}
}

// RegisterPublicEndpoints wires the unauthenticated credential surface.
// Login and refresh sit behind the per-client rate limiter.
func (a *API) RegisterPublicEndpoints(mux chi.Router) {
	mux.Post("/auth/register", a.register)
	mux.With(a.limiter.Limit).Post("/auth/login", a.login)
	mux.With(a.limiter.Limit).Post("/auth/refresh", a.refresh)
	mux.Get("/auth/{provider}/login", a.oauthLogin)
	mux.Get("/auth/{provider}/callback", a.oauthCallback)
}

// RegisterEndpoints wires the routes that require a live session.
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Post("/auth/logout", a.logout)
	mux.Get("/auth/me", a.me)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "auth.API.register")
	defer span.End()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httptypes.WriteError(w, types.ErrValidation)
		return
	}
	if err := validation.CheckStruct(req); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	account, pair, err := a.service.Register(ctx, RegisterParams{
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		InvitationToken: req.InvitationToken,
	})
	if err != nil {
		a.logger.Debugf("registration failed: %v", err)
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "auth.register", "account", account.ID)
	entry.ActorID = &account.ID
	entry.TenantID = account.TenantID
	a.auditor.Record(ctx, entry)

	httptypes.WriteJSON(w, http.StatusCreated, sessionResponse{Account: viewOf(account), Tokens: pair})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "auth.API.login")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httptypes.WriteError(w, types.ErrValidation)
		return
	}
	if err := validation.CheckStruct(req); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	account, pair, err := a.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "auth.login", "account", account.ID)
	entry.ActorID = &account.ID
	entry.TenantID = account.TenantID
	a.auditor.Record(ctx, entry)

	httptypes.WriteJSON(w, http.StatusOK, sessionResponse{Account: viewOf(account), Tokens: pair})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "auth.API.refresh")
	defer span.End()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httptypes.WriteError(w, types.ErrValidation)
		return
	}
	if err := validation.CheckStruct(req); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	pair, err := a.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, pair)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "auth.API.logout")
	defer span.End()

	principal, ok := authentication.PrincipalFromContext(ctx)
	if !ok {
		httptypes.WriteError(w, types.ErrUnauthenticated)
		return
	}

	if err := a.service.Logout(ctx, principal.ID()); err != nil {
		httptypes.WriteError(w, err)
		return
	}

	a.auditor.Record(ctx, audit.Entry(r, "auth.logout", "account", principal.ID()))

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "auth.API.me")
	defer span.End()

	principal, ok := authentication.PrincipalFromContext(r.Context())
	if !ok {
		httptypes.WriteError(w, types.ErrUnauthenticated)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, viewOf(&principal.Account))
}

func (a *API) oauthLogin(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "auth.API.oauthLogin")
	defer span.End()

	state, err := newState()
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	redirect, err := a.service.LoginURL(types.Provider(chi.URLParam(r, "provider")), state)
	if err != nil {
		httptypes.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, redirect, http.StatusFound)
}

func (a *API) oauthCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "auth.API.oauthCallback")
	defer span.End()

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		a.logger.Security().AuthnFailure("", "oauth callback state mismatch")
		httptypes.WriteError(w, types.ErrUnauthenticated)
		return
	}

	// One-shot state.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	// The callback arrives as a GET but writes accounts, seats, and
	// invitation state, so it gets its own transaction instead of the
	// method-based request middleware.
	provider := types.Provider(chi.URLParam(r, "provider"))
	var account *types.Account
	var pair *token.Pair
	err = a.dbClient.WithTx(ctx, func(txCtx context.Context) error {
		var txErr error
		account, pair, txErr = a.service.Callback(txCtx, provider, r.URL.Query().Get("code"))
		return txErr
	})
	if err != nil {
		a.logger.Debugf("oauth callback failed: %v", err)
		httptypes.WriteError(w, err)
		return
	}

	entry := audit.Entry(r, "auth.login."+string(provider), "account", account.ID)
	entry.ActorID = &account.ID
	entry.TenantID = account.TenantID
	a.auditor.Record(ctx, entry)

	// Tokens travel in the fragment so they never hit server logs.
	target := fmt.Sprintf("%s/auth/complete#accessToken=%s&refreshToken=%s",
		a.baseURL, url.QueryEscape(pair.AccessToken), url.QueryEscape(pair.RefreshToken))
	http.Redirect(w, r, target, http.StatusFound)
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func NewAPI(
	service ServiceInterface,
	limiter *RateLimiter,
	auditor audit.RecorderInterface,
	dbClient db.DBClientInterface,
	baseURL string,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *API {
	return &API{
		service:  service,
		limiter:  limiter,
		auditor:  auditor,
		dbClient: dbClient,
		baseURL:  baseURL,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}

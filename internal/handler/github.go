package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/repoboard/internal/domain"
	"github.com/sumire/repoboard/internal/service"
)

// linkCookieName carries the signed link token across the OAuth redirect,
// which arrives without an Authorization header.
const linkCookieName = "rb_link"

// GitHubHandler handles the GitHub connection endpoints.
type GitHubHandler struct {
	github      *service.GitHubService
	auth        *service.AuthService
	frontendURL string
}

// NewGitHubHandler creates a new GitHubHandler.
func NewGitHubHandler(github *service.GitHubService, auth *service.AuthService, frontendURL string) *GitHubHandler {
	return &GitHubHandler{github: github, auth: auth, frontendURL: frontendURL}
}

// Connect starts the OAuth flow for the signed-in user: issues CSRF state,
// sets the link cookie, and returns the provider authorization URL for the
// browser to navigate to.
func (h *GitHubHandler) Connect(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	authorizeURL, err := h.github.Connect(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	linkToken, err := h.auth.LinkToken(userID)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     linkCookieName,
		Value:    linkToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	return JSON(c, http.StatusOK, map[string]string{"authorize_url": authorizeURL})
}

// Callback is the browser redirect target. Every terminal state ends in a
// redirect to the frontend with a one-line signal and a clean URL; the code
// and state never leak past this handler.
func (h *GitHubHandler) Callback(c echo.Context) error {
	clearLinkCookie(c)

	if provErr := c.QueryParam("error"); provErr != "" {
		msg := c.QueryParam("error_description")
		if msg == "" {
			msg = provErr
		}
		return h.redirectWithError(c, msg)
	}

	cookie, err := c.Cookie(linkCookieName)
	if err != nil {
		return h.redirectWithError(c, "Sign in before connecting GitHub")
	}
	userID, err := h.auth.ValidateLinkToken(cookie.Value)
	if err != nil {
		return h.redirectWithError(c, "Connect attempt expired, please retry")
	}

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return h.redirectWithError(c, "Missing code or state parameter")
	}

	profile, err := h.github.HandleCallback(c.Request().Context(), userID, code, state)
	if err != nil {
		return h.redirectWithError(c, callbackMessage(err))
	}

	return h.redirectWithSignal(c, url.Values{
		"success": {"true"},
		"message": {"Successfully connected to GitHub as " + profile.Login},
	})
}

// Status runs reconciliation and returns the resulting connection state.
func (h *GitHubHandler) Status(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	return JSON(c, http.StatusOK, h.github.Reconcile(c.Request().Context(), userID))
}

// Refresh re-fetches the repository list.
func (h *GitHubHandler) Refresh(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	state, err := h.github.RefreshRepositories(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, state)
}

// Disconnect unlinks the GitHub account.
func (h *GitHubHandler) Disconnect(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	h.github.Disconnect(c.Request().Context(), userID)
	return JSON(c, http.StatusOK, map[string]string{"status": "disconnected"})
}

type exchangeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Exchange is the trusted-intermediary token exchange endpoint. The client
// secret stays server-side; the browser posts only the one-time code.
func (h *GitHubHandler) Exchange(c echo.Context) error {
	var req exchangeRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, err := h.github.ExchangeCode(c.Request().Context(), req.Code)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, token)
}

type saveProfileRequest struct {
	GitHubUserID   int64   `json:"github_user_id" validate:"required"`
	GitHubUsername string  `json:"github_username" validate:"required"`
	AccessToken    string  `json:"access_token" validate:"required"`
	Scope          string  `json:"scope"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
}

// SaveProfile is the trusted-intermediary persistence endpoint: a durable
// upsert keyed by the authenticated local account.
func (h *GitHubHandler) SaveProfile(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req saveProfileRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	scope := req.Scope
	if scope == "" {
		scope = "repo,user"
	}

	saved, err := h.github.SaveProfile(c.Request().Context(), domain.LinkedIdentity{
		OwnerID:        userID,
		GitHubUserID:   req.GitHubUserID,
		GitHubUsername: req.GitHubUsername,
		AccessToken:    req.AccessToken,
		Scope:          scope,
		AvatarURL:      req.AvatarURL,
		Name:           req.Name,
		Email:          req.Email,
	})
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{
		"success": true,
		"profile": saved,
	})
}

// Commits returns a page of a repository's commit history.
func (h *GitHubHandler) Commits(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	page, perPage := pagination(c)
	commits, err := h.github.ListCommits(c.Request().Context(), userID,
		c.Param("owner"), c.Param("repo"), page, perPage)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, commits)
}

// Issues returns a page of a repository's issues.
func (h *GitHubHandler) Issues(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	page, perPage := pagination(c)
	issues, err := h.github.ListIssues(c.Request().Context(), userID,
		c.Param("owner"), c.Param("repo"), c.QueryParam("state"), page, perPage)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, issues)
}

// Readme returns a repository's README markdown.
func (h *GitHubHandler) Readme(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	content, err := h.github.Readme(c.Request().Context(), userID,
		c.Param("owner"), c.Param("repo"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]string{"content": content})
}

// Stats aggregates repository totals for the linked account.
func (h *GitHubHandler) Stats(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	stats, err := h.github.Stats(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, stats)
}

// RateLimit reports the remaining GitHub API quota.
func (h *GitHubHandler) RateLimit(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	limit, err := h.github.RateLimit(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, limit)
}

func (h *GitHubHandler) redirectWithError(c echo.Context, msg string) error {
	return h.redirectWithSignal(c, url.Values{
		"error":   {"true"},
		"message": {msg},
	})
}

func (h *GitHubHandler) redirectWithSignal(c echo.Context, params url.Values) error {
	return c.Redirect(http.StatusSeeOther, h.frontendURL+"/github?"+params.Encode())
}

func clearLinkCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     linkCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func callbackMessage(err error) string {
	_, apiErr := mapError(err)
	return apiErr.Message
}

func pagination(c echo.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.QueryParam("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 30
	}
	return page, perPage
}

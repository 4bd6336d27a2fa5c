// Package authn implements the two authentication schemes the HTTP API
// accepts: HTTP Basic, validated against the source repository's
// ticket-issue endpoint, and a bearer-style ticket extracted from a query
// parameter or a masqueraded Basic header. Both attach a model.Principal
// bearing model.RoleUser to the request context.
//
// Grounded on internal/http/server.go's echo middleware style and on
// internal/sourceclient's authenticated-request conventions.
package authn

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

const (
	ticketQueryParam = "alf_ticket"
	ticketPrefix     = "TICKET_"

	principalContextKey = "principal"
)

// Config configures the source repository endpoints the schemes validate
// against.
type Config struct {
	BaseURL string
}

// Validator implements both authentication schemes against the source
// repository's REST API.
type Validator struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs a Validator.
func New(cfg Config, logger *zap.Logger) *Validator {
	return &Validator{cfg: cfg, httpClient: &http.Client{}, logger: logger}
}

// Middleware returns the chained echo middleware: ticket first, then
// basic. Either scheme, on success, sets a model.Principal on the
// request context; a failed attempt clears any partial principal and
// falls through to the next scheme rather than retrying.
func (v *Validator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if ticket, ok := extractTicket(c.Request()); ok {
				principal, err := v.validateTicket(ctx, ticket)
				if err == nil {
					attachPrincipal(c, principal)
					hideAuthorizationHeader(c.Request())
					return next(c)
				}
				v.logger.Debug("ticket validation failed, falling through to basic", zap.Error(err))
			}

			if username, password, ok := c.Request().BasicAuth(); ok {
				principal, err := v.validateBasic(ctx, username, password)
				if err == nil {
					attachPrincipal(c, principal)
					return next(c)
				}
				v.logger.Debug("basic auth validation failed", zap.String("username", username), zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
	}
}

// extractTicket reads the ticket from the alf_ticket query parameter, or
// from an Authorization: Basic header that decodes to a bare,
// colon-free, TICKET_-prefixed value masquerading as Basic credentials.
func extractTicket(r *http.Request) (string, bool) {
	if t := r.URL.Query().Get(ticketQueryParam); t != "" {
		return t, true
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, prefix))
	if err != nil {
		return "", false
	}
	value := string(decoded)
	if strings.Contains(value, ":") {
		return "", false
	}
	if !strings.HasPrefix(value, ticketPrefix) {
		return "", false
	}
	return value, true
}

// validateTicket calls people/-me- with the ticket and resolves the true
// username from the response entry's id.
func (v *Validator) validateTicket(ctx context.Context, ticket string) (model.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.BaseURL+"/people/-me-?alf_ticket="+ticket, nil)
	if err != nil {
		return model.Principal{}, err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", model.ErrTransientBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Principal{}, fmt.Errorf("%w: ticket rejected with status %d", model.ErrAuthenticationFailed, resp.StatusCode)
	}

	var body struct {
		Entry struct {
			ID string `json:"id"`
		} `json:"entry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Principal{}, fmt.Errorf("decoding ticket validation response: %w", err)
	}
	if body.Entry.ID == "" {
		return model.Principal{}, fmt.Errorf("%w: ticket validation response missing entry id", model.ErrAuthenticationFailed)
	}

	return model.Principal{Username: body.Entry.ID, Roles: []string{model.RoleUser}}, nil
}

// validateBasic issues the ticket-issue request the source repository
// exposes for credential validation: 201 means the credentials are good,
// 401/403 mean they are rejected, anything else is a transient failure.
func (v *Validator) validateBasic(ctx context.Context, username, password string) (model.Principal, error) {
	body, err := json.Marshal(map[string]string{"userId": username, "password": password})
	if err != nil {
		return model.Principal{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.BaseURL+"/tickets", strings.NewReader(string(body)))
	if err != nil {
		return model.Principal{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", model.ErrTransientBackend, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return model.Principal{Username: username, Roles: []string{model.RoleUser}}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.Principal{}, fmt.Errorf("%w: credentials rejected", model.ErrAuthenticationFailed)
	default:
		return model.Principal{}, fmt.Errorf("%w: ticket-issue endpoint returned %d", model.ErrAuthenticationFailed, resp.StatusCode)
	}
}

func attachPrincipal(c echo.Context, p model.Principal) {
	c.Set(principalContextKey, p)
}

// hideAuthorizationHeader removes the Authorization header so a later
// basic-auth middleware in the chain never sees the bare ticket value and
// rejects it as malformed credentials.
func hideAuthorizationHeader(r *http.Request) {
	r.Header.Del("Authorization")
}

// FromContext returns the principal attached by Middleware, if any.
func FromContext(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalContextKey).(model.Principal)
	return p, ok
}

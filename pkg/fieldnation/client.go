package fieldnation

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"workorder-autopilot/pkg/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("fieldnation", fx.Provide(NewClient))

// Client is the authenticated capability against the Field Nation API.
type Client interface {
	// Authenticate performs the OAuth password grant for a provider account.
	Authenticate(ctx context.Context, username, password string) (*TokenGrant, error)
	// Refresh exchanges a refresh token for a fresh token pair.
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
	// ListWorkOrders returns available work orders matching the filter.
	ListWorkOrders(ctx context.Context, accessToken string, f Filter) ([]WorkOrder, error)
	// RequestWorkOrder requests the work order on the provider's behalf.
	RequestWorkOrder(ctx context.Context, accessToken, workOrderID string) error
}

type client struct {
	http         *resty.Client
	clientID     string
	clientSecret string
}

func NewClient(cfg *config.Config) Client {
	return &client{
		http: resty.New().
			SetBaseURL(cfg.FieldNation.BaseURL).
			SetTimeout(cfg.FieldNation.Timeout),
		clientID:     cfg.FieldNation.ClientID,
		clientSecret: cfg.FieldNation.ClientSecret,
	}
}

func (c *client) Authenticate(ctx context.Context, username, password string) (*TokenGrant, error) {
	return c.grant(ctx, "/authentication/api/oauth/token", map[string]string{
		"grant_type":    "password",
		"username":      username,
		"password":      password,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
}

func (c *client) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	grant, err := c.grant(ctx, "/authentication/api/oauth/refresh", map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (c *client) grant(ctx context.Context, path string, form map[string]string) (*TokenGrant, error) {
	var out TokenGrant
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidGrant, resp.StatusCode())
	case resp.IsError():
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode())
	}

	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in grant response", ErrInvalidGrant)
	}
	return &out, nil
}

type listResponse struct {
	Results []WorkOrder `json:"results"`
}

func (c *client) ListWorkOrders(ctx context.Context, accessToken string, f Filter) ([]WorkOrder, error) {
	query := map[string]string{
		"list":     "workorders_available",
		"f_zip":    f.Zip,
		"f_radius": strconv.FormatFloat(f.RadiusMiles, 'f', -1, 64),
	}
	if len(f.TypeIDs) > 0 {
		ids := make([]string, 0, len(f.TypeIDs))
		for _, id := range f.TypeIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		query["f_type"] = strings.Join(ids, ",")
	}

	var out listResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParams(query).
		SetResult(&out).
		Get("/api/rest/v2/workorders")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode())
	case resp.IsError():
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode())
	}

	return out.Results, nil
}

func (c *client) RequestWorkOrder(ctx context.Context, accessToken, workOrderID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Post(fmt.Sprintf("/api/rest/v2/workorders/%s/requests", workOrderID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode())
	case resp.StatusCode() == http.StatusConflict, resp.StatusCode() == http.StatusGone:
		return fmt.Errorf("%w: work order %s", ErrAlreadyTaken, workOrderID)
	case resp.IsError():
		return fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode())
	}

	return nil
}

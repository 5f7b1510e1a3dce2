package fieldnation

import "errors"

// Sentinel errors for the marketplace API. Callers branch with errors.Is;
// anything not wrapping one of these is treated as transient.
var (
	// ErrAuth means the access token was rejected (expired or revoked).
	ErrAuth = errors.New("fieldnation: access token rejected")
	// ErrInvalidGrant means the refresh token is no longer usable.
	ErrInvalidGrant = errors.New("fieldnation: invalid refresh grant")
	// ErrAlreadyTaken means the work order was claimed by another provider
	// between listing and requesting. A normal non-success outcome.
	ErrAlreadyTaken = errors.New("fieldnation: work order already taken")
	// ErrNetwork wraps transport-level and unexpected upstream failures.
	ErrNetwork = errors.New("fieldnation: request failed")
)

// TokenGrant is the result of a password or refresh grant.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

// WorkOrder is one available marketplace listing. Distance is miles from
// the search center, computed upstream.
type WorkOrder struct {
	ID       string  `json:"id"`
	TypeID   int64   `json:"type_id"`
	Title    string  `json:"title"`
	Zip      string  `json:"zip"`
	Distance float64 `json:"distance"`
}

// Filter narrows the available work order listing server-side.
type Filter struct {
	Zip         string
	RadiusMiles float64
	TypeIDs     []int64
}

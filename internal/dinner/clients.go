package dinner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

// StubMenuClient reports every menu as existing. The menu catalogue is an
// external collaborator that is commonly stubbed in this system.
type StubMenuClient struct{}

func (StubMenuClient) MenuExists(ctx context.Context, menuID int64) (bool, error) {
	return menuID > 0, nil
}

// HTTPIdentityClient resolves host checks against the user service.
type HTTPIdentityClient struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPIdentityClient builds a client with a bounded request timeout.
func NewHTTPIdentityClient(baseURL string) *HTTPIdentityClient {
	return &HTTPIdentityClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPIdentityClient) IsHost(ctx context.Context, userID int64) (bool, error) {
	url := fmt.Sprintf("%s/api/v1/users/%d/is-host", c.BaseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("identity service returned %d", resp.StatusCode)
	}
	var body struct {
		IsHost bool `json:"is_host"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.IsHost, nil
}

// HTTPGuestListClient fetches reserved guest ids from the reservation
// service. The dinner start path calls this synchronously with no retry.
type HTTPGuestListClient struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPGuestListClient builds a client with a bounded request timeout.
func NewHTTPGuestListClient(baseURL string) *HTTPGuestListClient {
	return &HTTPGuestListClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPGuestListClient) GuestIDsByDinner(ctx context.Context, dinnerID int64) ([]int64, error) {
	url := fmt.Sprintf("%s/api/v1/reservations/dinner/%d/guests", c.BaseURL, dinnerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reservation service returned %d", resp.StatusCode)
	}
	var body struct {
		GuestIDs []int64 `json:"guest_ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.GuestIDs, nil
}

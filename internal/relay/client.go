package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.RelayPort = (*Client)(nil)

// Client polls a relay server over HTTP on the authenticator's behalf.
type Client struct {
	base string
	http *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		base: strings.TrimRight(endpoint, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type latestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	ID      string `json:"id"`
}

func (c *Client) LatestCode(ctx context.Context, minAge time.Duration) (*output.RelayCode, error) {
	url := c.base + "/code/latest"
	if minAge > 0 {
		url += "?minAgeMs=" + strconv.FormatInt(minAge.Milliseconds(), 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build relay request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode relay response: %w", err)
	}

	if !body.Success {
		return nil, entity.ErrNoCode
	}
	return &output.RelayCode{ID: body.ID, Code: body.Code}, nil
}

func (c *Client) MarkUsed(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/code/%s/use", c.base, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return entity.ErrEntryNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return nil
}

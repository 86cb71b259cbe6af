package apiclient

import (
	"github.com/ptyhub/ptyhub/internal/cli/health"
)

// Health returns the server health status.
func (c *Client) Health() (*health.Response, error) {
	var resp health.Response
	if err := c.get("/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

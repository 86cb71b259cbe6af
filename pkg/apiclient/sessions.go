package apiclient

import (
	"fmt"
	"net/url"
	"time"
)

// Session represents a session record as reported by the server.
type Session struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Shell          string    `json:"shell"`
	Cwd            string    `json:"cwd"`
	Status         string    `json:"status"`
	Cols           int       `json:"cols"`
	Rows           int       `json:"rows"`
	CategoryID     *string   `json:"categoryId"`
	SortOrder      int       `json:"sortOrder"`
	Attachable     bool      `json:"attachable"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

// ListSessions returns all durable session records.
func (c *Client) ListSessions() ([]Session, error) {
	var resp struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.get("/api/sessions", &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// TerminateSession kills the session process and marks the record terminated.
func (c *Client) TerminateSession(id string) error {
	return c.delete(fmt.Sprintf("/api/sessions/%s", url.PathEscape(id)), nil)
}

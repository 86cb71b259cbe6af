// Package health provides shared types for health check responses.
package health

// Response represents the API health response structure.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Sessions  int    `json:"sessions"`
	Identity  string `json:"identity"`
	Error     string `json:"error,omitempty"`
}

// Healthy reports whether the server considers itself healthy.
func (r *Response) Healthy() bool {
	return r.Status == "healthy"
}

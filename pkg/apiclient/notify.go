package apiclient

import (
	"fmt"
	"net/url"
)

// Notify posts a hook notification for a session. Kind is one of
// "activity", "silence", "bell" or "done".
func (c *Client) Notify(sessionID, kind string) error {
	path := fmt.Sprintf("/api/notify/%s/%s", url.PathEscape(sessionID), url.PathEscape(kind))
	return c.post(path, nil, nil)
}

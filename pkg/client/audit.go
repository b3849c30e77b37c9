package client

import (
	"context"

	"github.com/vouchd/vouchd/internal/api"
	"github.com/vouchd/vouchd/internal/core"
)

// ListAudits retrieves the latest audit entries from the server, limited to
// the specified number.
func (c *Client) ListAudits(ctx context.Context, limit uint) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if limit > 0 {
		ub = ub.addQueryParam("limit", limit)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}

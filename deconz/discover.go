package deconz

import "context"

// DiscoverNeighbors is a thin convenience wrapper around Lqi for callers
// that think in terms of "discover neighbors" rather than the underlying
// Mgmt_Lqi_req/rsp pagination.
func (a *Adapter) DiscoverNeighbors(ctx context.Context, nwk uint16) ([]Neighbor, error) {
	return a.Lqi(ctx, nwk)
}

package cron

import "workorder-autopilot/pkg/fieldnation"

// FilterCandidates reduces fetched work orders to the subset the cron may
// request: drops ids already requested, types outside the cron's type
// filter, and listings beyond the driving radius. Order is preserved.
// An empty type filter admits every type.
func FilterCandidates(candidates []fieldnation.WorkOrder, c *Cron) []fieldnation.WorkOrder {
	types := make(map[int64]struct{}, len(c.TypesOfWorkOrder))
	for _, t := range c.TypesOfWorkOrder {
		types[t] = struct{}{}
	}

	out := make([]fieldnation.WorkOrder, 0, len(candidates))
	for _, wo := range candidates {
		if c.HasRequested(wo.ID) {
			continue
		}
		if len(types) > 0 {
			if _, ok := types[wo.TypeID]; !ok {
				continue
			}
		}
		if wo.Distance > c.DrivingRadius {
			continue
		}
		out = append(out, wo)
	}
	return out
}

package cron

import (
	"testing"

	"workorder-autopilot/pkg/fieldnation"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestFilterCandidatesDedup(t *testing.T) {
	c := &Cron{
		DrivingRadius:  100,
		RequestedWoIDs: datatypes.NewJSONSlice([]string{"wo-1", "wo-3"}),
	}

	got := FilterCandidates([]fieldnation.WorkOrder{
		{ID: "wo-1", Distance: 5},
		{ID: "wo-2", Distance: 5},
		{ID: "wo-3", Distance: 5},
		{ID: "wo-4", Distance: 5},
	}, c)

	require.Equal(t, []string{"wo-2", "wo-4"}, woIDs(got))
}

func TestFilterCandidatesRadius(t *testing.T) {
	c := &Cron{DrivingRadius: 10}

	got := FilterCandidates([]fieldnation.WorkOrder{
		{ID: "near", Distance: 9},
		{ID: "edge", Distance: 10},
		{ID: "far", Distance: 15},
	}, c)

	require.Equal(t, []string{"near", "edge"}, woIDs(got), "radius bound is inclusive")
}

func TestFilterCandidatesTypes(t *testing.T) {
	c := &Cron{
		DrivingRadius:    100,
		TypesOfWorkOrder: datatypes.NewJSONSlice([]int64{1, 3}),
	}

	got := FilterCandidates([]fieldnation.WorkOrder{
		{ID: "a", TypeID: 1, Distance: 5},
		{ID: "b", TypeID: 2, Distance: 5},
		{ID: "c", TypeID: 3, Distance: 5},
	}, c)

	require.Equal(t, []string{"a", "c"}, woIDs(got))
}

func TestFilterCandidatesEmptyTypeFilterAdmitsAll(t *testing.T) {
	c := &Cron{DrivingRadius: 100}

	got := FilterCandidates([]fieldnation.WorkOrder{
		{ID: "a", TypeID: 1, Distance: 5},
		{ID: "b", TypeID: 99, Distance: 5},
	}, c)

	require.Len(t, got, 2)
}

func TestFilterCandidatesPreservesOrder(t *testing.T) {
	c := &Cron{DrivingRadius: 100}

	in := []fieldnation.WorkOrder{
		{ID: "z", Distance: 1},
		{ID: "a", Distance: 2},
		{ID: "m", Distance: 3},
	}
	require.Equal(t, []string{"z", "a", "m"}, woIDs(FilterCandidates(in, c)))
}

func woIDs(in []fieldnation.WorkOrder) []string {
	out := make([]string, 0, len(in))
	for _, wo := range in {
		out = append(out, wo.ID)
	}
	return out
}

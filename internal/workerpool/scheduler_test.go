package workerpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanAssignments(t *testing.T) {
	tests := []struct {
		name       string
		queued     int
		slots      []SlotView
		maxSlots   int
		wantAssign []string
		wantSpawn  int
	}{
		{
			name:     "empty queue does nothing",
			queued:   0,
			slots:    []SlotView{{ID: "a"}},
			maxSlots: 4,
		},
		{
			name:       "idle slot used before spawning",
			queued:     1,
			slots:      []SlotView{{ID: "a", Busy: false}},
			maxSlots:   4,
			wantAssign: []string{"a"},
		},
		{
			name:      "all busy below cap spawns",
			queued:    2,
			slots:     []SlotView{{ID: "a", Busy: true}},
			maxSlots:  4,
			wantSpawn: 2,
		},
		{
			name:      "spawn bounded by cap",
			queued:    10,
			slots:     []SlotView{{ID: "a", Busy: true}, {ID: "b", Busy: true}},
			maxSlots:  4,
			wantSpawn: 2,
		},
		{
			name:     "at cap and all busy leaves work queued",
			queued:   5,
			slots:    []SlotView{{ID: "a", Busy: true}, {ID: "b", Busy: true}},
			maxSlots: 2,
		},
		{
			name:       "mixed idle and spawn",
			queued:     3,
			slots:      []SlotView{{ID: "a", Busy: true}, {ID: "b", Busy: false}},
			maxSlots:   3,
			wantAssign: []string{"b"},
			wantSpawn:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanAssignments(tt.queued, tt.slots, tt.maxSlots)
			assert.Equal(t, tt.wantAssign, plan.AssignTo)
			assert.Equal(t, tt.wantSpawn, plan.Spawn)
		})
	}
}

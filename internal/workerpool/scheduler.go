package workerpool

// SlotView is the scheduler's read-only view of a worker slot.
type SlotView struct {
	ID   string
	Busy bool
}

// Plan is a scheduling decision: which idle slots receive queued tasks and
// how many new slots to spawn first.
type Plan struct {
	AssignTo []string
	Spawn    int
}

// PlanAssignments decides how to drain a FIFO queue of length queued across
// the given slots without exceeding maxSlots. Idle slots are used first; new
// slots are spawned only when no idle slot remains and the pool is below its
// cap. Pure function, independent of any channel I/O.
func PlanAssignments(queued int, slots []SlotView, maxSlots int) Plan {
	var plan Plan
	if queued <= 0 {
		return plan
	}

	for _, s := range slots {
		if queued == 0 {
			break
		}
		if !s.Busy {
			plan.AssignTo = append(plan.AssignTo, s.ID)
			queued--
		}
	}

	room := maxSlots - len(slots)
	for queued > 0 && room > 0 {
		plan.Spawn++
		queued--
		room--
	}
	return plan
}

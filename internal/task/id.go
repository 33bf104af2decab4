package task

// NextID returns an ID not used by any of the given IDs.
// IDs are never reused because tasks are never deleted, so max+1 is enough.
func NextID(existing []int64) int64 {
	var maxID int64
	for _, id := range existing {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// IDs collects the IDs of tasks.
func IDs(tasks []Task) []int64 {
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

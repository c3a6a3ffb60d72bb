package assignment

// Assignment statuses that occupy a slot on an occurrence record.
const (
	StatusRequested = "requested"
	StatusScheduled = "scheduled"
)

// CopyResult tallies one copy of assignments between two occurrence records.
type CopyResult struct {
	Cloned int
	// AlreadyScheduled counts people already on the destination.
	AlreadyScheduled int
	// OverCapacity counts people skipped because the destination was full.
	OverCapacity int
	// Blackout counts people unavailable on the destination date.
	Blackout int
}

// Add accumulates o into r.
func (r *CopyResult) Add(o CopyResult) {
	r.Cloned += o.Cloned
	r.AlreadyScheduled += o.AlreadyScheduled
	r.OverCapacity += o.OverCapacity
	r.Blackout += o.Blackout
}

// Skipped is the total number of people not copied.
func (r CopyResult) Skipped() int {
	return r.AlreadyScheduled + r.OverCapacity + r.Blackout
}

package pipeline

// AdmissionGate bounds concurrent generation runs. Acquisition never
// blocks: when the gate is full the caller is told to come back later
// instead of queueing behind running jobs.
type AdmissionGate struct {
	slots chan struct{}
}

// NewAdmissionGate creates a gate admitting up to maxConcurrent runs.
// A non-positive limit is coerced to 1.
func NewAdmissionGate(maxConcurrent int) *AdmissionGate {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &AdmissionGate{
		slots: make(chan struct{}, maxConcurrent),
	}
}

// TryAcquire claims a slot without blocking. It returns false when the
// gate is at capacity.
func (ag *AdmissionGate) TryAcquire() bool {
	select {
	case ag.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a previously acquired slot
func (ag *AdmissionGate) Release() {
	select {
	case <-ag.slots:
	default:
	}
}

// InUse reports the number of currently held slots
func (ag *AdmissionGate) InUse() int {
	return len(ag.slots)
}

// Capacity reports the maximum number of concurrent runs
func (ag *AdmissionGate) Capacity() int {
	return cap(ag.slots)
}

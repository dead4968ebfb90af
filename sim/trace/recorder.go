package trace

import "sync"

// Recorder collects records in arrival order. It is safe for one writer and
// concurrent readers, and a nil *Recorder discards records.
type Recorder struct {
	mu      sync.RWMutex
	records []Record
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make([]Record, 0)}
}

// Add appends a record.
func (r *Recorder) Add(rec Record) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of all records.
func (r *Recorder) Records() []Record {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

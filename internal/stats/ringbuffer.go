package stats

// RingBuffer holds a sliding window of rates, oldest first.
type RingBuffer struct {
	data     []float64
	head     int
	capacity int
	isFull   bool
}

// NewRingBuffer creates a ring buffer holding size points.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		data:     make([]float64, size),
		capacity: size,
	}
}

// Add inserts a new value, overwriting the oldest if full.
func (r *RingBuffer) Add(val float64) {
	r.data[r.head] = val
	r.head = (r.head + 1) % r.capacity
	if r.head == 0 {
		r.isFull = true
	}
}

// Snapshot returns the data ordered from oldest to newest.
func (r *RingBuffer) Snapshot() []float64 {
	result := make([]float64, 0, r.capacity)
	if r.isFull {
		result = append(result, r.data[r.head:]...)
	}
	return append(result, r.data[:r.head]...)
}

// Len returns the number of points held.
func (r *RingBuffer) Len() int {
	if r.isFull {
		return r.capacity
	}
	return r.head
}

// Peak returns the largest value held, or 0 when empty.
func (r *RingBuffer) Peak() float64 {
	var peak float64
	for _, v := range r.Snapshot() {
		if v > peak {
			peak = v
		}
	}
	return peak
}

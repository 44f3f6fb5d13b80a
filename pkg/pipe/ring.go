package pipe

// ring is a growable circular buffer. Callers hold the pipe lock.
type ring[M any] struct {
	items []M
	head  int
	n     int
}

func (r *ring[M]) len() int {
	return r.n
}

func (r *ring[M]) push(m M) {
	if r.n == len(r.items) {
		r.grow()
	}
	r.items[(r.head+r.n)%len(r.items)] = m
	r.n++
}

func (r *ring[M]) pop() M {
	var zero M
	if r.n == 0 {
		return zero
	}
	m := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.n--
	return m
}

func (r *ring[M]) grow() {
	size := len(r.items) * 2
	if size == 0 {
		size = 16
	}
	items := make([]M, size)
	for i := 0; i < r.n; i++ {
		items[i] = r.items[(r.head+i)%len(r.items)]
	}
	r.items = items
	r.head = 0
}

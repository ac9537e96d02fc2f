package stream

// byteRing is the storage core shared by stream and message buffers.
// All methods require external locking.
type byteRing struct {
	buf   []byte
	head  int
	count int
}

func (r *byteRing) cap() int  { return len(r.buf) }
func (r *byteRing) free() int { return len(r.buf) - r.count }

// write appends as much of p as fits and returns the count.
func (r *byteRing) write(p []byte) int {
	n := len(p)
	if f := r.free(); n > f {
		n = f
	}
	if n == 0 {
		return 0
	}
	at := (r.head + r.count) % len(r.buf)
	first := copy(r.buf[at:], p[:n])
	copy(r.buf, p[first:n])
	r.count += n
	return n
}

// read drains up to len(dst) bytes into dst and returns the count.
func (r *byteRing) read(dst []byte) int {
	n := len(dst)
	if n > r.count {
		n = r.count
	}
	if n == 0 {
		return 0
	}
	first := copy(dst[:n], r.buf[r.head:])
	copy(dst[first:n], r.buf)
	r.head = (r.head + n) % len(r.buf)
	r.count -= n
	return n
}

// peek copies up to len(dst) bytes starting at the given offset from
// the read position, without consuming them.
func (r *byteRing) peek(dst []byte, off int) int {
	n := len(dst)
	if avail := r.count - off; n > avail {
		n = avail
	}
	if n <= 0 {
		return 0
	}
	at := (r.head + off) % len(r.buf)
	first := copy(dst[:n], r.buf[at:])
	copy(dst[first:n], r.buf)
	return n
}

// skip consumes n bytes without copying them out.
func (r *byteRing) skip(n int) {
	r.head = (r.head + n) % len(r.buf)
	r.count -= n
}

func (r *byteRing) reset() {
	r.head = 0
	r.count = 0
}

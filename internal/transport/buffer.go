package transport

// limitedBuffer caps captured stderr so a chatty server cannot grow the
// harness's memory without bound.
type limitedBuffer struct {
	max       int
	data      []byte
	truncated bool
}

func newLimitedBuffer(max int) *limitedBuffer {
	if max <= 0 {
		max = DefaultStderrLimitBytes
	}
	return &limitedBuffer{
		max:  max,
		data: make([]byte, 0, max),
	}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	written := len(p)
	remaining := b.max - len(b.data)
	if remaining > 0 {
		if len(p) <= remaining {
			b.data = append(b.data, p...)
		} else {
			b.data = append(b.data, p[:remaining]...)
			b.truncated = true
		}
	} else {
		b.truncated = true
	}
	return written, nil
}

func (b *limitedBuffer) String() string {
	if !b.truncated {
		return string(b.data)
	}
	const marker = "\n...[stderr truncated]"
	if len(b.data) >= len(marker) {
		return string(b.data[:len(b.data)-len(marker)]) + marker
	}
	return string(b.data)
}

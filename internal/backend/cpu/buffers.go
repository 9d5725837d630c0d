package cpu

import "github.com/liamt19/bullet/internal/tensor"

// request is one buffer a kernel intends to address, with the element count.
type request struct {
	buf  *tensor.Buffer
	size int
}

func use(buf *tensor.Buffer, size int) request {
	return request{buf: buf, size: size}
}

// acquire checks every request against its buffer's capacity and only then
// returns the views, so a kernel either gets all of them or writes nothing.
func acquire(op string, reqs ...request) ([][]float32, error) {
	for _, r := range reqs {
		if err := tensor.CheckCapacity(op, r.size, r.buf); err != nil {
			return nil, err
		}
	}
	views := make([][]float32, len(reqs))
	for i, r := range reqs {
		view, err := r.buf.Slice(r.size)
		if err != nil {
			return nil, err
		}
		views[i] = view
	}
	return views, nil
}

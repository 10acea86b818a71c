package httpwire

import (
	"io"
	"time"

	"github.com/wisphq/wisp/internal/streamio"
)

// ChunkSize is the streaming read size for request bodies.
const ChunkSize = 65536

// BodyStream lazily drains a request body in ChunkSize pieces until
// Content-Length bytes have been read. If the reader hits EOF early, the
// partial chunk is yielded and iteration ends.
type BodyStream struct {
	r         *streamio.Reader
	remaining int64
	timeout   time.Duration
	done      bool
}

// NewBodyStream builds a streaming body reader bound to contentLength bytes.
// A negative contentLength means "unknown" and the stream reads until EOF.
func NewBodyStream(r *streamio.Reader, contentLength int64, timeout time.Duration) *BodyStream {
	return &BodyStream{r: r, remaining: contentLength, timeout: timeout}
}

// Next returns the next chunk, or ok=false once the body is exhausted.
func (b *BodyStream) Next() (chunk []byte, ok bool, err error) {
	if b.done {
		return nil, false, nil
	}
	if b.remaining == 0 {
		b.done = true
		return nil, false, nil
	}

	want := ChunkSize
	if b.remaining > 0 && b.remaining < int64(want) {
		want = int(b.remaining)
	}

	data, err := b.r.ReadN(want, b.timeout)
	if err != nil {
		if pr, isPartial := err.(*streamio.PartialReadError); isPartial {
			b.done = true
			if len(pr.Partial) == 0 {
				return nil, false, nil
			}
			return pr.Partial, true, nil
		}
		if err == io.EOF {
			b.done = true
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) == 0 {
		b.done = true
		return nil, false, nil
	}
	if b.remaining > 0 {
		b.remaining -= int64(len(data))
	}
	return data, true, nil
}

// ReadAll drains the full body into memory. Handlers should prefer Next()
// for large bodies; ReadAll exists for the common small-body case backing
// Request.Read()/.Text()/.JSON().
func (b *BodyStream) ReadAll() ([]byte, error) {
	var out []byte
	for {
		chunk, ok, err := b.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, chunk...)
	}
}

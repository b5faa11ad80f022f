package recordstream

import (
	"bufio"
	"io"

	"github.com/valyala/bytebufferpool"
)

// ByteSource is the uniform transport the reader pulls bytes from.
// The producer/writer side, and anything fancier than a plain or
// buffered reader (compression, sockets), is an external collaborator:
// ReaderSource below is a minimal reference adapter, not the only
// legitimate implementation.
type ByteSource interface {
	// ReadExact fills buf entirely or returns false. A false result
	// on the very first byte of a record is a clean end-of-stream; a
	// false result mid-record is a truncation.
	ReadExact(buf []byte) bool
	// ReadUntil reads up to and including delim, returning everything
	// before it (delim excluded). Returns false on short read/closed.
	ReadUntil(delim byte) (string, bool)
	IsOpen() bool
	Close() error
}

// ReaderSource adapts any io.Reader (optionally an io.Closer) into a
// ByteSource. It is the reference adapter used by tests and by
// cmd/memray-dump; real deployments may back it with a file, a
// decompressing reader, or a socket.
type ReaderSource struct {
	r      *bufio.Reader
	closer io.Closer
	open   bool
}

// NewReaderSource wraps r. If r also implements io.Closer, Close
// forwards to it.
func NewReaderSource(r io.Reader) *ReaderSource {
	closer, _ := r.(io.Closer)
	return &ReaderSource{r: bufio.NewReader(r), closer: closer, open: true}
}

func (s *ReaderSource) ReadExact(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	_, err := io.ReadFull(s.r, buf)
	if err != nil {
		s.open = false
		return false
	}
	return true
}

// ReadUntil accumulates bytes into a pooled scratch buffer, reused
// across calls; only the returned string is allocated per call. Frame
// function names and filenames are read this way for every
// FRAME_INDEX record in a capture.
func (s *ReaderSource) ReadUntil(delim byte) (string, bool) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			s.open = false
			return "", false
		}
		if b == delim {
			return buf.String(), true
		}
		buf.WriteByte(b)
	}
}

func (s *ReaderSource) IsOpen() bool { return s.open }

func (s *ReaderSource) Close() error {
	s.open = false
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

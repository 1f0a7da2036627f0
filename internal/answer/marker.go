package answer

import (
	"context"
	"strings"
)

// ContactMarker is emitted by the answerer to ask for a hand-off to the
// subject. It never reaches the user.
const ContactMarker = "[[CONTACT]]"

// Stripper removes ContactMarker from streamed text, holding back just
// enough of each fragment to catch a marker split across fragments.
type Stripper struct {
	pending string
	found   bool
}

// Write returns the part of chunk that is safe to emit.
func (s *Stripper) Write(chunk string) string {
	buf := s.pending + chunk
	for {
		i := strings.Index(buf, ContactMarker)
		if i < 0 {
			break
		}
		s.found = true
		buf = buf[:i] + buf[i+len(ContactMarker):]
	}
	keep := 0
	for n := min(len(buf), len(ContactMarker)-1); n > 0; n-- {
		if strings.HasSuffix(buf, ContactMarker[:n]) {
			keep = n
			break
		}
	}
	s.pending = buf[len(buf)-keep:]
	return buf[:len(buf)-keep]
}

// Flush returns whatever is still held back.
func (s *Stripper) Flush() string {
	p := s.pending
	s.pending = ""
	return p
}

// Found reports whether a marker was seen.
func (s *Stripper) Found() bool { return s.found }

// Consume drains a generator's streams, passing marker-free text to sink
// (which may be nil). It returns the full text and whether the marker
// appeared.
func Consume(ctx context.Context, chunks <-chan string, errs <-chan error, sink func(string)) (string, bool, error) {
	var s Stripper
	var b strings.Builder
	emit := func(t string) {
		if t == "" {
			return
		}
		b.WriteString(t)
		if sink != nil {
			sink(t)
		}
	}
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				emit(s.Flush())
				err := <-errs
				return strings.TrimSpace(b.String()), s.Found(), err
			}
			emit(s.Write(c))
		case <-ctx.Done():
			emit(s.Flush())
			return strings.TrimSpace(b.String()), s.Found(), ctx.Err()
		}
	}
}

package render

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/rendis/drawsynth/internal/geometry"
	"github.com/rendis/drawsynth/pkg/schema"
)

// Session is the per-call render state: the id allocator and the label index.
// A Session is never shared between Render calls.
type Session struct {
	namespace uuid.UUID
	counter   int
	labels    map[string]target
}

// target is a labelled shape arrows can bind to.
type target struct {
	id  string
	box geometry.Box
}

func newSession(namespace uuid.UUID) *Session {
	return &Session{namespace: namespace, labels: make(map[string]target)}
}

// nextID allocates "<prefix>:<uuid v5 of the counter>" ids. The same namespace
// always yields the same sequence.
func (s *Session) nextID(prefix string) string {
	s.counter++
	return prefix + ":" + uuid.NewSHA1(s.namespace, []byte(strconv.Itoa(s.counter))).String()
}

// remember indexes a labelled shape. Duplicate labels: last writer wins.
func (s *Session) remember(label, id string, box geometry.Box) {
	key := schema.LabelKey(label)
	if key == "" {
		return
	}
	s.labels[key] = target{id: id, box: box}
}

func (s *Session) lookup(label string) (target, bool) {
	t, ok := s.labels[schema.LabelKey(label)]
	return t, ok
}

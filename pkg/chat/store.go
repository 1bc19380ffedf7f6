package chat

// Store is the insertion-ordered, id-indexed log of messages. Entries are
// tombstoned in place, never removed, so the visible order matches receipt
// order for the lifetime of the session. All apply operations are idempotent:
// replaying an event for an id leaves the store in the same state, and events
// for unknown ids are discarded rather than buffered.
type Store struct {
	order []string
	byID  map[string]*Message
}

func NewStore() *Store {
	return &Store{
		order: make([]string, 0),
		byID:  map[string]*Message{},
	}
}

// ApplyCreate appends the message if its id is unknown. A duplicate id
// (usually the server echo of a message already applied locally) is reported
// as false and leaves the store untouched.
func (s *Store) ApplyCreate(msg Message) bool {
	if _, ok := s.byID[msg.ID]; ok {
		return false
	}
	m := msg
	s.byID[m.ID] = &m
	s.order = append(s.order, m.ID)
	return true
}

// ApplyEdit replaces the body of a known message and marks it edited. Edits
// for unknown ids and edits to a deleted message are discarded; the deleted
// flag is monotonic and the tombstone always wins.
func (s *Store) ApplyEdit(id string, text string) (Message, bool) {
	m, ok := s.byID[id]
	if !ok || m.Deleted {
		return Message{}, false
	}
	m.Text = text
	m.Edited = true
	return *m, true
}

// ApplyDelete tombstones a known message. Unknown ids and already deleted
// messages are discarded, which makes replaying a delete harmless.
func (s *Store) ApplyDelete(id string) (Message, bool) {
	m, ok := s.byID[id]
	if !ok || m.Deleted {
		return Message{}, false
	}
	m.Deleted = true
	return *m, true
}

func (s *Store) Get(id string) (Message, bool) {
	m, ok := s.byID[id]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

func (s *Store) Len() int {
	return len(s.order)
}

// Messages returns a copy of the log in insertion order.
func (s *Store) Messages() []Message {
	out := make([]Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

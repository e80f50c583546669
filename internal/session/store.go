package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultCodeLength = 6

// Store is the registry of live sessions. It is only touched from the engine loop.
type Store struct {
	codeLength int
	sessions   map[string]*Session
}

func NewStore(codeLength int) *Store {
	if codeLength <= 0 || codeLength > 32 {
		codeLength = defaultCodeLength
	}

	return &Store{
		codeLength: codeLength,
		sessions:   make(map[string]*Session),
	}
}

// NormalizeID canonicalizes a session code as typed by a user.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// NewID returns a short code not used by any live session.
func (st *Store) NewID() string {
	for {
		id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:st.codeLength]
		if _, ok := st.sessions[id]; !ok {
			return id
		}
	}
}

// Create returns the session with the given id, creating it when it does not exist yet.
func (st *Store) Create(id string, c sessionConfig, now time.Time) (s *Session, created bool) {
	id = NormalizeID(id)
	if s, ok := st.sessions[id]; ok {
		return s, false
	}

	s = newSession(id, c, now)
	st.sessions[id] = s
	return s, true
}

func (st *Store) Get(id string) (*Session, bool) {
	s, ok := st.sessions[NormalizeID(id)]
	return s, ok
}

func (st *Store) Delete(id string) {
	delete(st.sessions, NormalizeID(id))
}

func (st *Store) Len() int {
	return len(st.sessions)
}

// All returns the live sessions in no particular order.
func (st *Store) All() []*Session {
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

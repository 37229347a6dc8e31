package session

import "github.com/userauth-app/authclient/internal/auth"

// Watch subscribes to session changes. The channel holds only the latest
// snapshot: a slow reader skips intermediate states but never blocks the
// store. The current snapshot is delivered immediately. Call cancel to
// unsubscribe; the channel is closed.
func (s *Store) Watch() (<-chan auth.Snapshot, func()) {
	ch := make(chan auth.Snapshot, 1)

	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.Snapshot()
	s.watchMu.Unlock()

	cancel := func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}
	return ch, cancel
}

func (s *Store) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if len(s.watchers) == 0 {
		return
	}

	snap := s.Snapshot()
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

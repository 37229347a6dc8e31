package session

import "context"

// CompleteOAuth finishes an identity-provider sign-in. The provider
// callback leaves only the refresh cookie behind, so a refresh cycle is
// forced to obtain an access credential and the user is then loaded.
// On failure the session is anonymous and the error is returned.
func (s *Store) CompleteOAuth(ctx context.Context) error {
	if _, err := s.api.Coordinator().Refresh(ctx, ""); err != nil {
		return err
	}

	user, err := s.api.Me(ctx, "")
	if err != nil {
		s.clear()
		return err
	}

	s.mu.Lock()
	s.user = copyUser(user)
	s.mu.Unlock()

	s.logger.Info().Str("user_id", user.ID).Msg("Signed in with identity provider")
	s.notify()
	return nil
}

package api

import (
	"context"
	"net/http"

	"github.com/okian/kartboard/internal/adapters/identity"
	"github.com/okian/kartboard/internal/domain/linking"
)

type identityKey struct{}

// authenticate rejects requests without a valid bearer token and stores
// the caller's identity in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.fail(w, r, identity.ErrDisabled)
			return
		}
		raw, err := identity.FromHeader(r.Header.Get("Authorization"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		id, err := s.auth.Verify(r.Context(), raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, linking.Identity{Email: id.Email, Name: id.Name})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom returns the caller attached by authenticate.
func identityFrom(ctx context.Context) linking.Identity {
	id, _ := ctx.Value(identityKey{}).(linking.Identity)
	return id
}

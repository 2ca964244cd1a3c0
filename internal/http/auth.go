package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	applog "mesa/internal/log"
)

// Identity headers set by the authenticating proxy in front of the API.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

type identity struct {
	ID    int64
	Email string
}

type contextKey int

const (
	identityKey contextKey = iota
	workspaceKey
)

func identityFrom(ctx context.Context) identity {
	id, _ := ctx.Value(identityKey).(identity)
	return id
}

func workspaceFrom(ctx context.Context) int64 {
	ws, _ := ctx.Value(workspaceKey).(int64)
	return ws
}

// requireUser rejects requests that did not pass through authentication.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
		email := strings.TrimSpace(r.Header.Get(HeaderUserEmail))
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 || email == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid user identity")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity{ID: id, Email: email})
		ctx = applog.WithLogger(ctx, applog.FromContext(ctx).With(applog.FieldUserID, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}

// requireMember resolves {ws} and checks the caller belongs to it.
func (s *Server) requireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := pathID(r, "ws")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		ok, err := s.svc.Workspaces.IsMember(r.Context(), ws, identityFrom(r.Context()).ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, "forbidden", "not a member of this workspace")
			return
		}
		ctx := context.WithValue(r.Context(), workspaceKey, ws)
		ctx = applog.WithLogger(ctx, applog.FromContext(ctx).With(applog.FieldWorkspaceID, ws))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Hchautard/CerisoNet-back/internal/service"
	"github.com/Hchautard/CerisoNet-back/internal/session"
	"github.com/Hchautard/CerisoNet-back/internal/storage"
)

var errInvalidRequest = errors.New("invalid request")

type loginRequest struct {
	Mail     string `json:"mail"`
	Password string `json:"password"`
}

func (s server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if req.Mail == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "mail and password are required")
		return
	}

	a, err := s.s.Login(r.Context(), req.Mail, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid mail or password")
			return
		}

		log.WithError(err).Error("failed to login")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.sessions.Create(r.Context(), &session.Session{
		UserID:    a.ID,
		Mail:      a.Mail,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		LastLogin: a.LastLogin,
	})
	if err != nil {
		log.WithError(err).Error("failed to create session")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.setSessionCookie(w, token)

	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		User:    toAPIUser(a),
	})
}

func (s server) logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		// nothing to destroy, a second logout is a no-op
		s.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, LogoutResponse{Success: true})
		return
	}

	sess, err := s.sessions.Get(r.Context(), cookie.Value)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		log.WithError(err).Error("failed to get session")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if sess != nil {
		if err := s.s.Logout(r.Context(), sess.UserID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).Error("failed to logout")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
		log.WithError(err).Error("failed to destroy session")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, LogoutResponse{Success: true})
}

func (s server) getUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		User: User{
			ID:        sess.UserID,
			Mail:      sess.Mail,
			FirstName: sess.FirstName,
			LastName:  sess.LastName,
			LastLogin: sess.LastLogin.UTC().Format("2006-01-02 15:04:05"),
		},
	})
}

func (s server) getConnectedUsers(w http.ResponseWriter, r *http.Request) {
	uu, err := s.s.GetConnectedUsers(r.Context())
	if err != nil {
		log.WithError(err).Error("failed to get connected users")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]User, len(uu))
	for i, u := range uu {
		out[i] = User{
			ID:        u.ID,
			Mail:      u.Mail,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Avatar:    u.Avatar,
		}
	}

	writeJSON(w, http.StatusOK, ConnectedUsersResponse{
		Success:        true,
		ConnectedUsers: out,
	})
}

func (s server) listPosts(w http.ResponseWriter, r *http.Request) {
	params, err := extractListParamsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.Owner == 0 {
		params.Owner = sessionFromContext(r.Context()).UserID
	}

	posts, total, err := s.s.ListPosts(r.Context(), params)
	if err != nil {
		log.WithError(err).Error("failed to list posts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	accounts, err := s.s.GetAccounts(r.Context(), extractAccountIDsFromPosts(posts)...)
	if err != nil {
		log.WithError(err).Error("failed to get accounts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, newListPostsResponse(posts, accounts, total, params.Page, params.PageSize))
}

func (s server) getError(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.healthContext(r)
	defer cancel()

	for _, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			log.WithError(err).Error("health check failed")
			writeError(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// nolint: gocyclo
func extractListParamsFromQuery(q url.Values) (*storage.ListPostsParams, error) {
	out := storage.ListPostsParams{
		SortBy:      storage.DateSortType,
		OrderBy:     storage.DescendingOrder,
		OwnerFilter: storage.AllOwnerFilter,
		Page:        1,
		PageSize:    defaultPageSize,
	}

	switch sortBy := q.Get("sortBy"); sortBy {
	case "date":
		out.SortBy = storage.DateSortType
	case "author":
		out.SortBy = storage.AuthorSortType
	case "likes":
		out.SortBy = storage.LikesSortType
	case "":
	default:
		return nil, fmt.Errorf("%w: invalid sortBy", errInvalidRequest)
	}

	switch orderBy := storage.OrderType(q.Get("sortDirection")); orderBy {
	case storage.AscendingOrder, storage.DescendingOrder:
		out.OrderBy = orderBy
	case "":
	default:
		return nil, fmt.Errorf("%w: invalid sortDirection", errInvalidRequest)
	}

	switch f := storage.OwnerFilterType(q.Get("filterByOwner")); f {
	case storage.AllOwnerFilter, storage.MineOwnerFilter, storage.OthersOwnerFilter:
		out.OwnerFilter = f
	case "":
	default:
		return nil, fmt.Errorf("%w: invalid filterByOwner", errInvalidRequest)
	}

	if s := q.Get("hashtag"); s != "" {
		out.Hashtag = &s
	}

	if s := q.Get("userId"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse userId", errInvalidRequest)
		}

		out.Owner = v
	}

	if s := q.Get("page"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("%w: invalid page", errInvalidRequest)
		}

		out.Page = v
	}

	if s := q.Get("pageSize"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("%w: invalid pageSize", errInvalidRequest)
		}

		if v > maxPageSize {
			return nil, fmt.Errorf("%w: pageSize is too big", errInvalidRequest)
		}

		out.PageSize = v
	}

	return &out, nil
}

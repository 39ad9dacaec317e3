package api

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/pkg/httputil"
	"github.com/ignite/billingd/internal/service/user"
)

type createUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Age   *int   `json:"age"`
}

// patchUserRequest keeps each field as raw JSON so the handler can tell an
// absent key (leave unchanged) from an explicit null (clear) from a value.
type patchUserRequest struct {
	Email json.RawMessage `json:"email"`
	Name  json.RawMessage `json:"name"`
	Age   json.RawMessage `json:"age"`
}

// field decodes one raw JSON value into a tri-state Field. A missing key
// arrives as a nil RawMessage and stays unset.
func field[T any](raw json.RawMessage) (domain.Field[T], error) {
	if len(raw) == 0 {
		return domain.Field[T]{}, nil
	}
	if string(raw) == "null" {
		return domain.Null[T](), nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.Field[T]{}, err
	}
	return domain.Set(v), nil
}

func (req patchUserRequest) toPatch() (domain.UserPatch, error) {
	var patch domain.UserPatch
	var err error
	if patch.Email, err = field[string](req.Email); err != nil {
		return patch, err
	}
	if patch.Name, err = field[string](req.Name); err != nil {
		return patch, err
	}
	if patch.Age, err = field[int](req.Age); err != nil {
		return patch, err
	}
	return patch, nil
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	u, err := s.users.Create(r.Context(), user.CreateInput{
		Email: req.Email,
		Name:  req.Name,
		Age:   req.Age,
	})
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.Created(w, u)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.OK(w, u)
}

func (s *Server) patchUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req patchUserRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		httputil.BadRequest(w, "invalid field value: "+err.Error())
		return
	}

	u, err := s.users.Patch(r.Context(), id, patch)
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.OK(w, u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.NoContent(w)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	users, total, err := s.users.List(r.Context(), limit, offset)
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.OK(w, listResponse{Items: users, Total: total, Limit: limit, Offset: offset})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/auth"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/middleware"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/response"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/validator"
)

const maxJSONBody = 1 << 20

var kindStatus = map[domain.ErrorKind]struct {
	status int
	code   string
}{
	domain.KindValidation:    {http.StatusBadRequest, "VALIDATION_ERROR"},
	domain.KindNotFound:      {http.StatusNotFound, "NOT_FOUND"},
	domain.KindAuthorization: {http.StatusForbidden, "FORBIDDEN"},
	domain.KindConflict:      {http.StatusBadRequest, "CONFLICT"},
	domain.KindState:         {http.StatusForbidden, "INVALID_STATE"},
}

// writeError maps an engine error onto the response envelope. Anything
// untyped is logged and reported as a 500 without its message.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", verrs)
		return
	case errors.Is(err, domain.ErrUserAlreadyExists):
		response.Error(w, http.StatusBadRequest, "CONFLICT", "a user with this email already exists")
		return
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(w, "invalid email or password")
		return
	case errors.Is(err, auth.ErrExpiredToken):
		response.Unauthorized(w, "token has expired")
		return
	case errors.Is(err, auth.ErrInvalidToken):
		response.Unauthorized(w, "invalid token")
		return
	case errors.Is(err, context.Canceled):
		return
	}

	if m, ok := kindStatus[domain.KindOf(err)]; ok {
		var derr *domain.Error
		errors.As(err, &derr)
		response.Error(w, m.status, m.code, derr.Message)
		return
	}

	logger.Error(op+" failed", zap.Error(err))
	response.InternalError(w, op+" failed")
}

// decodeJSON reads a bounded JSON body into dst and validates its tags
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validation("invalid request body")
	}
	return validator.Struct(dst)
}

func actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := middleware.GetActor(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
	}
	return a, ok
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// optionalID parses an optional uuid; an empty value yields nil
func optionalID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.Validation("invalid id %q", raw)
	}
	return &id, nil
}

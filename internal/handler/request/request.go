// Package request reads the values the auth middleware and the router put
// on a request, and writes JSON responses.
package request

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/service"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/theplant/luhn"
)

const (
	UserIDHeader   = "User-ID"
	UserRoleHeader = "User-Role"
)

func UserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.Header.Get(UserIDHeader), 10, 64)
}

func Requester(r *http.Request) (service.Requester, error) {
	userID, err := UserID(r)
	if err != nil {
		return service.Requester{}, err
	}
	return service.Requester{UserID: userID, Admin: r.Header.Get(UserRoleHeader) == domain.RoleAdmin}, nil
}

// ID parses a positive integer URL parameter.
func ID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// OrderNumber reads the {number} URL parameter. It writes the error
// response itself and reports false when the number is malformed.
func OrderNumber(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "number")
	number, err := strconv.Atoi(raw)
	if err != nil || number <= 0 {
		logger.Log.Warn("invalid order number", logger.String("order", raw))
		http.Error(w, "invalid order number", http.StatusBadRequest)
		return "", false
	}

	if ok := luhn.Valid(number); !ok {
		logger.Log.Warn("invalid order number, Luhn check failed", logger.String("order", raw))
		http.Error(w, "invalid order number", http.StatusUnprocessableEntity)
		return "", false
	}

	return raw, true
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("error while encoding response to JSON", logger.Error(err))
	}
}

func DecodeJSON(r *http.Request, v any) error {
	defer CloseBody(r.Body)
	return json.NewDecoder(r.Body).Decode(v)
}

func CloseBody(body io.ReadCloser) {
	err := body.Close()
	if err != nil {
		logger.Log.Error("error while closing request body", logger.Error(err))
	}
}

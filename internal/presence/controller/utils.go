package controller

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

func parseLimit(r *http.Request) (limit int, err error) {
	limit = defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, errors.New("invalid 'limit' (expected integer)")
		}
		if n <= 0 {
			return 0, errors.New("'limit' must be > 0")
		}
		if n > maxLimit {
			return 0, errors.New("'limit' must be <= 1000")
		}
		limit = n
	}
	return limit, nil
}

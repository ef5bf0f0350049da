package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/koustreak/restadmin/internal/errs"
)

// apiError is the structured error body the backend returns on rejections.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// columnPattern extracts the column name a constraint violation refers to
// from the backend's error text, e.g.
// `null value in column "title" violates not-null constraint`.
var columnPattern = regexp.MustCompile(`column "([^"]+)"`)

// mapAPIError translates a non-2xx response into the typed error taxonomy.
func mapAPIError(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.New(errs.ErrKindAuth, fmt.Sprintf("server returned %d", status))
	case http.StatusNotFound:
		return errs.New(errs.ErrKindNotFound, "no such resource")
	}

	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Message != "" {
		column := ""
		if m := columnPattern.FindStringSubmatch(ae.Message); m != nil {
			column = m[1]
		}
		return errs.Rejection(ae.Code, column, ae.Message)
	}
	return errs.New(errs.ErrKindTransport,
		fmt.Sprintf("server returned %d with an unreadable body", status))
}

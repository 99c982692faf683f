package models

import (
	"encoding/json"
	"net/http"
	"time"
)

// Endpoint is a stored mapping from a (url, method) pair to the JSON
// payload served when a matching request arrives.
type Endpoint struct {
	ID         int64           `json:"id"`
	URL        string          `json:"url"`
	MethodHTTP string          `json:"methodHttp"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

var allowedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodDelete:  {},
	http.MethodPatch:   {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

// ValidMethod reports whether m is one of the HTTP methods an endpoint
// can be registered under. m must already be uppercased.
func ValidMethod(m string) bool {
	_, ok := allowedMethods[m]
	return ok
}

package models

import (
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewAPIKey generates a management API key for servers started without
// a configured one.
func NewAPIKey() string {
	t := time.Now()
	entropy := ulid.Monotonic(mrand.New(mrand.NewSource(t.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return fmt.Sprintf("mk_%s", id.String())
}

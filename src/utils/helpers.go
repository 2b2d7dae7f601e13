package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"signup/src/types"

	"github.com/google/uuid"
)

func IsProd() bool {
	return os.Getenv("API_ENV") == string(types.Production)
}

// NewOrderNumber builds a human-readable, never-reused order identifier,
// e.g. ORD-20260830-9F3C21.
func NewOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

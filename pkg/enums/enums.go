// Package enums holds the closed value sets shared by the order service and
// its event contracts.
package enums

import (
	"fmt"
	"strings"
)

// InvalidStateError reports a state value that is not part of its enumeration.
// Kind is "order" or "item".
type InvalidStateError struct {
	Kind  string
	Value string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid %s state %q", e.Kind, e.Value)
}

// Label turns an upper snake case code into a display label,
// e.g. IN_PREPARAZIONE becomes "In Preparazione".
func Label(code string) string {
	parts := strings.Split(strings.ToLower(code), "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

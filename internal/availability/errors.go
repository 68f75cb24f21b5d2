package availability

import "errors"

// errNotChecked marks a monitor that has not completed a health check yet.
var errNotChecked = errors.New("availability: no health check completed yet")

// unavailableError carries the failure of the last health check.
type unavailableError struct {
	msg string
}

func (e *unavailableError) Error() string {
	return "availability: " + e.msg
}

package routeros

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes the failure classes of a device call so callers can
// decide retry-ability and operators get specific messages.
type ErrorKind string

const (
	// KindConnectivity covers unreachable hosts, timeouts and broken transports.
	KindConnectivity ErrorKind = "connectivity"
	// KindAuthentication covers rejected device credentials.
	KindAuthentication ErrorKind = "authentication"
	// KindDevice covers requests the device understood but rejected.
	KindDevice ErrorKind = "device"
)

// Error is the typed failure returned by every client operation.
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("routeros %s: %s failed: status=%d %s", e.Kind, e.Op, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("routeros %s: %s failed: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("routeros %s: %s failed: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err is a transport-level device failure.
func IsConnectivity(err error) bool {
	return errKindIs(err, KindConnectivity)
}

// IsAuthentication reports whether err is a credential failure.
func IsAuthentication(err error) bool {
	return errKindIs(err, KindAuthentication)
}

// IsDevice reports whether the device rejected an otherwise delivered request.
func IsDevice(err error) bool {
	return errKindIs(err, KindDevice)
}

func errKindIs(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

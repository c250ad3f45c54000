// Package status implements the canonical-code, vendor-error-space status
// carrier used across the chassis manager in place of plain errors. It gives
// every collaborator interface a uniform success/error type with an optional
// machine-readable payload, mirroring the union of a coarse gRPC-style code
// and an ASIC-vendor error space.
package status

import (
	"fmt"
)

// Code is a coarse canonical status code, modeled on the well known gRPC
// code set.
type Code int

const (
	CodeOK Code = iota
	Cancelled
	Unknown
	InvalidArgument
	DeadlineExceeded
	NotFound
	AlreadyExists
	PermissionDenied
	Unauthenticated
	ResourceExhausted
	FailedPrecondition
	Aborted
	OutOfRange
	Unimplemented
	Internal
	Unavailable
	DataLoss
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case Cancelled:
		return "CANCELLED"
	case Unknown:
		return "UNKNOWN"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case DeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case NotFound:
		return "NOT_FOUND"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case ResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case FailedPrecondition:
		return "FAILED_PRECONDITION"
	case Aborted:
		return "ABORTED"
	case OutOfRange:
		return "OUT_OF_RANGE"
	case Unimplemented:
		return "UNIMPLEMENTED"
	case Internal:
		return "INTERNAL"
	case Unavailable:
		return "UNAVAILABLE"
	case DataLoss:
		return "DATA_LOSS"
	default:
		return "UNKNOWN_CODE"
	}
}

// VendorCode names an error within a vendor-specific error space. The
// chassis manager defines its own space; collaborators may define others.
type VendorCode int

const (
	// NoVendorCode marks a Status carrying only a canonical Code.
	NoVendorCode VendorCode = iota
	RebootRequired
	NotInitialized
	InvalidParam
	EntryNotFound
)

func (v VendorCode) String() string {
	switch v {
	case NoVendorCode:
		return ""
	case RebootRequired:
		return "REBOOT_REQUIRED"
	case NotInitialized:
		return "NOT_INITIALIZED"
	case InvalidParam:
		return "INVALID_PARAM"
	case EntryNotFound:
		return "ENTRY_NOT_FOUND"
	default:
		return "UNKNOWN_VENDOR_CODE"
	}
}

// ChassisErrorSpace names the namespace the chassis manager's VendorCodes belong to.
const ChassisErrorSpace = "bcmchassis"

// payload is the immutable, copy-on-write body of a non-OK Status. Status
// values sharing a payload pointer are read-only aliases of one another;
// any mutator on Status must clone the payload before writing to it.
type payload struct {
	code       Code
	vendorCode VendorCode
	errorSpace string
	message    string
	detail     interface{}
}

// ok is the process-wide OK singleton. It carries no payload and is never
// copy-on-write cloned: Status.p == nil is the OK representation.
var ok = Status{}

// Status is a value type: copying a Status never allocates when it aliases
// OK (p == nil), and otherwise shares the pointee payload until mutated.
type Status struct {
	p *payload
}

// OK returns the process-wide allocation-free success value.
func OK() Status { return ok }

// IsOK reports whether s carries no error.
func (s Status) IsOK() bool { return s.p == nil }

// New constructs a non-OK status in the default canonical error space.
func New(code Code, format string, args ...interface{}) Status {
	if code == CodeOK {
		return ok
	}
	return Status{p: &payload{
		code:       code,
		errorSpace: "generic",
		message:    fmt.Sprintf(format, args...),
	}}
}

// NewVendor constructs a non-OK status tagged with a vendor error code in
// the given error space, in addition to its canonical code.
func NewVendor(code Code, errorSpace string, vendorCode VendorCode, format string, args ...interface{}) Status {
	return Status{p: &payload{
		code:       code,
		vendorCode: vendorCode,
		errorSpace: errorSpace,
		message:    fmt.Sprintf(format, args...),
	}}
}

// Internalf is shorthand for the frequent INTERNAL canonical code.
func Internalf(format string, args ...interface{}) Status {
	return New(Internal, format, args...)
}

// RebootRequiredf constructs the vendor-specific guidance status verify
// returns when a pushed config would require a reboot to take effect.
func RebootRequiredf(format string, args ...interface{}) Status {
	return NewVendor(FailedPrecondition, ChassisErrorSpace, RebootRequired, format, args...)
}

// NotInitializedf constructs the vendor-specific status returned by queries
// made before the first successful push.
func NotInitializedf(format string, args ...interface{}) Status {
	return NewVendor(FailedPrecondition, ChassisErrorSpace, NotInitialized, format, args...)
}

// Code returns the canonical code, OK for the zero value.
func (s Status) Code() Code {
	if s.p == nil {
		return CodeOK
	}
	return s.p.code
}

// VendorCode returns the vendor-specific code, or NoVendorCode if none was
// attached.
func (s Status) VendorCode() VendorCode {
	if s.p == nil {
		return NoVendorCode
	}
	return s.p.vendorCode
}

// ErrorSpace returns the error space the status's codes belong to.
func (s Status) ErrorSpace() string {
	if s.p == nil {
		return ""
	}
	return s.p.errorSpace
}

// Message returns the human-readable message, empty for OK.
func (s Status) Message() string {
	if s.p == nil {
		return ""
	}
	return s.p.message
}

// Is reports whether s carries the given vendor code.
func (s Status) Is(v VendorCode) bool {
	return s.p != nil && s.p.vendorCode == v
}

// WithDetail returns a copy of s carrying an arbitrary structured payload,
// cloning the underlying payload first (copy-on-write) so other aliases of
// s are unaffected.
func (s Status) WithDetail(detail interface{}) Status {
	if s.p == nil {
		// Attaching a detail to OK promotes it to a (still successful
		// in canonical-code terms) annotated status is disallowed:
		// OK never carries a payload.
		return s
	}
	clone := *s.p
	clone.detail = detail
	return Status{p: &clone}
}

// Detail returns the structured payload previously attached with
// WithDetail, or nil.
func (s Status) Detail() interface{} {
	if s.p == nil {
		return nil
	}
	return s.p.detail
}

// Error implements the error interface so Status composes with errors.Is,
// errors.As and fmt.Errorf("%w", ...) at package boundaries that expect a
// plain error.
func (s Status) Error() string {
	if s.p == nil {
		return "OK"
	}
	if s.p.vendorCode != NoVendorCode {
		return fmt.Sprintf("%s::%s: %s", s.p.errorSpace, s.p.vendorCode, s.p.message)
	}
	return fmt.Sprintf("%s: %s", s.p.code, s.p.message)
}

// ToError returns nil for OK and s itself (as an error) otherwise, the
// conventional bridge at a function boundary that must return a plain
// error.
func (s Status) ToError() error {
	if s.IsOK() {
		return nil
	}
	return s
}

// Append folds other into s when other is not OK, used by Shutdown to
// accumulate collaborator errors instead of short-circuiting on the first
// one. Appending to OK returns other; appending OK to s returns s
// unchanged; appending two non-OK statuses concatenates their messages and
// keeps the first's code.
func (s Status) Append(other Status) Status {
	if other.IsOK() {
		return s
	}
	if s.IsOK() {
		return other
	}
	return Status{p: &payload{
		code:       s.p.code,
		vendorCode: s.p.vendorCode,
		errorSpace: s.p.errorSpace,
		message:    s.p.message + "; " + other.p.message,
	}}
}

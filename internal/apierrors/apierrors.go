// Package apierrors defines the RPC-level error taxonomy shared by every
// daemon, client and registry operation (spec.md §6, §7).
package apierrors

import "errors"

// Code is the internal RPC-level error space. It is distinct from the
// POSIX errno the (out of scope) interception layer would eventually
// surface; the forwarders only need to distinguish these cases to decide
// how to reduce a fan-out.
type Code int

const (
	Success Code = iota
	Busy         // transport failure, not retried within a single operation
	IOErr        // bulk transfer or fan-out reduction failure
	NotFound
	Exists
	NotDir
	NotEmpty
	PermissionDenied
	Corrupt // merge resolution found no base and no leading create
)

func (c Code) String() string {
	switch c {
	case Success:
		return "0"
	case Busy:
		return "EBUSY"
	case IOErr:
		return "EIO"
	case NotFound:
		return "ENOENT"
	case Exists:
		return "EEXIST"
	case NotDir:
		return "ENOTDIR"
	case NotEmpty:
		return "ENOTEMPTY"
	case PermissionDenied:
		return "EACCES"
	case Corrupt:
		return "ECORRUPT"
	default:
		return "EUNKNOWN"
	}
}

var (
	ErrBusy             = errors.New(Busy.String())
	ErrIO               = errors.New(IOErr.String())
	ErrNotFound         = errors.New(NotFound.String())
	ErrExists           = errors.New(Exists.String())
	ErrNotDir           = errors.New(NotDir.String())
	ErrNotEmpty         = errors.New(NotEmpty.String())
	ErrPermissionDenied = errors.New(PermissionDenied.String())
	ErrCorrupt          = errors.New(Corrupt.String())

	// These two have no dedicated Code; ToCode reports them as IOErr.
	ErrInvalidShardID = errors.New("invalid shard id")
	ErrListNumExceed  = errors.New("list num exceeds the allowed maximum")
)

// ToCode maps a sentinel error to its wire code, defaulting to IOErr for
// anything unrecognized (propagation policy, spec.md §7: an opaque local
// failure still has to resolve to a fan-out failure).
func ToCode(err error) Code {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrBusy):
		return Busy
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrExists):
		return Exists
	case errors.Is(err, ErrNotDir):
		return NotDir
	case errors.Is(err, ErrNotEmpty):
		return NotEmpty
	case errors.Is(err, ErrPermissionDenied):
		return PermissionDenied
	case errors.Is(err, ErrCorrupt):
		return Corrupt
	default:
		return IOErr
	}
}

// FromCode is the inverse of ToCode, used by forwarders decoding a daemon
// reply back into a Go error.
func FromCode(c Code) error {
	switch c {
	case Success:
		return nil
	case Busy:
		return ErrBusy
	case NotFound:
		return ErrNotFound
	case Exists:
		return ErrExists
	case NotDir:
		return ErrNotDir
	case NotEmpty:
		return ErrNotEmpty
	case PermissionDenied:
		return ErrPermissionDenied
	case Corrupt:
		return ErrCorrupt
	default:
		return ErrIO
	}
}

// Package vkerr implements the error taxonomy of spec.md §7 over the
// teacher's own newError/orPanic/checkErr helpers (errors.go), kept
// verbatim in spirit but exported and generalized so every package in
// this module shares one vocabulary for "what kind of failure was this".
package vkerr

import (
	"errors"
	"fmt"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// Recoverable wraps a per-frame failure that the caller should treat as
// "try again next tick" (spec.md §7: image acquisition failed, fence
// wait timed out, swap-chain out of date). backend.System.NextFrame
// returns (false, nil) rather than panicking when it encounters one.
type Recoverable struct {
	Op  string
	Err error
}

func (r *Recoverable) Error() string { return fmt.Sprintf("%s: recoverable: %v", r.Op, r.Err) }
func (r *Recoverable) Unwrap() error { return r.Err }

// NewRecoverable wraps err as a Recoverable failure for op.
func NewRecoverable(op string, err error) error {
	return &Recoverable{Op: op, Err: err}
}

// IsRecoverable reports whether err (or anything it wraps) is a
// Recoverable failure.
func IsRecoverable(err error) bool {
	var r *Recoverable
	return errors.As(err, &r)
}

// Result converts a vk.Result into a Go error, or nil on vk.Success.
// This generalizes the teacher's isError/newError pair (errors.go).
func Result(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	if pc, _, _, ok := runtime.Caller(1); ok {
		fn := runtime.FuncForPC(pc)
		name := "unknown"
		if fn != nil {
			name = fn.Name()
		}
		return fmt.Errorf("vulkan error: %d in %s", ret, name)
	}
	return fmt.Errorf("vulkan error: %d", ret)
}

// IsSuboptimalOrOutOfDate reports whether ret is one of the two
// non-fatal present/acquire results spec.md §4.1/§4.2 calls out as
// "mark needs_recreation" rather than an error.
func IsSuboptimalOrOutOfDate(ret vk.Result) bool {
	return ret == vk.Suboptimal || ret == vk.ErrorOutOfDate
}

// ErrSurfaceFormatUnsupported is returned instead of asserting (spec.md
// §9 second Open Question) when a device does not support
// TRANSFER|SAMPLED|RENDER usage on the engine's designated surface
// format.
var ErrSurfaceFormatUnsupported = errors.New("vkerr: surface format does not support required usage flags on this device")

// ErrUnknownDevice is a user-input error (spec.md §7): selecting a
// device index outside the enumerated set.
var ErrUnknownDevice = errors.New("vkerr: unknown physical device")

// ErrDeviceAlreadySelected is a user-input error: selecting a device
// after one was already bound to this backend instance.
var ErrDeviceAlreadySelected = errors.New("vkerr: a device has already been selected")

// ErrNoApplicationSystem is a user-input error: attempting to create a
// surface with no application-system collaborator registered.
var ErrNoApplicationSystem = errors.New("vkerr: no application-system present to bind a surface to")

// ErrInvalidTransferTarget is a user-input error: scheduling an upload
// into a buffer type that cannot legally be a transfer destination
// (spec.md §4.2 step 2, read-back-storage buffers).
var ErrInvalidTransferTarget = errors.New("vkerr: buffer type is not a valid transfer target")

// ErrFramebufferAttachmentNotReady is returned for a framebuffer-creation
// request naming an attachment that has not resolved to a live image yet
// (spec.md §4.3's buildability precondition).
var ErrFramebufferAttachmentNotReady = errors.New("vkerr: framebuffer attachment is not ready")

// ErrFramebufferGeometryMismatch is returned for a framebuffer-creation
// request whose attachments do not all share the request's width/height.
var ErrFramebufferGeometryMismatch = errors.New("vkerr: framebuffer attachments do not share the same width and height")

// ErrFramebufferUnknownPass is returned for a framebuffer-creation
// request naming a render pass that has not been registered with the
// recorder.
var ErrFramebufferUnknownPass = errors.New("vkerr: framebuffer request names an unknown render pass")

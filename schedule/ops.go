package schedule

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// BufferTransfer is a scheduled upload or in-place write into a buffer
// (spec.md §4.2's transfer phase). A non-in-place transfer carries the
// staging allocation the caller already wrote its payload into
// (stagealloc.Allocator.Allocate gives back exactly this Buffer/Offset
// pair plus a mapped Data view) so the transfer phase can record the
// actual device-side copy instead of only a barrier.
type BufferTransfer struct {
	Target        uint64 // resources.ID packed form, kept opaque to this package
	StagingBuffer vk.Buffer
	StagingOffset vk.DeviceSize
	Size          vk.DeviceSize
	InPlace       bool // true for a direct host write, false for a staged copy
}

// ImageUpload is a scheduled image copy/upload into mip level 0,
// optionally followed by mip-chain generation (spec.md §4.2/§4.3). As
// with BufferTransfer, StagingBuffer/StagingOffset name the host-visible
// staging allocation the pixel data was already written into.
type ImageUpload struct {
	Target        uint64
	StagingBuffer vk.Buffer
	StagingOffset vk.DeviceSize
	Width, Height uint32
	GenerateMips  bool
}

// ImageCopy is a scheduled device-to-device image copy (spec.md §4.2
// step 2), distinct from ImageUpload's host-to-device staging copy.
type ImageCopy struct {
	Source        uint64
	Target        uint64
	Width, Height uint32
}

// FramebufferResult is the caller-visible handle a scheduled
// framebuffer-creation request resolves into once the graphics phase has
// processed it. Handles holds one vk.Framebuffer per swap-chain image
// when the request has a surface attachment, or a single entry
// otherwise, mirroring spec.md §4.3's "one per swap-chain image vs. one"
// split.
type FramebufferResult struct {
	mu      sync.Mutex
	ready   bool
	err     error
	Handles []vk.Framebuffer
}

// NewFramebufferResult builds an unresolved result for a caller to attach
// to a FramebufferRequest before scheduling it.
func NewFramebufferResult() *FramebufferResult { return &FramebufferResult{} }

// Resolve records the outcome of processing the request. Called once by
// the graphics phase; a second call is a caller bug, so it overwrites
// rather than guarding, matching the teacher's lack of any analogous
// sealed-after-first-write state elsewhere.
func (r *FramebufferResult) Resolve(handles []vk.Framebuffer, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Handles = handles
	r.err = err
	r.ready = true
}

// Ready reports whether the graphics phase has processed this request
// yet.
func (r *FramebufferResult) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Err reports why the request failed to build (unknown pass, unready or
// out-of-range attachment, mismatched geometry, Vulkan creation
// failure), or nil on success or if not yet resolved.
func (r *FramebufferResult) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// FramebufferRequest is a scheduled framebuffer-creation request
// belonging to the graphics phase (spec.md §4.3). Attachments are
// resource-ID-packed image targets in pass-attachment order.
// SurfaceSlot is the index within Attachments that the currently
// acquired swap-chain image fills; -1 means the framebuffer has no
// surface attachment at all. Result is filled in once the graphics
// phase has attempted to build it.
type FramebufferRequest struct {
	Pass          uint64
	Attachments   []uint64
	SurfaceSlot   int
	Width, Height uint32
	Result        *FramebufferResult
}

// OpLists holds one frame-slot's worth of scheduled operations, in the
// order spec.md §4 records them: buffer transfers, image uploads, image
// copies, framebuffer-creation requests, then read-backs (held
// separately in ReadBackList since each carries a caller-visible
// handle).
type OpLists struct {
	mu           sync.Mutex
	transfers    []BufferTransfer
	uploads      []ImageUpload
	copies       []ImageCopy
	framebuffers []FramebufferRequest
}

// NewOpLists builds an empty per-frame-slot op list set.
func NewOpLists() *OpLists { return &OpLists{} }

// ScheduleTransfer appends a buffer transfer.
func (o *OpLists) ScheduleTransfer(t BufferTransfer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transfers = append(o.transfers, t)
}

// ScheduleUpload appends an image upload.
func (o *OpLists) ScheduleUpload(u ImageUpload) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.uploads = append(o.uploads, u)
}

// ScheduleImageCopy appends a device-to-device image copy.
func (o *OpLists) ScheduleImageCopy(c ImageCopy) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.copies = append(o.copies, c)
}

// ScheduleFramebuffer appends a framebuffer-creation request.
func (o *OpLists) ScheduleFramebuffer(f FramebufferRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.framebuffers = append(o.framebuffers, f)
}

// DrainTransfers returns and clears the pending buffer transfers, for
// the submission pipeline's transfer phase to consume.
func (o *OpLists) DrainTransfers() []BufferTransfer {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.transfers
	o.transfers = nil
	return out
}

// DrainUploads returns and clears the pending image uploads.
func (o *OpLists) DrainUploads() []ImageUpload {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.uploads
	o.uploads = nil
	return out
}

// DrainImageCopies returns and clears the pending device-to-device image
// copies.
func (o *OpLists) DrainImageCopies() []ImageCopy {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.copies
	o.copies = nil
	return out
}

// DrainFramebuffers returns and clears the pending framebuffer-creation
// requests.
func (o *OpLists) DrainFramebuffers() []FramebufferRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.framebuffers
	o.framebuffers = nil
	return out
}

package submit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// newTestRecorder builds a Recorder with only the lookup tables
// buildOneFramebuffer's validation reads, bypassing New's device/command
// buffer requirement, the same device-free style frame_test.go's
// newTestScheduler uses for Scheduler.
func newTestRecorder() *Recorder {
	return &Recorder{
		RenderPasses: map[uint64]vk.RenderPass{1: vk.RenderPass(1)},
		Attachments:  map[uint64]AttachmentView{},
	}
}

func TestBuildOneFramebufferUnknownPass(t *testing.T) {
	r := newTestRecorder()
	_, err := r.buildOneFramebuffer(FramebufferRequest{Pass: 99, SurfaceSlot: -1})
	assert.ErrorIs(t, err, vkerr.ErrFramebufferUnknownPass)
}

func TestBuildOneFramebufferMissingAttachment(t *testing.T) {
	r := newTestRecorder()
	_, err := r.buildOneFramebuffer(FramebufferRequest{
		Pass: 1, Attachments: []uint64{7}, SurfaceSlot: -1, Width: 100, Height: 100,
	})
	assert.ErrorIs(t, err, vkerr.ErrFramebufferAttachmentNotReady)
}

func TestBuildOneFramebufferNotReadyAttachment(t *testing.T) {
	r := newTestRecorder()
	r.Attachments[7] = AttachmentView{Ready: false, Width: 100, Height: 100}
	_, err := r.buildOneFramebuffer(FramebufferRequest{
		Pass: 1, Attachments: []uint64{7}, SurfaceSlot: -1, Width: 100, Height: 100,
	})
	assert.ErrorIs(t, err, vkerr.ErrFramebufferAttachmentNotReady)
}

func TestBuildOneFramebufferGeometryMismatch(t *testing.T) {
	r := newTestRecorder()
	r.Attachments[7] = AttachmentView{Ready: true, Width: 200, Height: 200}
	_, err := r.buildOneFramebuffer(FramebufferRequest{
		Pass: 1, Attachments: []uint64{7}, SurfaceSlot: -1, Width: 100, Height: 100,
	})
	assert.ErrorIs(t, err, vkerr.ErrFramebufferGeometryMismatch)
}

func TestBuildOneFramebufferSurfaceSlotNoViews(t *testing.T) {
	r := newTestRecorder()
	_, err := r.buildOneFramebuffer(FramebufferRequest{
		Pass: 1, Attachments: []uint64{0}, SurfaceSlot: 0, Width: 100, Height: 100,
	})
	assert.ErrorIs(t, err, vkerr.ErrFramebufferAttachmentNotReady)
}

func TestBuildOneFramebufferSurfaceSlotGeometryMismatch(t *testing.T) {
	r := newTestRecorder()
	r.SurfaceViews = []vk.ImageView{1, 2}
	r.SurfaceWidth, r.SurfaceHeight = 200, 200
	_, err := r.buildOneFramebuffer(FramebufferRequest{
		Pass: 1, Attachments: []uint64{0}, SurfaceSlot: 0, Width: 100, Height: 100,
	})
	assert.ErrorIs(t, err, vkerr.ErrFramebufferGeometryMismatch)
}

func TestBuildOneFramebufferSurfaceSlotOutOfRange(t *testing.T) {
	r := newTestRecorder()
	r.SurfaceViews = []vk.ImageView{1}
	r.SurfaceWidth, r.SurfaceHeight = 100, 100
	r.Attachments[0] = AttachmentView{Ready: true, Width: 100, Height: 100}
	_, err := r.buildOneFramebuffer(FramebufferRequest{
		Pass: 1, Attachments: []uint64{0}, SurfaceSlot: 3, Width: 100, Height: 100,
	})
	assert.ErrorIs(t, err, vkerr.ErrFramebufferAttachmentNotReady)
}

func TestDstBarrierRejectsReadBackStorage(t *testing.T) {
	_, _, err := dstBarrier(UsageReadBackStorage)
	assert.ErrorIs(t, err, vkerr.ErrInvalidTransferTarget)
}

func TestDstBarrierKnownUsagesSucceed(t *testing.T) {
	for _, usage := range []bufferUsage{UsageAttribute, UsageIndex, UsageUniform, UsageStorage} {
		stage, access, err := dstBarrier(usage)
		assert.NoError(t, err)
		assert.NotZero(t, stage)
		assert.NotZero(t, access)
	}
}

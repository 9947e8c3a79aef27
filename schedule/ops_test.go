package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestOpListsDrainClearsAndReturnsInOrder(t *testing.T) {
	o := NewOpLists()
	o.ScheduleTransfer(BufferTransfer{Target: 1})
	o.ScheduleTransfer(BufferTransfer{Target: 2})

	drained := o.DrainTransfers()
	assert.Len(t, drained, 2)
	assert.EqualValues(t, 1, drained[0].Target)
	assert.EqualValues(t, 2, drained[1].Target)

	assert.Empty(t, o.DrainTransfers(), "a second drain before new scheduling must be empty")
}

func TestOpListsIndependentQueues(t *testing.T) {
	o := NewOpLists()
	o.ScheduleUpload(ImageUpload{Target: 5})
	o.ScheduleFramebuffer(FramebufferRequest{Pass: 9})

	assert.Empty(t, o.DrainTransfers())
	assert.Len(t, o.DrainUploads(), 1)
	assert.Len(t, o.DrainFramebuffers(), 1)
}

func TestOpListsImageCopyDrainClearsAndReturnsInOrder(t *testing.T) {
	o := NewOpLists()
	o.ScheduleImageCopy(ImageCopy{Source: 1, Target: 2})
	o.ScheduleImageCopy(ImageCopy{Source: 3, Target: 4})

	drained := o.DrainImageCopies()
	assert.Len(t, drained, 2)
	assert.EqualValues(t, 1, drained[0].Source)
	assert.EqualValues(t, 4, drained[1].Target)

	assert.Empty(t, o.DrainImageCopies(), "a second drain before new scheduling must be empty")
}

func TestFramebufferResultStartsUnresolved(t *testing.T) {
	r := NewFramebufferResult()
	assert.False(t, r.Ready())
	assert.NoError(t, r.Err())
	assert.Nil(t, r.Handles)
}

func TestFramebufferResultResolveRecordsOutcome(t *testing.T) {
	r := NewFramebufferResult()
	r.Resolve(nil, assert.AnError)
	assert.True(t, r.Ready())
	assert.Equal(t, assert.AnError, r.Err())

	r.Resolve([]vk.Framebuffer{1, 2}, nil)
	assert.True(t, r.Ready())
	assert.NoError(t, r.Err())
	assert.Equal(t, r.Handles, []vk.Framebuffer{1, 2})
}

package surface

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestSelectPresentModePicksFirstAvailablePreference(t *testing.T) {
	preference := []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate, vk.PresentModeFifo}
	available := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}

	assert.Equal(t, vk.PresentModeImmediate, selectPresentMode(preference, available))
}

func TestSelectPresentModeFallsBackToFifo(t *testing.T) {
	preference := []vk.PresentMode{vk.PresentModeMailbox}
	available := []vk.PresentMode{vk.PresentModeFifo}

	assert.Equal(t, vk.PresentModeFifo, selectPresentMode(preference, available))
}

func TestRenderStateStringCoversEveryValue(t *testing.T) {
	for state := ReceivedNoOutput; state <= Presented; state++ {
		assert.NotEqual(t, "UNKNOWN", state.String())
	}
}

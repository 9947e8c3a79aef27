package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionSetHasRequiredReportsMissing(t *testing.T) {
	set := NewExtensionSet(nil, []string{"VK_KHR_swapchain", "VK_KHR_maintenance1"}, []string{"VK_KHR_swapchain"})
	ok, missing := set.HasRequired()
	assert.False(t, ok)
	assert.Equal(t, []string{"VK_KHR_maintenance1"}, missing)
}

func TestExtensionSetEnabledUnionsRequiredAndWantedDeduped(t *testing.T) {
	set := NewExtensionSet(
		[]string{"VK_KHR_swapchain", "VK_EXT_debug_utils"},
		[]string{"VK_KHR_swapchain"},
		[]string{"VK_KHR_swapchain", "VK_EXT_debug_utils", "VK_KHR_maintenance1"},
	)
	enabled := set.Enabled()
	assert.ElementsMatch(t, []string{"VK_KHR_swapchain", "VK_EXT_debug_utils"}, enabled)
}

func TestExtensionSetEnabledDropsUnavailableWanted(t *testing.T) {
	set := NewExtensionSet([]string{"VK_EXT_missing"}, nil, []string{"VK_KHR_swapchain"})
	assert.Empty(t, set.Enabled())
}

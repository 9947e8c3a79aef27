package descpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/config"
)

func TestNewCarriesTunablesIntoAllocator(t *testing.T) {
	tun := config.DefaultTunables()
	var dev vk.Device
	a := New(dev, tun)
	assert.Equal(t, tun.DescriptorPoolMaxSets, a.maxSets)
	assert.Equal(t, len(tun.DescriptorPoolRatios), len(a.ratios))
	assert.Equal(t, 0, a.PoolCount(), "a freshly built allocator owns no pools yet")
}

package device

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
	"github.com/stretchr/testify/assert"
)

func memType(flags vk.MemoryPropertyFlagBits) vk.MemoryType {
	return vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(flags)}
}

func propsWith(types ...vk.MemoryType) vk.PhysicalDeviceMemoryProperties {
	var p vk.PhysicalDeviceMemoryProperties
	p.MemoryTypeCount = uint32(len(types))
	for i, t := range types {
		p.MemoryTypes[i] = t
	}
	return p
}

func TestClassifyMemorySeparateWhenNoDeviceLocalHostVisible(t *testing.T) {
	p := propsWith(
		memType(vk.MemoryPropertyDeviceLocalBit),
		memType(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	assert.Equal(t, Separate, ClassifyMemory(p))
}

func TestClassifyMemoryUnifiedWhenNotCoherent(t *testing.T) {
	p := propsWith(
		memType(vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit),
	)
	assert.Equal(t, Unified, ClassifyMemory(p))
}

func TestClassifyMemoryUnifiedCoherent(t *testing.T) {
	p := propsWith(
		memType(vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
	)
	assert.Equal(t, UnifiedCoherent, ClassifyMemory(p))
}

func TestFindMemoryTypeRespectsTypeBitsMask(t *testing.T) {
	p := propsWith(
		memType(vk.MemoryPropertyHostVisibleBit),
		memType(vk.MemoryPropertyDeviceLocalBit),
	)
	// typeBits only allows index 1, which lacks HostVisible.
	_, ok := FindMemoryType(p, 1<<1, vk.MemoryPropertyHostVisibleBit)
	assert.False(t, ok)

	idx, ok := FindMemoryType(p, 1<<0, vk.MemoryPropertyHostVisibleBit)
	assert.True(t, ok)
	assert.EqualValues(t, 0, idx)
}

func TestFindMemoryTypeFallbackRetriesWithoutWant(t *testing.T) {
	p := propsWith(memType(vk.MemoryPropertyDeviceLocalBit))
	idx, ok := FindMemoryTypeFallback(p, 1<<0, vk.MemoryPropertyHostVisibleBit)
	assert.True(t, ok)
	assert.EqualValues(t, 0, idx)
}

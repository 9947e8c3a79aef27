package resources

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// SamplerKey is the content address a sampler is cached under, every
// field that affects vk.SamplerCreateInfo's output, spec.md §2's
// "sampler (content-addressed cache)".
type SamplerKey struct {
	MagFilter, MinFilter vk.Filter
	AddressMode          vk.SamplerAddressMode
	MipmapMode           vk.SamplerMipmapMode
	MaxAnisotropy        float32
	MaxLod               float32
}

// SamplerCache deduplicates vk.Sampler objects by SamplerKey: requesting
// the same configuration twice returns the same handle, generalized
// from the teacher's per-texture ad hoc sampler creation (the teacher
// never reused samplers across textures with identical settings).
type SamplerCache struct {
	dev vk.Device
	mu  sync.Mutex
	by  map[SamplerKey]vk.Sampler
}

// NewSamplerCache builds an empty cache bound to dev.
func NewSamplerCache(dev vk.Device) *SamplerCache {
	return &SamplerCache{dev: dev, by: make(map[SamplerKey]vk.Sampler)}
}

// Get returns the sampler for key, creating it on first request.
func (c *SamplerCache) Get(key SamplerKey) (vk.Sampler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.by[key]; ok {
		return s, nil
	}

	anisotropyEnable := vk.Bool32(vk.False)
	if key.MaxAnisotropy > 1.0 {
		anisotropyEnable = vk.Bool32(vk.True)
	}

	var sampler vk.Sampler
	ret := vk.CreateSampler(c.dev, &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               key.MagFilter,
		MinFilter:               key.MinFilter,
		AddressModeU:            key.AddressMode,
		AddressModeV:            key.AddressMode,
		AddressModeW:            key.AddressMode,
		AnisotropyEnable:        anisotropyEnable,
		MaxAnisotropy:           key.MaxAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		MipmapMode:              key.MipmapMode,
		MaxLod:                  key.MaxLod,
	}, nil, &sampler)
	if ret != vk.Success {
		return vk.NullHandle, vkerr.Result(ret)
	}

	c.by[key] = sampler
	return sampler, nil
}

// Len reports how many distinct samplers have been created.
func (c *SamplerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.by)
}

// Destroy releases every cached sampler. Samplers have no per-frame
// lifetime concerns (they aren't bound to any single frame's data), so
// this is called once at shutdown rather than via the deferred
// destruction queue.
func (c *SamplerCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, s := range c.by {
		vk.DestroySampler(c.dev, s, nil)
		delete(c.by, key)
	}
}

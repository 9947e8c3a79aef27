package device

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// ExtensionSet negotiates a wanted/required list of names (instance
// extensions, device extensions, or validation layers) against what is
// actually available, the way the teacher's BaseInstanceExtensions /
// BaseDeviceExtensions / BaseLayerExtensions did, those three types
// were identical apart from how `actual` was queried, so here they
// collapse into one generic negotiator parameterized by the query.
type ExtensionSet struct {
	wanted   []string
	required []string
	actual   []string
}

// NewExtensionSet builds a negotiator. actual is the result of querying
// the platform (InstanceExtensions, DeviceExtensions, or
// ValidationLayers below).
func NewExtensionSet(wanted, required, actual []string) *ExtensionSet {
	return &ExtensionSet{wanted: wanted, required: required, actual: actual}
}

func missingFrom(names, actual []string) []string {
	var missing []string
	for _, want := range names {
		has := false
		for _, act := range actual {
			if want == act {
				has = true
				break
			}
		}
		if !has {
			missing = append(missing, want)
		}
	}
	return missing
}

// HasRequired reports whether every required name is available.
func (e *ExtensionSet) HasRequired() (bool, []string) {
	missing := missingFrom(e.required, e.actual)
	return len(missing) == 0, missing
}

// HasWanted reports whether every wanted (optional) name is available.
func (e *ExtensionSet) HasWanted() (bool, []string) {
	missing := missingFrom(e.wanted, e.actual)
	return len(missing) == 0, missing
}

// Enabled returns the de-duplicated union of required and wanted names
// that are actually available, what should be passed to
// vk.InstanceCreateInfo.PpEnabledExtensionNames or its device/layer
// equivalents.
func (e *ExtensionSet) Enabled() []string {
	seen := make(map[string]bool, len(e.required)+len(e.wanted))
	var enabled []string
	add := func(name string) {
		if seen[name] {
			return
		}
		for _, act := range e.actual {
			if act == name {
				seen[name] = true
				enabled = append(enabled, name)
				return
			}
		}
	}
	for _, r := range e.required {
		add(r)
	}
	for _, w := range e.wanted {
		add(w)
	}
	return enabled
}

// InstanceExtensions enumerates the Vulkan instance extensions
// available on the platform (spec.md §6 "enumerate required instance
// extensions" is asked of the platform collaborator; this is the
// device-side mirror used to validate what the loader itself reports).
func InstanceExtensions() ([]string, error) {
	var count uint32
	if ret := vk.EnumerateInstanceExtensionProperties("", &count, nil); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	list := make([]vk.ExtensionProperties, count)
	if ret := vk.EnumerateInstanceExtensionProperties("", &count, list); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	return extensionNames(list), nil
}

// DeviceExtensions enumerates the extensions available on gpu.
func DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	list := make([]vk.ExtensionProperties, count)
	if ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	return extensionNames(list), nil
}

// ValidationLayers enumerates the validation layers available on the
// platform.
func ValidationLayers() ([]string, error) {
	var count uint32
	if ret := vk.EnumerateInstanceLayerProperties(&count, nil); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	list := make([]vk.LayerProperties, count)
	if ret := vk.EnumerateInstanceLayerProperties(&count, list); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	names := make([]string, 0, len(list))
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

func extensionNames(list []vk.ExtensionProperties) []string {
	names := make([]string, 0, len(list))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names
}

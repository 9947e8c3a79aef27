// Package appsystem is the second out-of-scope collaborator spec.md §6
// names: "application-system: query window info by handle (size, id),
// add/remove a per-window resource binding that receives init/shutdown
// callbacks bound to the window's lifecycle." The backend never creates
// or owns windows itself; it asks this collaborator for window info and
// registers a binding so it is told when a window goes away.
package appsystem

import (
	"fmt"
	"sync"

	"github.com/vkforge/renderbackend/platform"
)

// WindowInfo is what the application-system reports for a given handle.
type WindowInfo struct {
	ID     string
	Width  int
	Height int
}

// Binding receives lifecycle callbacks for one window. Init is called
// once when the binding is registered (typically to create the surface
// and its attached swap-chain); Shutdown is called when the window is
// about to be destroyed (typically to tear the swap-chain down, after a
// device-wait-idle, per spec.md §4.8 destroy_swap_chain).
type Binding struct {
	Init     func(info WindowInfo) error
	Shutdown func(info WindowInfo)
}

// System is a minimal in-process application-system: it tracks window
// info by handle and the bindings registered against each handle. A real
// application embeds a much richer system; this one is enough to drive
// the backend's surface lifecycle in tests and the demo command.
type System struct {
	mu       sync.Mutex
	windows  map[platform.WindowHandle]WindowInfo
	bindings map[platform.WindowHandle][]*Binding
}

// New constructs an empty System.
func New() *System {
	return &System{
		windows:  make(map[platform.WindowHandle]WindowInfo),
		bindings: make(map[platform.WindowHandle][]*Binding),
	}
}

// RegisterWindow makes handle resolvable via WindowInfo. Call again with
// updated width/height when the native window resizes.
func (s *System) RegisterWindow(handle platform.WindowHandle, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[handle] = WindowInfo{
		ID:     fmt.Sprintf("window-%x", uintptr(handle)),
		Width:  width,
		Height: height,
	}
}

// WindowInfo queries window info by handle (spec.md §6).
func (s *System) WindowInfo(handle platform.WindowHandle) (WindowInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.windows[handle]
	return info, ok
}

// AddBinding registers b against handle and immediately invokes its Init
// callback with the window's current info (spec.md §6 "add ... a
// per-window resource binding that receives init/shutdown callbacks").
func (s *System) AddBinding(handle platform.WindowHandle, b *Binding) error {
	s.mu.Lock()
	info, ok := s.windows[handle]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("appsystem: unknown window handle %x", uintptr(handle))
	}
	s.bindings[handle] = append(s.bindings[handle], b)
	s.mu.Unlock()

	if b.Init != nil {
		return b.Init(info)
	}
	return nil
}

// RemoveWindow invokes Shutdown on every binding registered against
// handle, in registration order, then forgets the handle entirely. This
// is what a window-close event should trigger.
func (s *System) RemoveWindow(handle platform.WindowHandle) {
	s.mu.Lock()
	info, ok := s.windows[handle]
	bindings := s.bindings[handle]
	delete(s.windows, handle)
	delete(s.bindings, handle)
	s.mu.Unlock()

	if !ok {
		return
	}
	for _, b := range bindings {
		if b.Shutdown != nil {
			b.Shutdown(info)
		}
	}
}

package runtime

import (
	"fmt"
)

// This module implements a stack of frames.
// Frames are linked to their caller; the stack keeps the bottommost and the
// topmost frame.

// CallStack is a stack of frames, most recent call on top.
type CallStack struct {
	base *Frame
	tos  *Frame
	size int
}

// NewCallStack creates an empty call stack.
func NewCallStack() *CallStack {
	return &CallStack{}
}

func (cs *CallStack) String() string {
	return fmt.Sprintf("<call stack depth=%d>", cs.size)
}

// Size returns the number of frames on the stack.
func (cs *CallStack) Size() int {
	return cs.size
}

// Current gets the current frame of a stack (TOS).
func (cs *CallStack) Current() *Frame {
	if cs.tos == nil {
		panic("attempt to access frame from empty call stack")
	}
	return cs.tos
}

// Root gets the bottommost frame, executing the main code object.
func (cs *CallStack) Root() *Frame {
	if cs.base == nil {
		panic("attempt to access root frame from empty call stack")
	}
	return cs.base
}

// Push pushes a frame as TOS. The recent TOS becomes the frame's parent.
func (cs *CallStack) Push(f *Frame) {
	f.Parent = cs.tos
	if cs.tos == nil {
		cs.base = f
	}
	cs.tos = f
	cs.size++
	T().P("frame", f.Name).Debugf("pushing frame, call depth %d", cs.size)
}

// Pop pops the top-most frame. Returns the popped frame.
func (cs *CallStack) Pop() *Frame {
	if cs.tos == nil {
		panic("attempt to pop frame from empty call stack")
	}
	f := cs.tos
	T().Debugf("popping frame [%s]", f.Name)
	cs.tos = f.Parent
	if cs.tos == nil {
		cs.base = nil
	}
	cs.size--
	return f
}

// FindFrameForScope finds the top-most frame binding names in scope.
func (cs *CallStack) FindFrameForScope(scope *Scope) *Frame {
	for f := cs.tos; f != nil; f = f.Parent {
		if f.Scope == scope {
			return f
		}
	}
	return nil
}

// Each iterates over the frames, most recent call first.
func (cs *CallStack) Each(mapper func(*Frame)) {
	for f := cs.tos; f != nil; f = f.Parent {
		mapper(f)
	}
}

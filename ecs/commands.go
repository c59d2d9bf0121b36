package ecs

import "sync"

// Commands buffers structural changes requested while the world cannot be
// modified, such as from async update functions. The buffer is flushed
// after the async phase, before dead objects are reclaimed.
type Commands struct {
	mu               sync.Mutex
	creates          []createCommand
	deletes          []deleteCommand
	componentDeletes []ComponentHandle
	defers           []func()
}

type createCommand struct {
	desc GameObjectDesc
	then func(*GameObject)
}

type deleteCommand struct {
	object             GameObjectHandle
	deleteEmptyParents bool
}

// Commands returns the world's deferred command buffer. It is safe for
// concurrent use.
func (w *World) Commands() *Commands {
	return &w.commands
}

// CreateObject queues an object creation. then, if non-nil, is called with
// the new object once it exists.
func (c *Commands) CreateObject(desc GameObjectDesc, then func(*GameObject)) {
	c.mu.Lock()
	c.creates = append(c.creates, createCommand{desc: desc, then: then})
	c.mu.Unlock()
}

// DeleteObject queues an object deletion.
func (c *Commands) DeleteObject(h GameObjectHandle, deleteEmptyParents bool) {
	c.mu.Lock()
	c.deletes = append(c.deletes, deleteCommand{object: h, deleteEmptyParents: deleteEmptyParents})
	c.mu.Unlock()
}

// DeleteComponent queues a component deletion.
func (c *Commands) DeleteComponent(h ComponentHandle) {
	c.mu.Lock()
	c.componentDeletes = append(c.componentDeletes, h)
	c.mu.Unlock()
}

// Defer queues a function to run on the update goroutine.
func (c *Commands) Defer(fn func()) {
	c.mu.Lock()
	c.defers = append(c.defers, fn)
	c.mu.Unlock()
}

// Flush applies all queued commands to w and resets the buffer. Deletions
// run before creations; deferred functions run last.
func (c *Commands) Flush(w *World) {
	c.mu.Lock()
	creates, deletes, componentDeletes, defers := c.creates, c.deletes, c.componentDeletes, c.defers
	c.creates, c.deletes, c.componentDeletes, c.defers = nil, nil, nil, nil
	c.mu.Unlock()

	for _, cmd := range componentDeletes {
		w.DeleteComponent(cmd)
	}

	for _, cmd := range deletes {
		w.DeleteObjectNow(cmd.object, cmd.deleteEmptyParents)
	}

	for _, cmd := range creates {
		_, obj := w.CreateObject(cmd.desc)
		if cmd.then != nil {
			cmd.then(obj)
		}
	}

	for _, fn := range defers {
		fn()
	}
}

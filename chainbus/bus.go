/*
 * Copyright 2022 The AgentChain Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package chainbus provides the in-process event bus connecting the commit
// path to downstream work: a committed chain transaction publishes a topic
// that the DHT-op producer subscribes to. Publishing is fire-and-forget.
package chainbus

import (
	"sync"

	"github.com/pkg/errors"
)

// Handler is an event callback.
type Handler func(args ...interface{})

// Suber defines subscribing-related bus behavior.
type Suber interface {
	Subscribe(topic string, handler *Handler)
	SubscribeAsync(topic string, handler *Handler)
	Unsubscribe(topic string, handler *Handler) error
}

// Puber defines publishing-related bus behavior.
type Puber interface {
	Publish(topic string, args ...interface{})
	HasCallback(topic string) bool
	WaitAsync()
}

// Bus englobes subscribe and publish bus behavior.
type Bus interface {
	Suber
	Puber
}

type eventHandler struct {
	callback *Handler
	async    bool
}

// ChainBus is the default Bus implementation.
type ChainBus struct {
	lock     sync.Mutex
	handlers map[string][]*eventHandler
	wg       sync.WaitGroup
}

// New returns a new ChainBus with empty handlers.
func New() Bus {
	return &ChainBus{
		handlers: make(map[string][]*eventHandler),
	}
}

// Subscribe registers a synchronous handler for a topic: Publish waits for
// its return.
func (bus *ChainBus) Subscribe(topic string, handler *Handler) {
	bus.subscribe(topic, &eventHandler{callback: handler})
}

// SubscribeAsync registers an asynchronous handler for a topic: Publish
// never waits for it.
func (bus *ChainBus) SubscribeAsync(topic string, handler *Handler) {
	bus.subscribe(topic, &eventHandler{callback: handler, async: true})
}

func (bus *ChainBus) subscribe(topic string, handler *eventHandler) {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	bus.handlers[topic] = append(bus.handlers[topic], handler)
}

// Unsubscribe removes a handler registered for a topic. Returns an error if
// the topic has no such handler.
func (bus *ChainBus) Unsubscribe(topic string, handler *Handler) (err error) {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	handlers := bus.handlers[topic]
	for i, registered := range handlers {
		if registered.callback == handler {
			copy(handlers[i:], handlers[i+1:])
			handlers[len(handlers)-1] = nil
			bus.handlers[topic] = handlers[:len(handlers)-1]
			return
		}
	}
	return errors.Errorf("topic %s has no such handler", topic)
}

// HasCallback returns true if any handler is subscribed to the topic.
func (bus *ChainBus) HasCallback(topic string) bool {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	return len(bus.handlers[topic]) > 0
}

// Publish invokes every handler registered for a topic. Synchronous
// handlers run in the caller's goroutine; asynchronous ones are detached.
func (bus *ChainBus) Publish(topic string, args ...interface{}) {
	bus.lock.Lock()
	handlers := make([]*eventHandler, len(bus.handlers[topic]))
	copy(handlers, bus.handlers[topic])
	bus.lock.Unlock()

	for _, handler := range handlers {
		if handler.async {
			bus.wg.Add(1)
			go func(h *eventHandler) {
				defer bus.wg.Done()
				(*h.callback)(args...)
			}(handler)
		} else {
			(*handler.callback)(args...)
		}
	}
}

// WaitAsync blocks until all asynchronous handler invocations complete.
func (bus *ChainBus) WaitAsync() {
	bus.wg.Wait()
}

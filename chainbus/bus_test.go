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

package chainbus

import (
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	bus := New()
	if bus == nil {
		t.Log("chain bus not created!")
		t.Fail()
	}
}

func TestHasCallback(t *testing.T) {
	bus := New()
	handler := Handler(func(args ...interface{}) {})
	bus.Subscribe("/event/test", &handler)
	if bus.HasCallback("/event/test2") {
		t.Fail()
	}
	if !bus.HasCallback("/event/test") {
		t.Fail()
	}
}

func TestPublishSync(t *testing.T) {
	bus := New()
	var calls int
	handler := Handler(func(args ...interface{}) {
		calls++
		if len(args) != 2 {
			t.Errorf("handler got %d args, want 2", len(args))
		}
		if args[0].(int)+args[1].(int) != 3 {
			t.Errorf("handler got args %v", args)
		}
	})
	bus.Subscribe("/event/sum", &handler)
	bus.Publish("/event/sum", 1, 2)
	bus.Publish("/event/sum", 2, 1)
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}

func TestPublishAsync(t *testing.T) {
	bus := New()
	var calls int32
	handler := Handler(func(args ...interface{}) {
		atomic.AddInt32(&calls, 1)
	})
	bus.SubscribeAsync("/event/async", &handler)
	for i := 0; i < 10; i++ {
		bus.Publish("/event/async")
	}
	bus.WaitAsync()
	if got := atomic.LoadInt32(&calls); got != 10 {
		t.Errorf("handler ran %d times, want 10", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	var calls int
	handler := Handler(func(args ...interface{}) { calls++ })
	bus.Subscribe("/event/test", &handler)
	bus.Publish("/event/test")
	if err := bus.Unsubscribe("/event/test", &handler); err != nil {
		t.Errorf("unsubscribe: %v", err)
	}
	bus.Publish("/event/test")
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	if err := bus.Unsubscribe("/event/test", &handler); err == nil {
		t.Errorf("second unsubscribe should fail")
	}
	if err := bus.Unsubscribe("/event/unknown", &handler); err == nil {
		t.Errorf("unsubscribing an unknown topic should fail")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := New()
	bus.Publish("/event/nobody", "ignored")
}

package helpers

import "sync/atomic"

// Go's "sync.WaitGroup" does not allow calling "Add" concurrently with
// "Wait". The parallel sections of the pipeline sometimes discover more
// work while another goroutine is already waiting, so this is a minimal
// alternative that supports that. There is only ever a single waiter.
type ThreadSafeWaitGroup struct {
	counter int32
	channel chan struct{}
}

func MakeThreadSafeWaitGroup() *ThreadSafeWaitGroup {
	return &ThreadSafeWaitGroup{
		channel: make(chan struct{}, 1),
	}
}

func (wg *ThreadSafeWaitGroup) Add(delta int32) {
	if counter := atomic.AddInt32(&wg.counter, delta); counter == 0 {
		wg.channel <- struct{}{}
	} else if counter < 0 {
		panic("sync: negative WaitGroup counter")
	}
}

func (wg *ThreadSafeWaitGroup) Done() {
	wg.Add(-1)
}

func (wg *ThreadSafeWaitGroup) Wait() {
	<-wg.channel
}

package utils

import "sync"

// LoopMode is an universal working mode.
// If the struct has a LoopMode, its working logic runs in one or many long-term goroutines
// started through Go(). The struct calls StartWorking() in its setup function and Stop()
// in its cleanup function. Each long-term goroutine should work like:
/*
	for {
		select {
		case <-lm.D:
			return
		// case :...other goroutine logic
		}
	}
*/
type LoopMode struct {
	mutex     sync.Mutex
	working   bool
	stopped   bool
	waitGroup sync.WaitGroup

	// D is closed when the loop is stopped
	D chan struct{}
}

// NewLoop returns a LoopMode that is not working yet
func NewLoop() *LoopMode {
	return &LoopMode{
		D: make(chan struct{}),
	}
}

func (l *LoopMode) StartWorking() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if !l.stopped {
		l.working = true
	}
}

// Go runs f in a goroutine tracked by Stop()
func (l *LoopMode) Go(f func()) {
	l.waitGroup.Add(1)
	go func() {
		defer l.waitGroup.Done()
		f()
	}()
}

// Stop stops the long-term goroutines and waits for them.
// If it's not working, returns false; otherwise returns true.
func (l *LoopMode) Stop() bool {
	l.mutex.Lock()
	if !l.working {
		l.mutex.Unlock()
		return false
	}
	l.working = false
	l.stopped = true
	close(l.D)
	l.mutex.Unlock()

	l.waitGroup.Wait()
	return true
}

func (l *LoopMode) IsWorking() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.working
}

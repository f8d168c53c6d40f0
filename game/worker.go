package game

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

const workerInboxSize = 64

type command struct {
	run  func() error
	done chan error
}

// roomWorker executes the commands of one room in arrival order. pending
// counts commands handed to the worker but not finished yet; it is only
// changed under Coordinator.mu.
type roomWorker struct {
	code    string
	inbox   chan command
	pending int
}

// dispatch runs fn on the room's worker and waits for it. Workers start on
// demand and retire once they are idle and the room has no session.
func (c *Coordinator) dispatch(code string, fn func() error) error {
	c.mu.Lock()
	w, ok := c.workers[code]
	if !ok {
		w = &roomWorker{code: code, inbox: make(chan command, workerInboxSize)}
		c.workers[code] = w
		go c.runWorker(w)
	}
	w.pending++
	c.mu.Unlock()

	done := make(chan error, 1)
	w.inbox <- command{run: fn, done: done}
	return <-done
}

func (c *Coordinator) runWorker(w *roomWorker) {
	log.Debug().Str("room", w.code).Msg("room worker started")

	for cmd := range w.inbox {
		cmd.done <- c.execute(w.code, cmd.run)

		c.mu.Lock()
		w.pending--
		if w.pending == 0 && !c.sessions.Has(w.code) {
			delete(c.workers, w.code)
			c.mu.Unlock()
			log.Debug().Str("room", w.code).Msg("room worker retired")
			return
		}
		c.mu.Unlock()
	}
}

// execute isolates a failing command so it cannot take other rooms down.
func (c *Coordinator) execute(code string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("room", code).Interface("panic", r).Msg("room command panicked")
			err = fmt.Errorf("room %s: command panicked: %v", code, r)
		}
	}()
	return fn()
}

func (c *Coordinator) activeWorkers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.workers)
}

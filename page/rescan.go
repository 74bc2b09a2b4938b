package page

import (
	"context"
	"time"

	"github.com/hazyhaar/skylight/dom"
)

// rescanner coalesces external mutations: the task runs once the window
// passes with no new mutation, or immediately when maxBuffer accumulate.
type rescanner struct {
	window    time.Duration
	maxBuffer int
	in        chan dom.Mutation
	task      func(context.Context)
}

func newRescanner(window time.Duration, maxBuffer int, task func(context.Context)) *rescanner {
	return &rescanner{
		window:    window,
		maxBuffer: maxBuffer,
		in:        make(chan dom.Mutation, 64),
		task:      task,
	}
}

// notify never blocks; a full queue already guarantees a pending rescan.
func (r *rescanner) notify(m dom.Mutation) {
	select {
	case r.in <- m:
	default:
	}
}

func (r *rescanner) run(ctx context.Context) {
	var (
		pending int
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}
	defer stop()

	fire := func() {
		stop()
		if pending == 0 {
			return
		}
		pending = 0
		r.task(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.in:
			pending++
			if pending >= r.maxBuffer {
				fire()
				continue
			}
			stop()
			timer = time.NewTimer(r.window)
			timerC = timer.C
		case <-timerC:
			fire()
		}
	}
}

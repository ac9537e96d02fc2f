package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rtoskit/kernel-objects/kernel"
	"github.com/rtoskit/kernel-objects/lock"
	"github.com/rtoskit/kernel-objects/queue"
	"github.com/rtoskit/kernel-objects/ringbuf"
	"github.com/rtoskit/kernel-objects/task"
	"github.com/rtoskit/kernel-objects/timer"
	"github.com/rtoskit/kernel-objects/waitset"
)

// memberStat pairs a wait-set member with its consume action and a
// counter the viewer reads.
type memberStat struct {
	name    string
	kind    string
	member  waitset.Member
	consume func() bool
	count   atomic.Uint64
	destroy func()
}

// runner owns the scenario's objects and goroutines.
type runner struct {
	scn        *Scenario
	ws         *waitset.WaitSet
	members    []*memberStat
	timers     []*timer.Timer
	tasks      []*task.Task
	timerFires atomic.Uint64
	stop       chan struct{}
	done       chan struct{}
}

// startScenario builds every object the scenario names, wires them
// into one wait set, and starts the producer and consumer tasks.
func startScenario(scn *Scenario) (*runner, error) {
	r := &runner{
		scn:  scn,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	// Wait-set capacity: the sum of every member's maximum concurrent
	// event contribution.
	capacity := 0
	for _, q := range scn.Queues {
		capacity += q.Length
	}
	for _, rb := range scn.RingBuffers {
		// Smallest framed entry is 12 bytes, which bounds the
		// readable item count.
		capacity += rb.Size / 12
	}
	capacity += len(scn.Semaphores)
	if capacity == 0 {
		return nil, fmt.Errorf("scenario %q has no wait-set members", scn.Name)
	}
	r.ws = waitset.New(uint32(capacity))

	for _, spec := range scn.Queues {
		q := queue.New[uint64](spec.Length)
		ms := &memberStat{
			name:   spec.Name,
			kind:   "queue",
			member: q,
			consume: func() bool {
				_, ok := q.Pop(kernel.NoWait)
				return ok
			},
			destroy: q.Destroy,
		}
		r.members = append(r.members, ms)
		for p := 0; p < spec.Producers; p++ {
			r.startProducer(spec.Name, spec.Interval, func(seq uint64) {
				q.Add(seq, kernel.NoWait)
			})
		}
	}

	for _, spec := range scn.RingBuffers {
		spec := spec
		var (
			member  waitset.Member
			consume func() bool
			destroy func()
			send    func([]byte)
		)
		if spec.Split {
			rb := ringbuf.NewSplit(spec.Size)
			member, destroy = rb, rb.Destroy
			consume = func() bool {
				head, tail, ok := rb.ReceiveSplitFromISR()
				if ok {
					rb.Return(head)
					rb.Return(tail)
				}
				return ok
			}
			send = func(p []byte) { rb.Send(p, kernel.NoWait) }
		} else {
			rb := ringbuf.NewNoSplit(spec.Size)
			member, destroy = rb, rb.Destroy
			consume = func() bool {
				it, ok := rb.ReceiveFromISR()
				if ok {
					rb.Return(it)
				}
				return ok
			}
			send = func(p []byte) { rb.Send(p, kernel.NoWait) }
		}
		r.members = append(r.members, &memberStat{
			name:    spec.Name,
			kind:    "ring-buffer",
			member:  member,
			consume: consume,
			destroy: destroy,
		})
		r.startProducer(spec.Name, spec.Interval, func(seq uint64) {
			payload := make([]byte, 8+int(seq%24))
			send(payload)
		})
	}

	for _, spec := range scn.Semaphores {
		sem := lock.NewBinarySemaphore()
		r.members = append(r.members, &memberStat{
			name:   spec.Name,
			kind:   "binary-semaphore",
			member: sem,
			consume: func() bool {
				ok, _ := sem.TakeFromISR()
				return ok
			},
			destroy: sem.Destroy,
		})
		r.startProducer(spec.Name, spec.Interval, func(uint64) {
			sem.Give()
		})
	}

	for _, ms := range r.members {
		if !r.ws.Add(ms.member) {
			return nil, fmt.Errorf("member %q did not attach", ms.name)
		}
	}

	for _, spec := range scn.Timers {
		tm := timer.New(spec.Name, kernel.TicksFor(spec.Period), true, func(*timer.Timer) {
			r.timerFires.Add(1)
		})
		tm.Start()
		r.timers = append(r.timers, tm)
	}

	r.tasks = append(r.tasks, task.Create("kobjtop-consumer", 1, r.consumerLoop))
	kernel.Logger().Info("scenario started",
		zap.String("name", scn.Name),
		zap.Int("members", len(r.members)),
		zap.Int("capacity", capacity))
	return r, nil
}

func (r *runner) startProducer(name string, interval time.Duration, produce func(uint64)) {
	t := task.Create("producer-"+name, 1, func(*task.Task) {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		var seq uint64
		for {
			select {
			case <-r.stop:
				return
			case <-tick.C:
				produce(seq)
				seq++
			}
		}
	})
	r.tasks = append(r.tasks, t)
}

// consumerLoop is the scenario's single event consumer: one select
// loop dispatching every member behind the shared wait set.
func (r *runner) consumerLoop(*task.Task) {
	defer close(r.done)
	budget := kernel.TicksFor(50 * time.Millisecond)
	for {
		token := r.ws.Select(budget)
		if token == waitset.None {
			select {
			case <-r.stop:
				return
			default:
				continue
			}
		}
		for _, ms := range r.members {
			if ms.member.Matches(token) {
				if ms.consume() {
					ms.count.Add(1)
				}
				break
			}
		}
	}
}

// Close stops the workload and destroys every object it created.
func (r *runner) Close() {
	close(r.stop)
	<-r.done
	for _, t := range r.tasks {
		for !t.IsFinished() {
			time.Sleep(time.Millisecond)
		}
		t.Destroy()
	}

	for _, tm := range r.timers {
		tm.Destroy()
	}
	// Drain stragglers the producers sent after the consumer left.
	for _, ms := range r.members {
		for ms.consume() {
		}
		for r.ws.SelectFromISR() != waitset.None {
		}
		r.ws.Remove(ms.member)
		ms.destroy()
	}
	r.ws.Destroy()
}

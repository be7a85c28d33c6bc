package parallel

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/notargets/hillpp/utils"
)

var (
	ErrCollectiveMismatch = errors.New("ranks disagree on the collective being called")
	ErrAborted            = errors.New("another rank failed")
)

// Envelope is one rank's contribution to a gather. Data holds NCols wide
// rows, row major.
type Envelope struct {
	Source int
	Stage  string
	Round  int
	NCols  int
	Data   []float64
}

func (e Envelope) NRows() int {
	if e.NCols == 0 {
		return 0
	}
	return len(e.Data) / e.NCols
}

// Communicator is the view a rank has of the distributed run. Every rank
// must call the same collectives in the same order.
type Communicator interface {
	Rank() int
	Size() int
	// Gather returns every rank's envelope ordered by rank on rank 0, nil
	// elsewhere.
	Gather(msg Envelope) ([]Envelope, error)
	Barrier() error
}

// World runs one goroutine per rank inside the process. Ranks exchange data
// only through its collectives.
type World struct {
	size       int
	mb         *utils.MailBox[Envelope]
	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation int
	done       int
	abortErr   error
}

func NewWorld(size int) (w *World) {
	if size < 1 {
		panic(fmt.Sprintf("world size %d", size))
	}
	w = &World{size: size}
	w.cond = sync.NewCond(&w.mu)
	w.reset()
	return
}

func (w *World) reset() {
	w.mb = utils.NewMailBox[Envelope](w.size)
	w.arrived, w.generation, w.done, w.abortErr = 0, 0, 0, nil
}

func (w *World) Size() int { return w.size }

func (w *World) Comm(rank int) Communicator {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("rank %d out of bounds for world of %d", rank, w.size))
	}
	return &rankComm{world: w, rank: rank}
}

// Run executes fn on every rank and waits for all of them. The first failing
// rank aborts the others, whose pending and future collectives return
// ErrAborted. The root cause is reported ahead of the aborted ranks.
func (w *World) Run(fn func(comm Communicator) error) error {
	w.mu.Lock()
	w.reset()
	w.mu.Unlock()
	var (
		wg   sync.WaitGroup
		errs = make([]error, w.size)
	)
	for np := 0; np < w.size; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[np] = fmt.Errorf("panic: %v", r)
					w.Abort(ErrAborted)
				}
			}()
			if errs[np] = fn(w.Comm(np)); errs[np] != nil {
				w.Abort(ErrAborted)
				return
			}
			w.finish()
		}(np)
	}
	wg.Wait()
	for pass := 0; pass < 2; pass++ {
		for np, err := range errs {
			if err == nil || (pass == 0 && errors.Is(err, ErrAborted)) {
				continue
			}
			return fmt.Errorf("rank %d: %w", np, err)
		}
	}
	return nil
}

// Abort releases every rank blocked in a collective with err.
func (w *World) Abort(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.abortErr == nil {
		w.abortErr = err
	}
	w.cond.Broadcast()
}

// finish marks a rank as returned. Ranks still waiting for it can never be
// released.
func (w *World) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done++
	if w.arrived > 0 && w.abortErr == nil {
		w.abortErr = ErrCollectiveMismatch
		w.cond.Broadcast()
	}
}

func (w *World) barrier() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.abortErr != nil {
		return w.abortErr
	}
	if w.done > 0 {
		w.abortErr = ErrCollectiveMismatch
		w.cond.Broadcast()
		return w.abortErr
	}
	gen := w.generation
	w.arrived++
	if w.arrived == w.size {
		w.arrived = 0
		w.generation++
		w.cond.Broadcast()
		return nil
	}
	for gen == w.generation && w.abortErr == nil {
		w.cond.Wait()
	}
	if gen == w.generation {
		return w.abortErr
	}
	return nil
}

type rankComm struct {
	world *World
	rank  int
}

func (rc *rankComm) Rank() int { return rc.rank }

func (rc *rankComm) Size() int { return rc.world.size }

func (rc *rankComm) Barrier() error { return rc.world.barrier() }

func (rc *rankComm) Gather(msg Envelope) (all []Envelope, err error) {
	var (
		w  = rc.world
		mb = w.mb
	)
	msg.Source = rc.rank
	msg.Data = append([]float64(nil), msg.Data...)
	mb.PostMessage(rc.rank, 0, msg)
	mb.DeliverMyMessages(rc.rank)
	if err = w.barrier(); err != nil {
		return
	}
	if rc.rank == 0 {
		mb.ReceiveMyMessages(0)
		all = append(all, mb.MyMessages(0)...)
		mb.ClearMyMessages(0)
		sort.Slice(all, func(i, j int) bool { return all[i].Source < all[j].Source })
	}
	// Senders reuse their outboxes only after the root has drained them
	if err = w.barrier(); err != nil {
		return nil, err
	}
	return
}

package attention

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"tilestream/internal/config"
	"tilestream/internal/worldstore"
)

var errClosed = fmt.Errorf("attention: closed")

// Scheduler is the Attention Scheduler actor: a single goroutine
// owning the four task pools and the attention coefficient, mirroring
// worldstore.Store's request/response actor shape so the two
// subsystems share one idiom even though they never talk to each
// other directly — both only ever go through the store.
type Scheduler struct {
	cfg    config.Config
	store  *worldstore.Store
	logger *log.Logger

	reqCh  chan *request
	stopCh chan struct{}

	readyCh  chan struct{}
	readyErr error

	done sync.WaitGroup
}

// New constructs the scheduler, loading its pools and attention
// coefficient from store (the worker-side value is authoritative per
// the open-question resolution recorded in the design ledger) and
// starting its worker goroutine. Callers must WaitReady before relying
// on Get/AddTask reflecting reloaded state.
func New(cfg config.Config, store *worldstore.Store, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "[attention] ", log.LstdFlags)
	}
	s := &Scheduler{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		reqCh:   make(chan *request, 256),
		stopCh:  make(chan struct{}),
		readyCh: make(chan struct{}),
	}

	s.done.Add(1)
	go func() {
		defer s.done.Done()
		ctx := context.Background()
		p, err := loadFromStore(ctx, store)
		if err != nil {
			s.readyErr = err
			close(s.readyCh)
			return
		}
		close(s.readyCh)
		s.run(p)
	}()
	return s
}

func (s *Scheduler) WaitReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return s.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Close() error {
	close(s.stopCh)
	s.done.Wait()
	return nil
}

func newTaskID() TaskID {
	return TaskID(uuid.NewString())
}

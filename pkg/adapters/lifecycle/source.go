package lifecycle

import (
	"context"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/quotesync/pkg/core"
)

type quoteSource struct {
	inputs []<-chan core.Event
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that merges quote event streams,
// typically the engine's notifications and the file watcher's.
// The output closes once every input has closed or the context ends.
func NewSource(inputs ...<-chan core.Event) lifecycle.Source {
	return &quoteSource{
		inputs: inputs,
		out:    make(chan lifecycle.Event),
	}
}

func (s *quoteSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *quoteSource) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, in := range s.inputs {
		if in == nil {
			continue
		}
		wg.Add(1)
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer wg.Done()
			return s.forward(ctx, in)
		})
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		wg.Wait()
		close(s.out)
		return nil
	})
	return nil
}

func (s *quoteSource) forward(ctx context.Context, in <-chan core.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-in:
			if !ok {
				return nil
			}
			// core.Event satisfies lifecycle.Event through String().
			select {
			case s.out <- e:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

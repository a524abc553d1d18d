package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MultiSender delivers each payload to every destination concurrently
type MultiSender struct {
	senders []Sender
}

func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

// Send waits for every destination. Failures are joined in sender order and
// never cut delivery to the rest short.
func (s *MultiSender) Send(ctx context.Context, payload *OpportunityPayload) error {
	errs := make([]error, len(s.senders))

	var wg sync.WaitGroup
	for i, sender := range s.senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sender.Send(ctx, payload); err != nil {
				errs[i] = fmt.Errorf("sender %d: %w", i, err)
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("deliver to %d destinations: %w", len(s.senders), err)
	}
	return nil
}

package payments

import (
	"context"
	"sync"
	"time"

	"github.com/emphub/workforce/internal/app/domain/payment"
	"github.com/emphub/workforce/internal/app/storage"
	"github.com/emphub/workforce/internal/app/system"
	"github.com/emphub/workforce/pkg/logger"
)

// IntentResolver decides whether a pending payment intent has settled.
type IntentResolver interface {
	Resolve(ctx context.Context, intent payment.Intent) (done bool, success bool, retryAfter time.Duration, err error)
}

// ProcessorResolver resolves intents by asking the processor for their
// current status.
type ProcessorResolver struct {
	processor *HTTPProcessor
}

// NewProcessorResolver constructs a resolver backed by the HTTP processor.
func NewProcessorResolver(processor *HTTPProcessor) *ProcessorResolver {
	return &ProcessorResolver{processor: processor}
}

func (r *ProcessorResolver) Resolve(ctx context.Context, intent payment.Intent) (bool, bool, time.Duration, error) {
	status, err := r.processor.GetIntentStatus(ctx, intent.ProcessorID)
	if err != nil {
		return false, false, 0, err
	}
	switch status {
	case "succeeded":
		return true, true, 0, nil
	case "canceled":
		return true, false, 0, nil
	default:
		return false, false, 30 * time.Second, nil
	}
}

// SettlementPoller watches pending intents and finalizes them using the
// resolver. A succeeded intent with an employee identity attached also
// produces a ledger payment record.
type SettlementPoller struct {
	store    storage.PaymentStore
	service  *Service
	resolver IntentResolver
	interval time.Duration
	log      *logger.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	nextAttempt map[string]time.Time
}

var _ system.Service = (*SettlementPoller)(nil)

// NewSettlementPoller constructs a poller over the payment store.
func NewSettlementPoller(store storage.PaymentStore, service *Service, resolver IntentResolver, log *logger.Logger) *SettlementPoller {
	if log == nil {
		log = logger.NewDefault("payments-settlement")
	}
	return &SettlementPoller{
		store:       store,
		service:     service,
		resolver:    resolver,
		interval:    15 * time.Second,
		log:         log,
		nextAttempt: make(map[string]time.Time),
	}
}

func (p *SettlementPoller) Name() string { return "payments-settlement" }

func (p *SettlementPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.tick(runCtx)
			}
		}
	}()

	p.log.Info("payment settlement poller started")
	return nil
}

func (p *SettlementPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (p *SettlementPoller) tick(ctx context.Context) {
	intents, err := p.store.ListPendingIntents(ctx)
	if err != nil {
		p.log.WithError(err).Warn("list pending intents failed")
		return
	}

	now := time.Now()
	for _, intent := range intents {
		if !p.shouldAttempt(intent.ID, now) {
			continue
		}

		done, success, retryAfter, err := p.resolver.Resolve(ctx, intent)
		if err != nil {
			p.log.WithError(err).Warnf("resolver error for intent %s", intent.ID)
			p.scheduleNext(intent.ID, retryAfter)
			continue
		}
		if !done {
			p.scheduleNext(intent.ID, retryAfter)
			continue
		}

		p.finalize(ctx, intent, success)
		p.clearSchedule(intent.ID)
	}
}

func (p *SettlementPoller) finalize(ctx context.Context, intent payment.Intent, success bool) {
	if success {
		intent.Status = payment.IntentStatusSucceeded
	} else {
		intent.Status = payment.IntentStatusFailed
	}
	if _, err := p.store.UpdateIntent(ctx, intent); err != nil {
		p.log.WithError(err).Warnf("update intent %s failed", intent.ID)
		return
	}

	if success && intent.Email != "" && p.service != nil {
		_, err := p.service.Record(ctx, payment.Record{
			EmployeeID:    intent.EmployeeID,
			Email:         intent.Email,
			Date:          time.Now().UTC(),
			Amount:        float64(intent.Amount) / 100,
			TransactionID: intent.ProcessorID,
		})
		if err != nil {
			p.log.WithError(err).Warnf("record settled payment for intent %s failed", intent.ID)
			return
		}
	}

	p.log.Infof("intent %s settled (success=%t)", intent.ID, success)
}

func (p *SettlementPoller) shouldAttempt(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, ok := p.nextAttempt[id]
	return !ok || now.After(next)
}

func (p *SettlementPoller) scheduleNext(id string, after time.Duration) {
	if after <= 0 {
		after = p.interval
	}
	p.mu.Lock()
	p.nextAttempt[id] = time.Now().Add(after)
	p.mu.Unlock()
}

func (p *SettlementPoller) clearSchedule(id string) {
	p.mu.Lock()
	delete(p.nextAttempt, id)
	p.mu.Unlock()
}

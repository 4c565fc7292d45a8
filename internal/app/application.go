package app

import (
	"context"

	"github.com/emphub/workforce/internal/app/services/directory"
	"github.com/emphub/workforce/internal/app/services/payments"
	"github.com/emphub/workforce/internal/app/services/payroll"
	"github.com/emphub/workforce/internal/app/storage"
	"github.com/emphub/workforce/internal/app/storage/memory"
	"github.com/emphub/workforce/internal/app/system"
	"github.com/emphub/workforce/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users       storage.UserStore
	WorkEntries storage.WorkEntryStore
	Payments    storage.PaymentStore
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Directory *directory.Service
	Payroll   *payroll.Service
	Payments  *payments.Service
}

// New builds a fully initialised application with the provided stores and
// payment processor. The processor may be nil for deployments without a
// configured processor key.
func New(stores Stores, processor payments.Processor, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.WorkEntries == nil {
		stores.WorkEntries = mem
	}
	if stores.Payments == nil {
		stores.Payments = mem
	}

	manager := system.NewManager()

	directoryService := directory.New(stores.Users, log)
	payrollService := payroll.New(stores.WorkEntries, log)
	paymentsService := payments.New(stores.Payments, processor, log)

	if httpProcessor, ok := processor.(*payments.HTTPProcessor); ok {
		poller := payments.NewSettlementPoller(stores.Payments, paymentsService, payments.NewProcessorResolver(httpProcessor), log)
		if err := manager.Register(poller); err != nil {
			return nil, err
		}
	} else {
		log.Warn("payment processor not configured; settlement poller disabled")
	}

	return &Application{
		manager:   manager,
		log:       log,
		Directory: directoryService,
		Payroll:   payrollService,
		Payments:  paymentsService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

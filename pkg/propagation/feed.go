package propagation

import (
	"context"

	"kopimatic/entities"
	"kopimatic/pkg/realtime"

	"github.com/gofiber/fiber/v2/log"
)

type (
	// Feed is a source of storage-level change events. Two implementations
	// exist: a Postgres LISTEN/NOTIFY feed and a polling fallback. The
	// pipeline never knows which one is running.
	Feed interface {
		Name() string
		// Run blocks until ctx is cancelled, delivering changes to the handler.
		Run(ctx context.Context, handler Handler) error
	}

	// Handler receives change events from whichever feed is active.
	Handler interface {
		InventoryChanged(ctx context.Context, machineID, ingredientID string)
		MachineChanged(ctx context.Context, machineID string)
		CatalogChanged(ctx context.Context)
	}

	// MachineStore is the slice of the machine repository the dispatcher reads.
	MachineStore interface {
		GetMachines(ctx context.Context) ([]*entities.Machine, error)
		GetMachineByID(ctx context.Context, id string) (*entities.Machine, error)
	}

	// Dispatcher adapts feed events onto the pipeline and the transport:
	// inventory changes run the ingredient-scoped path, machine changes push
	// status plus throttled temperature, catalog changes invalidate snapshots.
	Dispatcher struct {
		pipeline  *Pipeline
		machines  MachineStore
		transport realtime.Transport
		throttle  *realtime.TemperatureThrottle
	}
)

func NewDispatcher(pipeline *Pipeline, machines MachineStore, transport realtime.Transport, throttle *realtime.TemperatureThrottle) *Dispatcher {
	return &Dispatcher{
		pipeline:  pipeline,
		machines:  machines,
		transport: transport,
		throttle:  throttle,
	}
}

func (d *Dispatcher) InventoryChanged(ctx context.Context, machineID, ingredientID string) {
	// External writes bypass the API's warning rule, so re-apply it here.
	d.pipeline.CheckStockLevel(ctx, machineID, ingredientID)
	if err := d.pipeline.IngredientChanged(ctx, machineID, ingredientID); err != nil {
		log.Errorf("propagation: feed inventory change %s/%s: %v", machineID, ingredientID, err)
	}
}

func (d *Dispatcher) MachineChanged(ctx context.Context, machineID string) {
	machine, err := d.machines.GetMachineByID(ctx, machineID)
	if err != nil {
		log.Errorf("propagation: feed machine change %s: %v", machineID, err)
		return
	}
	d.transport.EmitToRoom(machineID, realtime.EventMachineStatusUpdate, realtime.MachineStatusPayload{
		MachineID: machineID,
		Delta:     map[string]any{"status": machine.Status},
	})
	d.throttle.Offer(machineID, machine.Temperature)
}

func (d *Dispatcher) CatalogChanged(ctx context.Context) {
	if err := d.pipeline.CatalogChanged(ctx); err != nil {
		log.Errorf("propagation: feed catalog change: %v", err)
	}
}

// SelectFeed probes the store for LISTEN/NOTIFY support and prefers it; when
// the probe fails (store not reachable over a raw connection, notifications
// not configured) the polling feed takes over.
func SelectFeed(ctx context.Context, dsn string, machines MachineStore, inventory InventoryStore, catalog CatalogStore) Feed {
	if feed, err := NewListenFeed(ctx, dsn); err == nil {
		log.Info("propagation: change feed using LISTEN/NOTIFY")
		return feed
	} else {
		log.Warnf("propagation: LISTEN/NOTIFY unavailable, falling back to polling: %v", err)
	}
	return NewPollingFeed(machines, inventory, catalog)
}

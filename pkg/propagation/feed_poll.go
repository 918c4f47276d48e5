package propagation

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Poll intervals: machine status churns fastest, the catalog barely moves.
const (
	machinePollInterval   = 5 * time.Second
	inventoryPollInterval = 10 * time.Second
	catalogPollInterval   = 30 * time.Second
)

// PollingFeed derives change events by periodically re-reading the stores and
// diffing against the previous observation. It is the fallback when the store
// cannot push notifications.
type PollingFeed struct {
	machines  MachineStore
	inventory InventoryStore
	catalog   CatalogStore

	machineSeen   map[string]string             // machine -> status|temperature fingerprint
	inventorySeen map[string]map[string]float64 // machine -> ingredient -> quantity
	catalogSeen   string
}

func NewPollingFeed(machines MachineStore, inventory InventoryStore, catalog CatalogStore) *PollingFeed {
	return &PollingFeed{
		machines:      machines,
		inventory:     inventory,
		catalog:       catalog,
		machineSeen:   make(map[string]string),
		inventorySeen: make(map[string]map[string]float64),
	}
}

func (f *PollingFeed) Name() string { return "polling" }

func (f *PollingFeed) Run(ctx context.Context, handler Handler) error {
	// Prime the baselines so startup does not replay the whole world as
	// changes.
	f.pollMachines(ctx, nil)
	f.pollInventory(ctx, nil)
	f.pollCatalog(ctx, nil)

	machineTicker := time.NewTicker(machinePollInterval)
	inventoryTicker := time.NewTicker(inventoryPollInterval)
	catalogTicker := time.NewTicker(catalogPollInterval)
	defer machineTicker.Stop()
	defer inventoryTicker.Stop()
	defer catalogTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-machineTicker.C:
			f.pollMachines(ctx, handler)
		case <-inventoryTicker.C:
			f.pollInventory(ctx, handler)
		case <-catalogTicker.C:
			f.pollCatalog(ctx, handler)
		}
	}
}

func (f *PollingFeed) pollMachines(ctx context.Context, handler Handler) {
	machines, err := f.machines.GetMachines(ctx)
	if err != nil {
		log.Errorf("propagation: machine poll: %v", err)
		return
	}
	for _, m := range machines {
		id := m.ID.String()
		fingerprint := fmt.Sprintf("%s|%.2f", m.Status, m.Temperature)
		if f.machineSeen[id] != fingerprint {
			f.machineSeen[id] = fingerprint
			if handler != nil {
				handler.MachineChanged(ctx, id)
			}
		}
	}
}

func (f *PollingFeed) pollInventory(ctx context.Context, handler Handler) {
	machines, err := f.machines.GetMachines(ctx)
	if err != nil {
		log.Errorf("propagation: inventory poll: %v", err)
		return
	}
	for _, m := range machines {
		machineID := m.ID.String()
		rows, err := f.inventory.GetInventory(ctx, machineID)
		if err != nil {
			log.Errorf("propagation: inventory poll %s: %v", machineID, err)
			continue
		}

		current := make(map[string]float64, len(rows))
		for _, row := range rows {
			current[row.IngredientID.String()] = row.Quantity
		}

		previous := f.inventorySeen[machineID]
		f.inventorySeen[machineID] = current
		if previous == nil {
			continue
		}

		for ingredientID, qty := range current {
			if prev, ok := previous[ingredientID]; !ok || prev != qty {
				if handler != nil {
					handler.InventoryChanged(ctx, machineID, ingredientID)
				}
			}
		}
		for ingredientID := range previous {
			if _, ok := current[ingredientID]; !ok {
				if handler != nil {
					handler.InventoryChanged(ctx, machineID, ingredientID)
				}
			}
		}
	}
}

func (f *PollingFeed) pollCatalog(ctx context.Context, handler Handler) {
	recipes, err := f.catalog.GetRecipes(ctx, "")
	if err != nil {
		log.Errorf("propagation: catalog poll: %v", err)
		return
	}
	rows, err := f.catalog.GetAllRecipeIngredients(ctx)
	if err != nil {
		log.Errorf("propagation: catalog poll: %v", err)
		return
	}

	var latest time.Time
	for _, r := range recipes {
		if r.UpdatedAt.After(latest) {
			latest = r.UpdatedAt
		}
	}
	for _, row := range rows {
		if row.UpdatedAt.After(latest) {
			latest = row.UpdatedAt
		}
	}
	fingerprint := fmt.Sprintf("%d|%d|%d", len(recipes), len(rows), latest.UnixNano())

	if f.catalogSeen != fingerprint {
		changed := f.catalogSeen != ""
		f.catalogSeen = fingerprint
		if changed && handler != nil {
			handler.CatalogChanged(ctx)
		}
	}
}

package handlers

import (
	"context"

	"kopimatic/pkg/machine"
	"kopimatic/pkg/realtime"
	"kopimatic/pkg/recipe"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type (
	RealtimeHandler interface {
		Upgrade(c *fiber.Ctx) error
		Serve() fiber.Handler
	}

	realtimeHandler struct {
		hub            *realtime.Hub
		machineService machine.MachineService
		recipeService  recipe.RecipeService
	}
)

func NewRealtimeHandler(hub *realtime.Hub, machineService machine.MachineService, recipeService recipe.RecipeService) RealtimeHandler {
	return &realtimeHandler{
		hub:            hub,
		machineService: machineService,
		recipeService:  recipeService,
	}
}

func (h *realtimeHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve runs one kiosk connection: a writer goroutine drains the subscription
// while the read loop handles join-machine, leave-machine and request-data.
func (h *realtimeHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub := h.hub.Register(64)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range sub.C() {
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}()

		joined := make(map[string]bool)
		for {
			var msg realtime.ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				break
			}

			switch msg.Type {
			case realtime.MessageJoinMachine:
				if msg.MachineID == "" {
					continue
				}
				h.hub.JoinRoom(msg.MachineID, sub)
				joined[msg.MachineID] = true
			case realtime.MessageLeaveMachine:
				if msg.MachineID == "" {
					continue
				}
				h.hub.LeaveRoom(msg.MachineID, sub)
				delete(joined, msg.MachineID)
			case realtime.MessageRequestData:
				targets := joined
				if msg.MachineID != "" {
					targets = map[string]bool{msg.MachineID: true}
				}
				h.sendSnapshots(sub, targets)
			default:
				log.Warnf("realtime: unknown client message %q", msg.Type)
			}
		}

		h.hub.Unregister(sub)
		<-done
	})
}

// sendSnapshots replies to request-data with one-shot snapshots on every topic,
// to this connection only.
func (h *realtimeHandler) sendSnapshots(sub *realtime.Subscription, machines map[string]bool) {
	ctx := context.Background()

	recipes, err := h.recipeService.GetRecipes(ctx, "")
	if err != nil {
		log.Errorf("realtime: snapshot recipes: %v", err)
	} else {
		sub.Send(realtime.EventRecipeUpdate, recipes)
	}

	for machineID := range machines {
		m, err := h.machineService.GetMachineByID(ctx, machineID)
		if err != nil {
			log.Errorf("realtime: snapshot machine %s: %v", machineID, err)
			continue
		}
		sub.Send(realtime.EventMachineStatusUpdate, realtime.MachineStatusPayload{
			MachineID: machineID,
			Machine:   m,
		})

		rows, err := h.machineService.GetInventory(ctx, machineID)
		if err != nil {
			log.Errorf("realtime: snapshot inventory %s: %v", machineID, err)
		} else {
			sub.Send(realtime.EventMachineInventory, realtime.InventoryPayload{
				MachineID: machineID,
				Rows:      rows,
			})
		}

		snapshot, err := h.machineService.GetAvailability(ctx, machineID)
		if err != nil {
			log.Errorf("realtime: snapshot availability %s: %v", machineID, err)
		} else {
			sub.Send(realtime.EventRecipeAvailability, snapshot)
		}
	}
}

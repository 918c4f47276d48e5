package propagation

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"
	"github.com/jackc/pgx/v5"
)

// NotifyChannel is the Postgres channel the migration's triggers notify on.
const NotifyChannel = "kopimatic_events"

// ListenFeed consumes row-level change notifications emitted by the
// database triggers installed at migration time.
type ListenFeed struct {
	conn *pgx.Conn
}

type changeNotification struct {
	Table string `json:"table"`
	Row   struct {
		ID           string `json:"id"`
		MachineID    string `json:"machine_id"`
		IngredientID string `json:"ingredient_id"`
	} `json:"row"`
}

// NewListenFeed opens a dedicated connection and subscribes to the notify
// channel. Returning an error here makes the caller fall back to polling.
func NewListenFeed(ctx context.Context, dsn string) (*ListenFeed, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return &ListenFeed{conn: conn}, nil
}

func (f *ListenFeed) Name() string { return "listen" }

func (f *ListenFeed) Run(ctx context.Context, handler Handler) error {
	defer func() {
		closeCtx := context.Background()
		_ = f.conn.Close(closeCtx)
	}()

	for {
		notification, err := f.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var change changeNotification
		if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
			log.Warnf("propagation: malformed change notification: %v", err)
			continue
		}
		f.dispatch(ctx, handler, change)
	}
}

func (f *ListenFeed) dispatch(ctx context.Context, handler Handler, change changeNotification) {
	switch change.Table {
	case "machine_ingredient_inventories":
		handler.InventoryChanged(ctx, change.Row.MachineID, change.Row.IngredientID)
	case "machines":
		handler.MachineChanged(ctx, change.Row.ID)
	case "recipes", "recipe_ingredients", "ingredients", "recipe_categories":
		handler.CatalogChanged(ctx)
	default:
		log.Warnf("propagation: change notification for unknown table %q", change.Table)
	}
}

package migration

import (
	"fmt"
	"log"

	"kopimatic/entities"
	"kopimatic/pkg/propagation"

	"gorm.io/gorm"
)

// notifiedTables are the tables whose row changes feed the availability
// pipeline. Each gets a trigger that publishes the changed row on the
// propagation channel.
var notifiedTables = []string{
	"machines",
	"machine_ingredient_inventories",
	"recipes",
	"recipe_ingredients",
	"ingredients",
	"recipe_categories",
}

func Migrate(db *gorm.DB) error {
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	models := []any{
		&entities.Staff{},
		&entities.Ingredient{},
		&entities.RecipeCategory{},
		&entities.Recipe{},
		&entities.RecipeIngredient{},
		&entities.Machine{},
		&entities.MachineIngredientInventory{},
		&entities.StockWarning{},
		&entities.Order{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			log.Fatalf("Error migrating %T: %v", model, err)
			return err
		}
	}

	if err := setupChangeNotifications(db); err != nil {
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}

// setupChangeNotifications installs the trigger function and per-table
// triggers behind the LISTEN-based change feed. Deployments without trigger
// privileges still work; the feed selection falls back to polling.
func setupChangeNotifications(db *gorm.DB) error {
	fn := fmt.Sprintf(`
CREATE OR REPLACE FUNCTION kopimatic_notify_change() RETURNS trigger AS $$
DECLARE
  target record;
BEGIN
  IF TG_OP = 'DELETE' THEN
    target := OLD;
  ELSE
    target := NEW;
  END IF;
  PERFORM pg_notify(
    '%s',
    json_build_object('table', TG_TABLE_NAME, 'row', row_to_json(target))::text
  );
  RETURN target;
END;
$$ LANGUAGE plpgsql;`, propagation.NotifyChannel)
	if err := db.Exec(fn).Error; err != nil {
		return err
	}

	for _, table := range notifiedTables {
		stmt := fmt.Sprintf(`
DROP TRIGGER IF EXISTS %[1]s_notify_change ON %[1]s;
CREATE TRIGGER %[1]s_notify_change
AFTER INSERT OR UPDATE OR DELETE ON %[1]s
FOR EACH ROW EXECUTE FUNCTION kopimatic_notify_change();`, table)
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

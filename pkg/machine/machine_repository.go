package machine

import (
	"context"
	"time"

	"kopimatic/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	MachineRepository interface {
		CreateMachine(ctx context.Context, machine *entities.Machine) error
		GetMachineByID(ctx context.Context, id string) (*entities.Machine, error)
		GetMachines(ctx context.Context) ([]*entities.Machine, error)
		UpdateMachine(ctx context.Context, machine *entities.Machine) error
		DeleteMachine(ctx context.Context, id string) error
		IncrementRevenue(ctx context.Context, id string, amount float64) error

		GetInventory(ctx context.Context, machineID string) ([]*entities.MachineIngredientInventory, error)
		GetInventoryRow(ctx context.Context, machineID, ingredientID string) (*entities.MachineIngredientInventory, error)
		UpsertInventoryRow(ctx context.Context, row *entities.MachineIngredientInventory) error
		// DeductInventory decrements one row only when enough stock remains.
		// Reports false when the conditional update matched no row, either
		// because the row is absent or because the remaining quantity is short.
		DeductInventory(ctx context.Context, machineID, ingredientID string, amount float64) (bool, error)

		CreateStockWarning(ctx context.Context, warning *entities.StockWarning) error
		GetStockWarnings(ctx context.Context, machineID string, unresolvedOnly bool) ([]*entities.StockWarning, error)
	}

	machineRepository struct {
		db *gorm.DB
	}
)

func NewMachineRepository(db *gorm.DB) MachineRepository {
	return &machineRepository{db: db}
}

func (r *machineRepository) CreateMachine(ctx context.Context, machine *entities.Machine) error {
	return r.db.WithContext(ctx).Create(machine).Error
}

func (r *machineRepository) GetMachineByID(ctx context.Context, id string) (*entities.Machine, error) {
	var machine entities.Machine
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&machine).Error; err != nil {
		return nil, err
	}
	return &machine, nil
}

func (r *machineRepository) GetMachines(ctx context.Context) ([]*entities.Machine, error) {
	var machines []*entities.Machine
	if err := r.db.WithContext(ctx).Order("name asc").Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

func (r *machineRepository) UpdateMachine(ctx context.Context, machine *entities.Machine) error {
	return r.db.WithContext(ctx).Save(machine).Error
}

func (r *machineRepository) DeleteMachine(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Machine{}).Error
}

func (r *machineRepository) IncrementRevenue(ctx context.Context, id string, amount float64) error {
	return r.db.WithContext(ctx).
		Model(&entities.Machine{}).
		Where("id = ?", id).
		Update("revenue", gorm.Expr("revenue + ?", amount)).Error
}

func (r *machineRepository) GetInventory(ctx context.Context, machineID string) ([]*entities.MachineIngredientInventory, error) {
	var rows []*entities.MachineIngredientInventory
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("machine_id = ?", machineID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *machineRepository) GetInventoryRow(ctx context.Context, machineID, ingredientID string) (*entities.MachineIngredientInventory, error) {
	var row entities.MachineIngredientInventory
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND ingredient_id = ?", machineID, ingredientID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *machineRepository) UpsertInventoryRow(ctx context.Context, row *entities.MachineIngredientInventory) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "machine_id"}, {Name: "ingredient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "max_capacity", "updated_at"}),
		}).
		Create(row).Error
}

func (r *machineRepository) DeductInventory(ctx context.Context, machineID, ingredientID string, amount float64) (bool, error) {
	// Single conditional update: the check and the decrement are one atomic
	// statement, so two concurrent orders cannot both pass a stale read and
	// drive the quantity negative.
	res := r.db.WithContext(ctx).
		Model(&entities.MachineIngredientInventory{}).
		Where("machine_id = ? AND ingredient_id = ? AND quantity >= ?", machineID, ingredientID, amount).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *machineRepository) CreateStockWarning(ctx context.Context, warning *entities.StockWarning) error {
	return r.db.WithContext(ctx).Create(warning).Error
}

func (r *machineRepository) GetStockWarnings(ctx context.Context, machineID string, unresolvedOnly bool) ([]*entities.StockWarning, error) {
	var warnings []*entities.StockWarning
	query := r.db.WithContext(ctx).Preload("Ingredient").Where("machine_id = ?", machineID)
	if unresolvedOnly {
		query = query.Where("resolved = ?", false)
	}
	if err := query.Order("created_at desc").Find(&warnings).Error; err != nil {
		return nil, err
	}
	return warnings, nil
}

package machine

import (
	"context"
	"errors"

	"kopimatic/domain"
	"kopimatic/entities"
	"kopimatic/pkg/propagation"
	"kopimatic/pkg/realtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	MachineService interface {
		CreateMachine(ctx context.Context, req domain.CreateMachineRequest) (*domain.MachineResponse, error)
		GetMachines(ctx context.Context) ([]*domain.MachineResponse, error)
		GetMachineByID(ctx context.Context, id string) (*domain.MachineResponse, error)
		UpdateMachine(ctx context.Context, id string, req domain.UpdateMachineRequest) (*domain.MachineResponse, error)
		DeleteMachine(ctx context.Context, id string) error
		ReportTelemetry(ctx context.Context, id string, req domain.MachineTelemetryRequest) error

		GetInventory(ctx context.Context, machineID string) ([]domain.InventoryRowResponse, error)
		// UpdateInventory is the admin's absolute-quantity edit for one
		// ingredient; it drives the ingredient-scoped availability update.
		UpdateInventory(ctx context.Context, machineID string, req domain.UpdateInventoryRequest) error
		GetStockWarnings(ctx context.Context, machineID string, unresolvedOnly bool) ([]domain.StockWarningResponse, error)
		GetAvailability(ctx context.Context, machineID string) (domain.AvailabilitySnapshot, error)
	}

	machineService struct {
		machineRepository MachineRepository
		pipeline          *propagation.Pipeline
		transport         realtime.Transport
		throttle          *realtime.TemperatureThrottle
	}
)

func NewMachineService(machineRepository MachineRepository, pipeline *propagation.Pipeline, transport realtime.Transport, throttle *realtime.TemperatureThrottle) MachineService {
	return &machineService{
		machineRepository: machineRepository,
		pipeline:          pipeline,
		transport:         transport,
		throttle:          throttle,
	}
}

func toMachineResponse(m *entities.Machine) *domain.MachineResponse {
	return &domain.MachineResponse{
		ID:          m.ID.String(),
		Name:        m.Name,
		Location:    m.Location,
		Status:      m.Status,
		Temperature: m.Temperature,
		Revenue:     m.Revenue,
	}
}

func (s *machineService) CreateMachine(ctx context.Context, req domain.CreateMachineRequest) (*domain.MachineResponse, error) {
	m := &entities.Machine{
		ID:       uuid.New(),
		Name:     req.Name,
		Location: req.Location,
		Status:   domain.MachineStatusOffline,
	}
	if err := s.machineRepository.CreateMachine(ctx, m); err != nil {
		return nil, err
	}
	return toMachineResponse(m), nil
}

func (s *machineService) GetMachines(ctx context.Context) ([]*domain.MachineResponse, error) {
	machines, err := s.machineRepository.GetMachines(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.MachineResponse, 0, len(machines))
	for _, m := range machines {
		out = append(out, toMachineResponse(m))
	}
	return out, nil
}

func (s *machineService) GetMachineByID(ctx context.Context, id string) (*domain.MachineResponse, error) {
	m, err := s.machineRepository.GetMachineByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMachineNotFound
		}
		return nil, err
	}
	return toMachineResponse(m), nil
}

func (s *machineService) UpdateMachine(ctx context.Context, id string, req domain.UpdateMachineRequest) (*domain.MachineResponse, error) {
	m, err := s.machineRepository.GetMachineByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMachineNotFound
		}
		return nil, err
	}

	if req.Name != "" {
		m.Name = req.Name
	}
	if req.Location != "" {
		m.Location = req.Location
	}
	statusChanged := false
	if req.Status != "" && req.Status != m.Status {
		m.Status = req.Status
		statusChanged = true
	}

	if err := s.machineRepository.UpdateMachine(ctx, m); err != nil {
		return nil, err
	}

	if statusChanged {
		s.transport.EmitToRoom(id, realtime.EventMachineStatusUpdate, realtime.MachineStatusPayload{
			MachineID: id,
			Delta:     map[string]any{"status": m.Status},
		})
	}
	return toMachineResponse(m), nil
}

func (s *machineService) DeleteMachine(ctx context.Context, id string) error {
	if _, err := s.machineRepository.GetMachineByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMachineNotFound
		}
		return err
	}
	return s.machineRepository.DeleteMachine(ctx, id)
}

// ReportTelemetry ingests a temperature reading from the machine itself. The
// push to clients goes through the throttle so a chatty sensor cannot flood
// the rooms.
func (s *machineService) ReportTelemetry(ctx context.Context, id string, req domain.MachineTelemetryRequest) error {
	m, err := s.machineRepository.GetMachineByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMachineNotFound
		}
		return err
	}
	m.Temperature = req.Temperature
	if err := s.machineRepository.UpdateMachine(ctx, m); err != nil {
		return err
	}
	s.throttle.Offer(id, req.Temperature)
	return nil
}

func toInventoryRow(row *entities.MachineIngredientInventory) domain.InventoryRowResponse {
	out := domain.InventoryRowResponse{
		IngredientID: row.IngredientID.String(),
		Quantity:     row.Quantity,
		MaxCapacity:  row.MaxCapacity,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Ingredient != nil {
		out.Name = row.Ingredient.Name
		out.Unit = row.Ingredient.Unit
	}
	return out
}

func (s *machineService) GetInventory(ctx context.Context, machineID string) ([]domain.InventoryRowResponse, error) {
	if _, err := s.machineRepository.GetMachineByID(ctx, machineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMachineNotFound
		}
		return nil, err
	}
	rows, err := s.machineRepository.GetInventory(ctx, machineID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.InventoryRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toInventoryRow(row))
	}
	return out, nil
}

func (s *machineService) UpdateInventory(ctx context.Context, machineID string, req domain.UpdateInventoryRequest) error {
	if req.Quantity < 0 {
		return domain.ErrNegativeQuantity
	}
	machineUUID, err := uuid.Parse(machineID)
	if err != nil {
		return domain.ErrParseUUID
	}
	ingredientUUID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		return domain.ErrParseUUID
	}
	if _, err := s.machineRepository.GetMachineByID(ctx, machineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMachineNotFound
		}
		return err
	}

	row := &entities.MachineIngredientInventory{
		MachineID:    machineUUID,
		IngredientID: ingredientUUID,
		Quantity:     req.Quantity,
		MaxCapacity:  req.MaxCapacity,
	}
	if err := s.machineRepository.UpsertInventoryRow(ctx, row); err != nil {
		return err
	}

	s.pipeline.CheckStockLevel(ctx, machineID, req.IngredientID)
	return s.pipeline.IngredientChanged(ctx, machineID, req.IngredientID)
}

func (s *machineService) GetStockWarnings(ctx context.Context, machineID string, unresolvedOnly bool) ([]domain.StockWarningResponse, error) {
	warnings, err := s.machineRepository.GetStockWarnings(ctx, machineID, unresolvedOnly)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StockWarningResponse, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, domain.StockWarningResponse{
			ID:           w.ID.String(),
			MachineID:    w.MachineID.String(),
			IngredientID: w.IngredientID.String(),
			Quantity:     w.Quantity,
			Severity:     w.Severity,
			Resolved:     w.Resolved,
			CreatedAt:    w.CreatedAt,
		})
	}
	return out, nil
}

func (s *machineService) GetAvailability(ctx context.Context, machineID string) (domain.AvailabilitySnapshot, error) {
	if _, err := s.machineRepository.GetMachineByID(ctx, machineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AvailabilitySnapshot{}, domain.ErrMachineNotFound
		}
		return domain.AvailabilitySnapshot{}, err
	}
	return s.pipeline.Snapshot(ctx, machineID)
}

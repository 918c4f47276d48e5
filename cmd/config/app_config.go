package config

import (
	"context"
	"os"
	"time"

	"kopimatic/entities"
	"kopimatic/internal/api/handlers"
	"kopimatic/internal/api/routes"
	"kopimatic/internal/middleware"
	"kopimatic/internal/utils"
	"kopimatic/internal/utils/mailing"
	"kopimatic/internal/utils/storage"
	"kopimatic/pkg/availability"
	"kopimatic/pkg/ingredient"
	"kopimatic/pkg/jwt"
	"kopimatic/pkg/machine"
	"kopimatic/pkg/order"
	"kopimatic/pkg/payment"
	"kopimatic/pkg/propagation"
	"kopimatic/pkg/realtime"
	"kopimatic/pkg/recipe"
	"kopimatic/pkg/staff"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Jakarta",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()

	// Repository
	staffRepository := staff.NewStaffRepository(db)
	ingredientRepository := ingredient.NewIngredientRepository(db)
	recipeRepository := recipe.NewRecipeRepository(db)
	machineRepository := machine.NewMachineRepository(db)
	orderRepository := order.NewOrderRepository(db)

	// Realtime transport
	hub := realtime.NewHub()
	throttle := realtime.NewTemperatureThrottle(realtime.DefaultTemperatureWindow, func(machineID string, temperature float64) {
		hub.EmitToRoom(machineID, realtime.EventMachineTemperature, realtime.TemperaturePayload{
			MachineID:   machineID,
			Temperature: temperature,
		})
	})

	// Availability engine, seeded from the stored catalog
	ctx := context.Background()
	rows, err := recipeRepository.GetAllRecipeIngredients(ctx)
	if err != nil {
		return nil, err
	}
	assocs := make([]availability.Association, 0, len(rows))
	for _, row := range rows {
		assocs = append(assocs, availability.Association{
			RecipeID:     row.RecipeID.String(),
			IngredientID: row.IngredientID.String(),
			Quantity:     row.Quantity,
		})
	}
	engine := availability.NewEngine(availability.NewIndex(assocs))

	pipeline := propagation.New(engine, hub, machineRepository, recipeRepository, func(warning *entities.StockWarning) {
		if err := mailing.SendCriticalStockAlert(
			warning.MachineID.String(),
			warning.IngredientID.String(),
			warning.Quantity,
		); err != nil {
			log.Errorf("critical stock alert mail: %v", err)
		}
	})

	// Change feed: LISTEN/NOTIFY when the store supports it, polling otherwise
	dispatcher := propagation.NewDispatcher(pipeline, machineRepository, hub, throttle)
	feed := propagation.SelectFeed(ctx, DatabaseDSN(), machineRepository, machineRepository, recipeRepository)
	go func() {
		if err := feed.Run(ctx, dispatcher); err != nil && ctx.Err() == nil {
			log.Errorf("change feed %s stopped: %v", feed.Name(), err)
		}
	}()

	// Service
	jwtService := jwt.NewJWTService()
	staffService := staff.NewStaffService(staffRepository, jwtService)
	ingredientService := ingredient.NewIngredientService(ingredientRepository)
	recipeService := recipe.NewRecipeService(recipeRepository, ingredientRepository, pipeline, s3)
	machineService := machine.NewMachineService(machineRepository, pipeline, hub, throttle)
	orderService := order.NewOrderService(orderRepository, machineRepository, recipeRepository, pipeline)
	paymentService := payment.NewPaymentService(orderService)

	// Handler
	staffHandler := handlers.NewStaffHandler(staffService, validator)
	ingredientHandler := handlers.NewIngredientHandler(ingredientService, validator)
	recipeHandler := handlers.NewRecipeHandler(recipeService, validator)
	machineHandler := handlers.NewMachineHandler(machineService, validator)
	orderHandler := handlers.NewOrderHandler(orderService, validator)
	paymentHandler := handlers.NewPaymentHandler(paymentService, validator)
	realtimeHandler := handlers.NewRealtimeHandler(hub, machineService, recipeService)

	// routes
	routesConfig := routes.Config{
		App:               app,
		StaffHandler:      staffHandler,
		IngredientHandler: ingredientHandler,
		RecipeHandler:     recipeHandler,
		MachineHandler:    machineHandler,
		OrderHandler:      orderHandler,
		PaymentHandler:    paymentHandler,
		RealtimeHandler:   realtimeHandler,
		Middleware:        middlewares,
		JWTService:        jwtService,
	}
	routesConfig.Setup()
	return app, nil
}

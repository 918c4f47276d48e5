package routes

import (
	"kopimatic/domain"
	"kopimatic/internal/api/handlers"
	"kopimatic/internal/middleware"
	"kopimatic/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App               *fiber.App
	StaffHandler      handlers.StaffHandler
	IngredientHandler handlers.IngredientHandler
	RecipeHandler     handlers.RecipeHandler
	MachineHandler    handlers.MachineHandler
	OrderHandler      handlers.OrderHandler
	PaymentHandler    handlers.PaymentHandler
	RealtimeHandler   handlers.RealtimeHandler
	Middleware        middleware.Middleware
	JWTService        jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Staff()
	c.Ingredients()
	c.Recipes()
	c.Machines()
	c.Orders()
	c.GuestRoute()
	c.Realtime()
}

func (c *Config) Staff() {
	staff := c.App.Group("/api/v1/staff")
	{
		staff.Post("/register", c.StaffHandler.Register)
		staff.Post("/login", c.StaffHandler.Login)
		staff.Get("/me", c.Middleware.AuthMiddleware(c.JWTService), c.StaffHandler.Me)
		staff.Get("", c.Middleware.AuthMiddleware(c.JWTService), c.Middleware.RequireRoles(domain.RoleAdmin), c.StaffHandler.GetAllStaff)
		staff.Delete("/:id", c.Middleware.AuthMiddleware(c.JWTService), c.Middleware.RequireRoles(domain.RoleAdmin), c.StaffHandler.DeleteStaff)
	}
}

func (c *Config) Ingredients() {
	ingredients := c.App.Group("/api/v1/ingredients", c.Middleware.AuthMiddleware(c.JWTService))
	{
		ingredients.Post("", c.Middleware.RequireRoles(domain.RoleAdmin), c.IngredientHandler.CreateIngredient)
		ingredients.Get("", c.IngredientHandler.GetIngredients)
		ingredients.Get("/:id", c.IngredientHandler.GetIngredientByID)
		ingredients.Put("/:id", c.Middleware.RequireRoles(domain.RoleAdmin), c.IngredientHandler.UpdateIngredient)
		ingredients.Delete("/:id", c.Middleware.RequireRoles(domain.RoleAdmin), c.IngredientHandler.DeleteIngredient)
	}
}

func (c *Config) Recipes() {
	recipes := c.App.Group("/api/v1/recipes")
	// public catalog reads for the kiosks
	recipes.Get("", c.RecipeHandler.GetRecipes)
	recipes.Get("/:id", c.RecipeHandler.GetRecipeDetail)

	admin := recipes.Group("", c.Middleware.AuthMiddleware(c.JWTService), c.Middleware.RequireRoles(domain.RoleAdmin))
	{
		admin.Post("", c.RecipeHandler.CreateRecipe)
		admin.Put("/:id", c.RecipeHandler.UpdateRecipe)
		admin.Delete("/:id", c.RecipeHandler.DeleteRecipe)
		admin.Post("/image", c.RecipeHandler.UploadRecipeImage)
		admin.Put("/:id/ingredients", c.RecipeHandler.SetRecipeIngredients)
	}
}

func (c *Config) Machines() {
	machines := c.App.Group("/api/v1/machines")
	// public machine reads for the kiosks
	machines.Get("", c.MachineHandler.GetMachines)
	machines.Get("/:id", c.MachineHandler.GetMachineByID)
	machines.Get("/:id/availability", c.MachineHandler.GetAvailability)
	machines.Post("/:id/telemetry", c.MachineHandler.ReportTelemetry)

	staff := machines.Group("", c.Middleware.AuthMiddleware(c.JWTService))
	{
		staff.Post("", c.Middleware.RequireRoles(domain.RoleAdmin), c.MachineHandler.CreateMachine)
		staff.Put("/:id", c.Middleware.RequireRoles(domain.RoleAdmin), c.MachineHandler.UpdateMachine)
		staff.Delete("/:id", c.Middleware.RequireRoles(domain.RoleAdmin), c.MachineHandler.DeleteMachine)
		staff.Get("/:id/inventory", c.MachineHandler.GetInventory)
		staff.Put("/:id/inventory", c.MachineHandler.UpdateInventory)
		staff.Get("/:id/warnings", c.MachineHandler.GetStockWarnings)
	}
}

func (c *Config) Orders() {
	orders := c.App.Group("/api/v1/orders")
	// kiosks order without staff credentials
	orders.Post("", c.OrderHandler.CreateOrder)
	orders.Get("/:id", c.OrderHandler.GetOrderByID)
	orders.Post("/:id/rating", c.OrderHandler.RateOrder)
	orders.Post("/:id/payment", c.PaymentHandler.CreateTransaction)

	staff := orders.Group("", c.Middleware.AuthMiddleware(c.JWTService))
	{
		staff.Get("", c.OrderHandler.GetOrders)
		staff.Patch("/:id/status", c.OrderHandler.UpdateOrderStatus)
	}
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
	c.App.Post("/webhook/payment", c.PaymentHandler.PaymentWebhookHandler)
}

func (c *Config) Realtime() {
	c.App.Use("/ws", c.RealtimeHandler.Upgrade)
	c.App.Get("/ws", c.RealtimeHandler.Serve())
}

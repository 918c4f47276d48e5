package config

import (
	"fmt"
	"log"

	"kopimatic/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DatabaseDSN is shared by gorm and the pgx LISTEN connection, so both ends of
// the change feed talk to the same database.
func DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Jakarta",
		utils.GetConfig("DB_HOST"),
		utils.GetConfig("DB_USER"),
		utils.GetConfig("DB_PASSWORD"),
		utils.GetConfig("DB_NAME"),
		utils.GetConfig("DB_PORT"),
	)
}

func ConnectDB() (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DatabaseDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
		return nil, err
	}
	return db, nil
}

package db

import (
	"socialwall/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the Postgres database at dsn and migrates the schema.
func Init(dsn string) (*gorm.DB, error) {
	return Open(postgres.Open(dsn))
}

// Open connects through any gorm dialector; tests pass sqlite here.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("Database connection established")

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	zap.L().Info("Database migration completed")
	return conn, nil
}

func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Friendship{},
	)
}

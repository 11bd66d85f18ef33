package database

import (
	"fmt"
	"log"
	"time"

	"securebank/internal/config"
	"securebank/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitMySQL opens the connection pool and migrates the schema.
func InitMySQL(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// map driver errors such as 1062 onto gorm.ErrDuplicatedKey so
		// repositories can match them with errors.Is
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to MySQL: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get underlying DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(
		&model.User{},
		&model.Account{},
		&model.Card{},
		&model.Beneficiary{},
		&model.Transaction{},
		&model.Notification{},
		&model.OutboxMessage{},
	)
	if err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	DB = db
	log.Println("MySQL connected")
	return db
}

package database

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tutorhub_backend/internals/configs"
	linkModel "tutorhub_backend/internals/features/payments/links/model"
	partialModel "tutorhub_backend/internals/features/payments/partials/model"
	remModel "tutorhub_backend/internals/features/payments/reminders/model"
	settingsModel "tutorhub_backend/internals/features/payments/settings/model"
	txModel "tutorhub_backend/internals/features/payments/transactions/model"
)

var DB *gorm.DB

// DSN prefers DATABASE_URL, else builds one from DB_* with a statement timeout.
func DSN() string {
	if u := configs.GetEnv("DATABASE_URL"); u != "" {
		return u
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=tutorhub_payments&options=%s",
		url.QueryEscape(configs.GetEnv("DB_USER")),
		url.QueryEscape(configs.GetEnv("DB_PASSWORD")),
		configs.GetEnv("DB_HOST", "localhost"),
		configs.GetEnv("DB_PORT", "5432"),
		configs.GetEnv("DB_NAME"),
		configs.GetEnv("DB_SSLMODE", "require"),
		url.QueryEscape("-c statement_timeout=5000"),
	)
}

func ConnectDB() {
	log.Println("🔌 Connecting to PostgreSQL...")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  DSN(),
		PreferSimpleProtocol: true, // PgBouncer transaction pooling
	}), &gorm.Config{
		Logger:         configs.NewGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("❌ DB connection failed: %v", err)
	}
	DB = db
	log.Println("✅ DB connected.")
}

func TunePool() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

func WarmUpQueries() {
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := ping(); err != nil {
			log.Printf("warm-up ping err: %v", err)
			return
		}
		var n int64
		DB.Model(&linkModel.PaymentLink{}).Where("payment_link_status = ?", linkModel.LinkActive).Count(&n)
	}()
}

// Models lists every table owned by the payments backend.
func Models() []interface{} {
	return []interface{}{
		&settingsModel.PaymentSetting{},
		&linkModel.PaymentLink{},
		&partialModel.PartialPayment{},
		&txModel.Transaction{},
		&remModel.SentReminder{},
		&remModel.ScheduledReminder{},
		&remModel.ReminderRecipient{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

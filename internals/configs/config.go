package configs

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

var (
	JWTSecret string
	Conf      *viper.Viper
	App       AppConfig
)

// AppConfig is the typed view over env/.env consumed by main and the feature routes.
type AppConfig struct {
	Port              string
	PublicPayBaseURL  string
	PublicAPIBaseURL  string
	MidtransServerKey string
	MidtransProd      bool
	ExportDir         string
	OSSEndpoint       string
	OSSAccessKeyID    string
	OSSAccessSecret   string
	OSSBucket         string
	OSSSignedURLTTL   time.Duration
	RedisAddr         string
	RedisPassword     string
	CacheTTL          time.Duration
	SendgridAPIKey    string
	MailFromAddress   string
	MailFromName      string
	RollbarToken      string
	Environment       string
	SchedulerEnabled  bool
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ .env not found, using system ENV")
		} else {
			log.Println("✅ .env loaded")
		}
	} else {
		log.Println("🚀 Running in Railway, using system ENV")
	}

	Conf = newViper()
	App = AppConfig{
		Port:              Conf.GetString("PORT"),
		PublicPayBaseURL:  strings.TrimRight(Conf.GetString("PUBLIC_PAY_BASE_URL"), "/"),
		PublicAPIBaseURL:  strings.TrimRight(Conf.GetString("PUBLIC_API_BASE_URL"), "/"),
		MidtransServerKey: Conf.GetString("MIDTRANS_SERVER_KEY"),
		MidtransProd:      Conf.GetBool("MIDTRANS_PRODUCTION"),
		ExportDir:         Conf.GetString("EXPORT_DIR"),
		OSSEndpoint:       Conf.GetString("OSS_ENDPOINT"),
		OSSAccessKeyID:    Conf.GetString("OSS_ACCESS_KEY_ID"),
		OSSAccessSecret:   Conf.GetString("OSS_ACCESS_KEY_SECRET"),
		OSSBucket:         Conf.GetString("OSS_BUCKET_NAME"),
		OSSSignedURLTTL:   Conf.GetDuration("OSS_SIGNED_URL_TTL"),
		RedisAddr:         Conf.GetString("REDIS_ADDR"),
		RedisPassword:     Conf.GetString("REDIS_PASSWORD"),
		CacheTTL:          Conf.GetDuration("CACHE_TTL"),
		SendgridAPIKey:    Conf.GetString("SENDGRID_API_KEY"),
		MailFromAddress:   Conf.GetString("MAIL_FROM_ADDRESS"),
		MailFromName:      Conf.GetString("MAIL_FROM_NAME"),
		RollbarToken:      Conf.GetString("ROLLBAR_TOKEN"),
		Environment:       Conf.GetString("APP_ENV"),
		SchedulerEnabled:  Conf.GetBool("SCHEDULER_ENABLED"),
	}

	JWTSecret = Conf.GetString("JWT_SECRET")
	if JWTSecret == "" {
		log.Println("❌ JWT_SECRET is not set!")
	} else {
		log.Println("✅ JWT_SECRET loaded.")
	}
	if App.MidtransServerKey == "" {
		log.Println("⚠️ MIDTRANS_SERVER_KEY is not set, checkout and webhook verification disabled")
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("PORT", "8080")
	v.SetDefault("PUBLIC_PAY_BASE_URL", "http://localhost:3000")
	v.SetDefault("PUBLIC_API_BASE_URL", "http://localhost:8080")
	v.SetDefault("MIDTRANS_PRODUCTION", false)
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("OSS_SIGNED_URL_TTL", 15*time.Minute)
	v.SetDefault("CACHE_TTL", 2*time.Minute)
	v.SetDefault("MAIL_FROM_ADDRESS", "noreply@localhost")
	v.SetDefault("MAIL_FROM_NAME", "Payments")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.AutomaticEnv()
	return v
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	level := gormLogger.Warn
	if strings.EqualFold(GetEnv("DB_LOG_QUERIES"), "true") {
		level = gormLogger.Info
	}
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      level,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	nl := *l
	nl.LogLevel = level
	return &nl
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Printf("[INFO] "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Printf("[WARN] "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Printf("[ERROR] "+msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	switch {
	case err != nil && err != gormLogger.ErrRecordNotFound:
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	case elapsed > l.SlowThreshold:
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormLogger.Info:
		log.Printf("[QUERY] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}

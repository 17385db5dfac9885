package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"ListingHub/internal/config"
	"ListingHub/internal/modules/ingest/domain/listing"
	"ListingHub/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var GormDB *gorm.DB

// InitGorm opens the MySQL pool and migrates the ingestion tables. The pool
// recycles connections to dodge MySQL wait-timeout kills on idle links.
func InitGorm() error {
	conf := config.GetConfig()
	mc := conf.MysqlConfig
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		mc.User, mc.Password, mc.Host, mc.Port, mc.DatabaseName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(mc.MaxOpenConns)
	sqlDB.SetMaxIdleConns(mc.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(mc.ConnMaxLifetimeMinutes) * time.Minute)
	if err := sqlDB.Ping(); err != nil {
		return err
	}

	if err := db.AutoMigrate(
		&listing.RawListing{},
		&listing.FileRecord{},
		&listing.DeadLetterEntry{},
		&listing.StatsSummary{},
		&listing.StateCategorySummary{},
	); err != nil {
		return err
	}

	GormDB = db
	zlog.Info("mysql connected", zap.String("addr", fmt.Sprintf("%s:%d", mc.Host, mc.Port)))
	return nil
}

func CloseGorm() {
	if GormDB == nil {
		return
	}
	if sqlDB, err := GormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

package db

import (
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormopentracing "gorm.io/plugin/opentracing"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/model"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/config"
)

var DB *gorm.DB

// Init init DB
func Init() {
	var err error
	dsn := config.ConfigInfo.Mysql.Username + ":" + config.ConfigInfo.Mysql.Password + "@tcp(" + config.ConfigInfo.Mysql.Addr + ")/" + config.ConfigInfo.Mysql.Database + "?charset=utf8mb4&parseTime=True&loc=Local"
	DB, err = gorm.Open(mysql.Open(dsn),
		&gorm.Config{
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		panic(err)
	}
	if err = DB.Use(gormopentracing.New()); err != nil {
		panic(err)
	}

	if err = migrateCounterTables(); err != nil {
		panic(err)
	}
}

// migrateCounterTables 迁移计数与幂等账本表
func migrateCounterTables() error {
	hlog.Info("Starting counter tables migration...")

	if err := DB.AutoMigrate(&model.VideoCounters{}, &model.ProcessedEvent{}); err != nil {
		hlog.Errorf("Failed to migrate counter tables: %v", err)
		return err
	}

	hlog.Info("Counter tables migration completed successfully")
	return nil
}

package db

import (
	"github.com/suPer8Hu/chat-relay/internal/archive"
	"github.com/suPer8Hu/chat-relay/internal/logging"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the archive database and migrates its schema. It exits the
// process on failure.
func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("connect mysql")
	}
	if err := gdb.AutoMigrate(&archive.Record{}); err != nil {
		logging.Fatal().Err(err).Msg("automigrate")
	}
	return gdb
}

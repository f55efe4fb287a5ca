package database

import (
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schema lists every table, parents before children.
var schema = []any{
	&Project{},
	&Function{},
	&FunctionVersion{},
	&Route{},
	&EnvVar{},
	&Invocation{},
}

// New opens the SQLite store at path and migrates the schema.
// Failures are fatal: nothing can run without the database.
func New(path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("database: failed to open %s: %v", path, err)
	}

	if err := db.AutoMigrate(schema...); err != nil {
		log.Fatalf("database: migration failed: %v", err)
	}

	return db
}

package database

import (
	"stablehub/internal/access"
	"stablehub/internal/audit"
	"stablehub/internal/directory"
	"stablehub/internal/facilities"
	"stablehub/internal/reservations"
	"stablehub/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&access.Stable{},
		&access.StableMember{},
		&directory.Horse{},
		&facilities.Facility{},
		&reservations.Reservation{},
		&audit.Entry{},
	)
}

package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the reservation constraints AutoMigrate cannot express.
func MigrateConstraints(db *gorm.DB) error {
	statements := []string{
		// A reservation always covers a positive span.
		`DO $$ BEGIN
			ALTER TABLE facility_reservations
			ADD CONSTRAINT chk_reservation_window CHECK (end_time > start_time);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;`,

		`DO $$ BEGIN
			ALTER TABLE facility_reservations
			ADD CONSTRAINT chk_reservation_horses CHECK (jsonb_array_length(horse_ids) >= 1);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;`,

		// Overlap lookups only ever consider active reservations.
		`CREATE INDEX IF NOT EXISTS idx_reservation_active_window
			ON facility_reservations (facility_id, start_time, end_time)
			WHERE status IN ('pending', 'confirmed');`,

		`CREATE INDEX IF NOT EXISTS idx_reservation_completion
			ON facility_reservations (end_time)
			WHERE status = 'confirmed';`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

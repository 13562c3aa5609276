package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/availability"
	"stablehub/internal/directory"
	"stablehub/internal/facilities"
	"stablehub/internal/reservations"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/database"
	"stablehub/internal/shared/middleware"
	"stablehub/internal/users"
	"stablehub/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/datatypes"
)

type Seeder struct {
	db  *database.DB
	cfg *config.Config
}

type seededUser struct {
	user users.User
	role access.MemberRole
}

func main() {
	fmt.Println("🌱 Starting StableHub Database Seeder...")

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := database.InitDB(ctx, cfg, logger.New())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, cfg: cfg}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(ctx); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates the seeded tables, dependents first.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"audit_entries",
		"facility_reservations",
		"facilities",
		"horses",
		"stable_members",
		"stables",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds one demo stable with members, horses, facilities and a
// handful of reservations for tomorrow.
func (s *Seeder) SeedAll(ctx context.Context) error {
	people, err := s.SeedUsers()
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	stable, err := s.SeedStable(people)
	if err != nil {
		return fmt.Errorf("failed to seed stable: %w", err)
	}

	horses, err := s.SeedHorses(stable.ID)
	if err != nil {
		return fmt.Errorf("failed to seed horses: %w", err)
	}

	facilityList, err := s.SeedFacilities(stable.ID, people["owner"].user.ID)
	if err != nil {
		return fmt.Errorf("failed to seed facilities: %w", err)
	}

	if err := s.SeedReservations(stable.ID, facilityList, horses, people["rider"].user); err != nil {
		return fmt.Errorf("failed to seed reservations: %w", err)
	}

	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}

	return s.PrintTokens(people)
}

func (s *Seeder) SeedUsers() (map[string]seededUser, error) {
	fmt.Println("  👤 Seeding users...")

	usersData := []struct {
		key       string
		firstName string
		lastName  string
		email     string
		role      users.Role
		member    access.MemberRole
	}{
		{"admin", "Admin", "User", "admin@stablehub.local", users.RoleAdmin, ""},
		{"owner", "Olivia", "Owner", "owner@stablehub.local", users.RoleUser, access.MemberRoleOwner},
		{"manager", "Max", "Manager", "manager@stablehub.local", users.RoleUser, access.MemberRoleManager},
		{"rider", "Rita", "Rider", "rider@stablehub.local", users.RoleUser, access.MemberRoleMember},
	}

	seeded := make(map[string]seededUser, len(usersData))
	for _, data := range usersData {
		user := users.User{
			ID:        uuid.New(),
			FirstName: data.firstName,
			LastName:  data.lastName,
			Email:     data.email,
			Role:      data.role,
		}
		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", data.email, err)
		}
		seeded[data.key] = seededUser{user: user, role: data.member}
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.Role)
	}
	return seeded, nil
}

func (s *Seeder) SeedStable(people map[string]seededUser) (*access.Stable, error) {
	fmt.Println("  🐴 Seeding stable...")

	stable := &access.Stable{
		ID:      uuid.New(),
		Name:    "Sunny Meadows Equestrian",
		OwnerID: people["owner"].user.ID,
	}
	if err := s.db.PostgreSQL.Create(stable).Error; err != nil {
		return nil, err
	}

	for _, p := range people {
		if p.role == "" {
			continue
		}
		member := access.StableMember{ID: uuid.New(), StableID: stable.ID, UserID: p.user.ID, Role: p.role}
		if err := s.db.PostgreSQL.Create(&member).Error; err != nil {
			return nil, fmt.Errorf("failed to add member %s: %w", p.user.Email, err)
		}
	}

	fmt.Printf("    ✅ Created stable: %s (%s)\n", stable.Name, stable.ID)
	return stable, nil
}

func (s *Seeder) SeedHorses(stableID uuid.UUID) ([]uuid.UUID, error) {
	fmt.Println("  🐎 Seeding horses...")

	names := []string{"Bella", "Comet", "Duke", "Luna", "Storm", "Willow"}
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		horse := directory.Horse{ID: uuid.New(), StableID: stableID, Name: name}
		if err := s.db.PostgreSQL.Create(&horse).Error; err != nil {
			return nil, fmt.Errorf("failed to create horse %s: %w", name, err)
		}
		ids = append(ids, horse.ID)
	}
	fmt.Printf("    ✅ Created %d horses\n", len(ids))
	return ids, nil
}

func (s *Seeder) SeedFacilities(stableID, ownerID uuid.UUID) ([]facilities.Facility, error) {
	fmt.Println("  🏟️  Seeding facilities...")

	weekdays := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	workweek := availability.WeeklySchedule{}
	for _, day := range weekdays {
		workweek[day] = []availability.TimeBlock{
			{StartTime: "07:00", EndTime: "12:00"},
			{StartTime: "13:00", EndTime: "21:00"},
		}
	}
	workweek["saturday"] = []availability.TimeBlock{{StartTime: "08:00", EndTime: "18:00"}}

	christmas := fmt.Sprintf("%d-12-25", time.Now().Year())
	thirty := 30

	data := []struct {
		name     string
		kind     facilities.Type
		max      int
		slot     *int
		schedule *availability.Schedule
	}{
		{"Indoor arena", facilities.TypeIndoorArena, 4, &thirty, &availability.Schedule{
			Weekly:    workweek,
			Overrides: []availability.DateOverride{{Date: christmas, Blocks: []availability.TimeBlock{}}},
		}},
		{"Outdoor arena", facilities.TypeArena, 6, nil, nil},
		{"Horse walker", facilities.TypeWalker, 3, &thirty, &availability.Schedule{
			Weekly: availability.WeeklySchedule{"monday": {{StartTime: "06:00", EndTime: "10:00"}}},
		}},
		{"Solarium", facilities.TypeSolarium, 1, nil, nil},
	}

	list := make([]facilities.Facility, 0, len(data))
	for _, d := range data {
		f := facilities.Facility{
			ID:                      uuid.New(),
			StableID:                stableID,
			Name:                    d.name,
			Type:                    d.kind,
			Status:                  facilities.StatusActive,
			MaxHorsesPerReservation: d.max,
			MinTimeSlotDuration:     d.slot,
			Timezone:                s.cfg.Reservation.DefaultTimezone,
			CreatedBy:               ownerID,
			LastModifiedBy:          ownerID,
		}
		if d.schedule != nil {
			f.SetSchedule(availability.Normalize(*d.schedule))
		}
		if err := s.db.PostgreSQL.Create(&f).Error; err != nil {
			return nil, fmt.Errorf("failed to create facility %s: %w", d.name, err)
		}
		list = append(list, f)
		fmt.Printf("    ✅ Created facility: %s (max %d horses)\n", f.Name, f.MaxHorsesPerReservation)
	}
	return list, nil
}

// SeedReservations books the outdoor arena, which runs on the default
// daily schedule, so the rows are valid whatever weekday tomorrow is.
func (s *Seeder) SeedReservations(stableID uuid.UUID, list []facilities.Facility, horses []uuid.UUID, rider users.User) error {
	fmt.Println("  📅 Seeding reservations...")

	arena := list[1]
	loc := arena.Location(s.cfg.Reservation.DefaultTimezone)
	now := time.Now().In(loc)
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)

	bookings := []struct {
		startHour int
		hours     int
		horses    []uuid.UUID
		status    reservations.Status
	}{
		{9, 1, horses[:2], reservations.StatusConfirmed},
		{9, 2, horses[2:4], reservations.StatusPending},
		{14, 1, horses[4:5], reservations.StatusConfirmed},
		{16, 1, horses[5:6], reservations.StatusCancelled},
	}

	for _, b := range bookings {
		start := tomorrow.Add(time.Duration(b.startHour) * time.Hour)
		r := reservations.Reservation{
			ID:             uuid.New(),
			FacilityID:     arena.ID,
			StableID:       stableID,
			UserID:         rider.ID,
			HorseIDs:       datatypes.JSONSlice[uuid.UUID](b.horses),
			StartTime:      start.UTC(),
			EndTime:        start.Add(time.Duration(b.hours) * time.Hour).UTC(),
			Status:         b.status,
			Purpose:        "Flatwork",
			FacilityName:   arena.Name,
			FacilityType:   string(arena.Type),
			UserName:       rider.DisplayName(),
			UserEmail:      rider.Email,
			CreatedBy:      rider.ID,
			LastModifiedBy: rider.ID,
			Version:        1,
		}
		if err := s.db.PostgreSQL.Create(&r).Error; err != nil {
			return fmt.Errorf("failed to create reservation at %s: %w", start.Format(time.RFC3339), err)
		}
	}
	fmt.Printf("    ✅ Created %d reservations on %s\n", len(bookings), arena.Name)
	return nil
}

// PrintTokens issues a day-long access token per seeded user.
func (s *Seeder) PrintTokens(people map[string]seededUser) error {
	fmt.Println("\n🔑 Access tokens (24h):")
	for _, key := range []string{"admin", "owner", "manager", "rider"} {
		u := people[key].user
		token, err := middleware.IssueAccessToken(s.cfg.JWT, access.Actor{
			ID:          u.ID,
			Role:        u.Role,
			Email:       u.Email,
			DisplayName: u.DisplayName(),
		}, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("failed to issue token for %s: %w", u.Email, err)
		}
		fmt.Printf("  %-8s %s\n", key, token)
	}
	return nil
}

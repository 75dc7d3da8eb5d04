package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB opens a private in-memory SQLite database with every model migrated.
// A single connection keeps the in-memory database alive and shared for the whole test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), config.GormConfig("silent"))
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")
	return db
}

// SeedUser inserts a user with its default profile
func SeedUser(t *testing.T, db *gorm.DB, username string, staff bool) *models.User {
	t.Helper()

	auth0ID := "auth0|" + username
	user := models.User{
		Auth0ID:  &auth0ID,
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
		IsStaff:  staff,
	}
	require.NoError(t, db.Create(&user).Error)

	profile := models.NewDefaultProfile()
	profile.UserID = user.ID
	require.NoError(t, db.Create(&profile).Error)
	user.Profile = &profile
	return &user
}

// SeedProperty inserts an active property
func SeedProperty(t *testing.T, db *gorm.DB, propertyID, name string) *models.Property {
	t.Helper()

	property := models.Property{PropertyID: propertyID, Name: name, IsActive: true}
	require.NoError(t, db.Create(&property).Error)
	return &property
}

// SeedRoom inserts an active room in property
func SeedRoom(t *testing.T, db *gorm.DB, property *models.Property, roomID, name string) *models.Room {
	t.Helper()

	room := models.Room{RoomID: roomID, Name: name, PropertyRefID: property.ID, IsActive: true}
	require.NoError(t, db.Create(&room).Error)
	return &room
}

// SeedMachine inserts an active machine in property, optionally in room
func SeedMachine(t *testing.T, db *gorm.DB, property *models.Property, room *models.Room, machineID string) *models.Machine {
	t.Helper()

	machine := models.Machine{MachineID: machineID, Name: "Machine " + machineID, Status: "active", PropertyRefID: property.ID, IsActive: true}
	if room != nil {
		machine.RoomRefID = &room.ID
	}
	require.NoError(t, db.Create(&machine).Error)
	return &machine
}

// Tomorrow returns a UTC time one day ahead, safe for "not in the past" rules
func Tomorrow() time.Time {
	return time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("Failed to verify GO_ENV=test")
	}
}

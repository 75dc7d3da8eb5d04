package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserTableName(t *testing.T) {
	user := User{}
	assert.Equal(t, "users", user.TableName(), "Table name should be 'users'")
	assert.Equal(t, "user_profiles", UserProfile{}.TableName())
}

func TestUserFullName(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{"first and last", User{Username: "jdoe", FirstName: "Jane", LastName: "Doe"}, "Jane Doe"},
		{"first only", User{Username: "jdoe", FirstName: "Jane"}, "Jane"},
		{"last only falls back", User{Username: "jdoe", LastName: "Doe"}, "jdoe"},
		{"no names", User{Username: "jdoe"}, "jdoe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.FullName())
		})
	}
}

func TestNewDefaultProfile(t *testing.T) {
	profile := NewDefaultProfile()

	assert.Equal(t, RoleTechnician, profile.Role)
	assert.Equal(t, DepartmentMaintenance, profile.Department)
	assert.Equal(t, "en", profile.PreferredLanguage)
	assert.Equal(t, "UTC", profile.Timezone)
	assert.True(t, profile.IsActive)
	assert.NotNil(t, profile.Skills, "skills should serialize as an empty list")
	assert.Empty(t, profile.Skills)
	assert.NotNil(t, profile.NotificationPreferences)
}

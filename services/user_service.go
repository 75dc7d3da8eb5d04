package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lastnext/maintenance-api/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProfileInput carries the writable profile fields; nil means "leave unchanged"
type ProfileInput struct {
	Role                    *string                `json:"role" validate:"omitempty,oneof=admin manager technician supervisor"`
	Department              *string                `json:"department" validate:"omitempty,oneof=maintenance operations management support"`
	PhoneNumber             *string                `json:"phone_number" validate:"omitempty,max=20"`
	Bio                     *string                `json:"bio"`
	Skills                  []string               `json:"skills"`
	Certifications          []string               `json:"certifications"`
	EmergencyContact        map[string]interface{} `json:"emergency_contact"`
	PreferredLanguage       *string                `json:"preferred_language" validate:"omitempty,max=10"`
	Timezone                *string                `json:"timezone" validate:"omitempty,max=50"`
	NotificationPreferences map[string]interface{} `json:"notification_preferences"`
	IsActive                *bool                  `json:"is_active"`
}

func (in *ProfileInput) apply(p *models.UserProfile) {
	if in == nil {
		return
	}
	if in.Role != nil {
		p.Role = *in.Role
	}
	if in.Department != nil {
		p.Department = *in.Department
	}
	if in.PhoneNumber != nil {
		p.PhoneNumber = in.PhoneNumber
	}
	if in.Bio != nil {
		p.Bio = in.Bio
	}
	if in.Skills != nil {
		p.Skills = datatypes.JSONSlice[string](in.Skills)
	}
	if in.Certifications != nil {
		p.Certifications = datatypes.JSONSlice[string](in.Certifications)
	}
	if in.EmergencyContact != nil {
		p.EmergencyContact = datatypes.JSONMap(in.EmergencyContact)
	}
	if in.PreferredLanguage != nil {
		p.PreferredLanguage = *in.PreferredLanguage
	}
	if in.Timezone != nil {
		p.Timezone = *in.Timezone
	}
	if in.NotificationPreferences != nil {
		p.NotificationPreferences = datatypes.JSONMap(in.NotificationPreferences)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

// CreateUserInput is the payload for creating a user
type CreateUserInput struct {
	Username    string        `json:"username" validate:"required,max=150"`
	Email       string        `json:"email" validate:"required,email"`
	FirstName   string        `json:"first_name" validate:"max=150"`
	LastName    string        `json:"last_name" validate:"max=150"`
	PhoneNumber *string       `json:"phone_number" validate:"omitempty,max=20"`
	IsActive    *bool         `json:"is_active"`
	IsStaff     *bool         `json:"is_staff"`
	Auth0ID     *string       `json:"-"`
	Profile     *ProfileInput `json:"profile"`
}

// UpdateUserInput is the payload for updating a user; nil fields are left unchanged
type UpdateUserInput struct {
	Username    *string       `json:"username" validate:"omitempty,max=150"`
	Email       *string       `json:"email" validate:"omitempty,email"`
	FirstName   *string       `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string       `json:"last_name" validate:"omitempty,max=150"`
	PhoneNumber *string       `json:"phone_number" validate:"omitempty,max=20"`
	IsActive    *bool         `json:"is_active"`
	IsStaff     *bool         `json:"is_staff"`
	Profile     *ProfileInput `json:"profile"`
}

// UserStatistics summarizes a user's job workload
type UserStatistics struct {
	AssignedJobs      int64            `json:"assigned_jobs"`
	CompletedJobs     int64            `json:"completed_jobs"`
	CreatedJobs       int64            `json:"created_jobs"`
	JobCompletionRate float64          `json:"job_completion_rate"`
	RecentActivity    []RecentActivity `json:"recent_activity"`
}

// RecentActivity is a short view of a recently updated job
type RecentActivity struct {
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

var userListSpec = listSpec{
	table:        "users",
	searchFields: []string{"username", "email", "first_name", "last_name", "phone_number"},
	ordering: map[string]string{
		"created_at":  "created_at",
		"date_joined": "date_joined",
		"username":    "username",
		"email":       "email",
	},
}

// UserService manages users and their profiles
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a user service backed by db
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Create inserts a user together with its profile. When no profile payload is
// given the profile gets the defaults (technician, maintenance).
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user := models.User{
		Auth0ID:     in.Auth0ID,
		Username:    in.Username,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		IsActive:    true,
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsStaff != nil {
		user.IsStaff = *in.IsStaff
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkUnique(tx, 0, &user.Username, &user.Email); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return writeError(err, "user", "username or email", "")
		}

		profile := models.NewDefaultProfile()
		in.Profile.apply(&profile)
		profile.UserID = user.ID
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		user.Profile = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// checkUnique reports which unique field is already taken by another user
func (s *UserService) checkUnique(tx *gorm.DB, selfID uint, username, email *string) error {
	if username != nil {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", *username, selfID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if count > 0 {
			return &ConflictError{Resource: "user", Field: "username", Value: *username}
		}
	}
	if email != nil {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", *email, selfID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return &ConflictError{Resource: "user", Field: "email", Value: *email}
		}
	}
	return nil
}

// RegisterIdentity creates the user behind an Auth0 subject on first sign-in
func (s *UserService) RegisterIdentity(ctx context.Context, auth0ID, email, name string) (*models.User, error) {
	if _, err := s.GetByAuth0ID(ctx, auth0ID); err == nil {
		return nil, &ConflictError{Resource: "user", Field: "auth0_id", Value: auth0ID}
	} else if !isNotFound(err) {
		return nil, err
	}

	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	username, _, _ := strings.Cut(email, "@")
	return s.Create(ctx, CreateUserInput{
		Username:  username,
		Email:     email,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Auth0ID:   &auth0ID,
	})
}

// Get loads a user with its profile
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, lookupError(err, "user", id)
	}
	return &user, nil
}

// GetByAuth0ID loads the user linked to an Auth0 subject
func (s *UserService) GetByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		return nil, lookupError(err, "user", auth0ID)
	}
	return &user, nil
}

// Profile returns the profile of a user
func (s *UserService) Profile(ctx context.Context, id uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", id).First(&profile).Error; err != nil {
		return nil, lookupError(err, "user", id)
	}
	return &profile, nil
}

// List returns a page of users. Filters: is_active, is_staff.
func (s *UserService) List(ctx context.Context, p ListParams) (*Page[models.User], error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	q, err := userListSpec.applyBool(q, p, "is_active", "is_active")
	if err != nil {
		return nil, err
	}
	if q, err = userListSpec.applyBool(q, p, "is_staff", "is_staff"); err != nil {
		return nil, err
	}
	q = userListSpec.applySearch(q, p.Search)
	return paginate[models.User](q, p, userListSpec, "Profile")
}

// Update changes user and profile fields
func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	if in.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*in.Email))
		in.Email = &email
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return lookupError(err, "user", id)
		}
		if err := s.checkUnique(tx, user.ID, in.Username, in.Email); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Username != nil {
			updates["username"] = *in.Username
		}
		if in.Email != nil {
			updates["email"] = *in.Email
		}
		if in.FirstName != nil {
			updates["first_name"] = *in.FirstName
		}
		if in.LastName != nil {
			updates["last_name"] = *in.LastName
		}
		if in.PhoneNumber != nil {
			updates["phone_number"] = *in.PhoneNumber
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if in.IsStaff != nil {
			updates["is_staff"] = *in.IsStaff
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return writeError(err, "user", "username or email", "")
			}
		}

		if in.Profile != nil {
			profile := models.NewDefaultProfile()
			err := tx.Where("user_id = ?", user.ID).First(&profile).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to load profile: %w", err)
			}
			in.Profile.apply(&profile)
			profile.UserID = user.ID
			if err := tx.Save(&profile).Error; err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a user. The profile, the jobs the user created, their
// uploads and the history they performed go with it; assignments and
// checklist completions are cleared.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return lookupError(err, "user", id)
		}

		if err := tx.Model(&models.Job{}).Where("assigned_to_id = ?", id).Update("assigned_to_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear job assignments: %w", err)
		}
		if err := tx.Model(&models.JobChecklistItem{}).Where("completed_by_id = ?", id).Update("completed_by_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear checklist completions: %w", err)
		}
		if err := deleteJobs(tx, tx.Model(&models.Job{}).Select("id").Where("created_by_id = ?", id)); err != nil {
			return err
		}
		if err := tx.Where("uploaded_by_id = ?", id).Delete(&models.JobAttachment{}).Error; err != nil {
			return fmt.Errorf("failed to delete attachments: %w", err)
		}
		if err := tx.Where("performed_by_id = ?", id).Delete(&models.JobHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete history: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UserProfile{}).Error; err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

// Statistics summarizes the jobs assigned to and created by a user
func (s *UserService) Statistics(ctx context.Context, id uint) (*UserStatistics, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	stats := &UserStatistics{RecentActivity: []RecentActivity{}}
	if err := db.Model(&models.Job{}).Where("assigned_to_id = ?", id).Count(&stats.AssignedJobs).Error; err != nil {
		return nil, fmt.Errorf("failed to count assigned jobs: %w", err)
	}
	if err := db.Model(&models.Job{}).Where("assigned_to_id = ? AND status = ?", id, models.JobStatusCompleted).
		Count(&stats.CompletedJobs).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed jobs: %w", err)
	}
	if err := db.Model(&models.Job{}).Where("created_by_id = ?", id).Count(&stats.CreatedJobs).Error; err != nil {
		return nil, fmt.Errorf("failed to count created jobs: %w", err)
	}
	stats.JobCompletionRate = completionRate(stats.CompletedJobs, stats.AssignedJobs)

	if err := db.Model(&models.Job{}).
		Select("job_id", "title", "status", "updated_at").
		Where("assigned_to_id = ?", id).
		Order("updated_at DESC").Order("id DESC").
		Limit(5).
		Scan(&stats.RecentActivity).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	return stats, nil
}

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

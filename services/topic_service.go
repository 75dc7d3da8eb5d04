package services

import (
	"context"
	"fmt"

	"github.com/lastnext/maintenance-api/models"
	"gorm.io/gorm"
)

// TopicInput is the payload for creating or replacing a topic
type TopicInput struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description *string `json:"description"`
}

// UpdateTopicInput is the payload for partially updating a topic
type UpdateTopicInput struct {
	Title       *string `json:"title" validate:"omitempty,max=100"`
	Description *string `json:"description"`
}

var topicListSpec = listSpec{
	table:        "topics",
	searchFields: []string{"title", "description"},
	ordering: map[string]string{
		"created_at": "created_at",
		"title":      "title",
	},
}

// TopicService manages maintenance topics
type TopicService struct {
	db *gorm.DB
}

// NewTopicService creates a topic service backed by db
func NewTopicService(db *gorm.DB) *TopicService {
	return &TopicService{db: db}
}

// Create inserts a topic
func (s *TopicService) Create(ctx context.Context, in TopicInput) (*models.Topic, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	topic := models.Topic{Title: in.Title, Description: in.Description}
	if err := s.db.WithContext(ctx).Create(&topic).Error; err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return &topic, nil
}

// Get loads a topic by id
func (s *TopicService) Get(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	if err := s.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, lookupError(err, "topic", id)
	}
	return &topic, nil
}

// List returns a page of topics
func (s *TopicService) List(ctx context.Context, p ListParams) (*Page[models.Topic], error) {
	q := topicListSpec.applySearch(s.db.WithContext(ctx).Model(&models.Topic{}), p.Search)
	return paginate[models.Topic](q, p, topicListSpec)
}

// Update changes a topic's title or description
func (s *TopicService) Update(ctx context.Context, id uint, in UpdateTopicInput) (*models.Topic, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Title != nil && *in.Title == "" {
		return nil, NewValidationError("title", "This field may not be blank")
	}
	topic, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	setIfPresent(updates, "title", in.Title)
	setIfPresent(updates, "description", in.Description)
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(topic).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update topic: %w", err)
		}
	}
	return s.Get(ctx, id)
}

// Delete removes a topic and its links to maintenance tasks
func (s *TopicService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic models.Topic
		if err := tx.First(&topic, id).Error; err != nil {
			return lookupError(err, "topic", id)
		}
		if err := tx.Exec("DELETE FROM preventive_maintenance_topics WHERE topic_id = ?", topic.ID).Error; err != nil {
			return fmt.Errorf("failed to delete topic links: %w", err)
		}
		if err := tx.Delete(&topic).Error; err != nil {
			return fmt.Errorf("failed to delete topic: %w", err)
		}
		return nil
	})
}

package apitest

import (
	"time"

	"github.com/google/uuid"
	"github.com/propdesk/cli/internal/api"
	"gorm.io/gorm"
)

// ActivityRecord is an append-only activity row. Actor and resource
// summaries are denormalized so a row renders without joins.
type ActivityRecord struct {
	ID              uuid.UUID              `gorm:"type:uuid;primaryKey"`
	Role            string                 `gorm:"type:varchar(30);not null;index"`
	PropertyID      string                 `gorm:"type:varchar(36);index"`
	Action          string                 `gorm:"type:varchar(50);not null;index"`
	ResourceType    string                 `gorm:"type:varchar(30);not null"`
	ResourceID      *string                `gorm:"type:varchar(36);index"`
	ResourceTitle   string                 `gorm:"type:varchar(255)"`
	ResourceAddress string                 `gorm:"type:varchar(255)"`
	ActorID         string                 `gorm:"type:varchar(36);index"`
	ActorName       string                 `gorm:"type:varchar(255)"`
	ActorEmail      string                 `gorm:"type:varchar(255)"`
	ActorRole       string                 `gorm:"type:varchar(30)"`
	Details         map[string]interface{} `gorm:"type:text;serializer:json"`
	IPAddress       string                 `gorm:"type:varchar(45)"`
	CreatedAt       time.Time              `gorm:"not null;index"`
}

func (a *ActivityRecord) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (ActivityRecord) TableName() string {
	return "activity_logs"
}

func (a ActivityRecord) entry() api.ActivityEntry {
	e := api.ActivityEntry{
		ID:           api.ID(a.ID.String()),
		Action:       a.Action,
		ResourceType: a.ResourceType,
		Actor: api.Actor{
			ID:    api.ID(a.ActorID),
			Name:  a.ActorName,
			Email: a.ActorEmail,
			Role:  a.ActorRole,
		},
		Details:   a.Details,
		IPAddress: a.IPAddress,
		CreatedAt: a.CreatedAt,
	}
	if a.ResourceID != nil {
		id := api.ID(*a.ResourceID)
		e.ResourceID = &id
	}
	if a.ResourceTitle != "" || a.ResourceAddress != "" {
		e.Resource = &api.ResourceSummary{Title: a.ResourceTitle, Address: a.ResourceAddress}
	}
	return e
}

// MessageRecord is one message of a tenant thread.
type MessageRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadID    string    `gorm:"type:varchar(36);not null;index"`
	SenderID    string    `gorm:"type:varchar(36)"`
	SenderName  string    `gorm:"type:varchar(255)"`
	SenderEmail string    `gorm:"type:varchar(255)"`
	Body        string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (m *MessageRecord) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (m MessageRecord) message() api.Message {
	return api.Message{
		ID:        api.ID(m.ID.String()),
		ThreadID:  api.ID(m.ThreadID),
		Sender:    api.Actor{ID: api.ID(m.SenderID), Name: m.SenderName, Email: m.SenderEmail},
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

// PropertyRecord is a managed property.
type PropertyRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Address   string    `gorm:"type:varchar(255)"`
	Status    string    `gorm:"type:varchar(30)"`
	OwnerID   string    `gorm:"type:varchar(36);index"`
	Rent      float64
	CreatedAt time.Time `gorm:"not null"`
}

func (p *PropertyRecord) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (p PropertyRecord) property() api.Property {
	return api.Property{
		ID:        api.ID(p.ID.String()),
		Title:     p.Title,
		Address:   p.Address,
		Status:    p.Status,
		OwnerID:   api.ID(p.OwnerID),
		Rent:      p.Rent,
		CreatedAt: p.CreatedAt,
	}
}

// PhotoRecord is an uploaded property photo. Only metadata is kept.
type PhotoRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index"`
	FileName   string    `gorm:"type:varchar(255)"`
	Size       int64
	Caption    string    `gorm:"type:varchar(200)"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (p *PhotoRecord) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}

// TaskRecord is a maintenance task visible to one role's endpoint group.
type TaskRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role       string    `gorm:"type:varchar(30);not null;index"`
	PropertyID string    `gorm:"type:varchar(36)"`
	Title      string    `gorm:"type:varchar(255);not null"`
	Status     string    `gorm:"type:varchar(20);not null;index"`
	AssigneeID *string   `gorm:"type:varchar(36)"`
	DueAt      *time.Time
	UpdatedAt  time.Time
}

func (t *TaskRecord) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t TaskRecord) task() api.Task {
	out := api.Task{
		ID:         api.ID(t.ID.String()),
		PropertyID: api.ID(t.PropertyID),
		Title:      t.Title,
		Status:     t.Status,
		DueAt:      t.DueAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if t.AssigneeID != nil {
		id := api.ID(*t.AssigneeID)
		out.AssigneeID = &id
	}
	return out
}

package models

import "time"

// PublicationStatus is shared by activities and information pages.
type PublicationStatus string

const (
	StatusDraft     PublicationStatus = "DRAFT"
	StatusHidden    PublicationStatus = "HIDDEN"
	StatusPublished PublicationStatus = "PUBLISHED"
)

// Valid reports whether the status is one of the known values.
func (s PublicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusHidden, StatusPublished:
		return true
	}
	return false
}

// ActivityType groups activities (yoga, meditation, breathing...).
type ActivityType struct {
	ID        int64      `db:"id" json:"id"`
	Label     string     `db:"label" json:"label"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Activity is a catalogued relaxation exercise.
type Activity struct {
	ID              int64             `db:"id" json:"id"`
	Name            string            `db:"name" json:"name"`
	Description     string            `db:"description" json:"description"`
	Thumbnail       *string           `db:"thumbnail" json:"thumbnail,omitempty"`
	Duration        int               `db:"duration" json:"duration"`
	StressLevel     int               `db:"stress_level" json:"stress_level"`
	Status          PublicationStatus `db:"status" json:"status"`
	TypeID          int64             `db:"type_id" json:"type_id"`
	PublicationDate *time.Time        `db:"publication_date" json:"publication_date,omitempty"`
	DeletedAt       *time.Time        `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
	Type            *ActivityType     `db:"-" json:"type,omitempty"`
}

// ActivityFilter captures catalogue search criteria.
type ActivityFilter struct {
	Status      PublicationStatus
	Query       string
	TypeID      *int64
	StressLevel *int
	Page        int
	PageSize    int
}

// Favorite links a user to an activity they bookmarked.
type Favorite struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	ActivityID int64     `db:"activity_id" json:"activity_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Activity   *Activity `db:"-" json:"activity,omitempty"`
}

// InformationPage is an editorial page shown in menus.
type InformationPage struct {
	ID          int64             `db:"id" json:"id"`
	Title       string            `db:"title" json:"title"`
	Content     string            `db:"content" json:"content"`
	Thumbnail   *string           `db:"thumbnail" json:"thumbnail,omitempty"`
	Status      PublicationStatus `db:"status" json:"status"`
	PublishedAt *time.Time        `db:"published_at" json:"published_at,omitempty"`
	DeletedAt   *time.Time        `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// InformationMenu orders a set of pages under a label.
type InformationMenu struct {
	ID        int64             `db:"id" json:"id"`
	Label     string            `db:"label" json:"label"`
	PageIDs   []int64           `db:"-" json:"page_ids"`
	DeletedAt *time.Time        `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
	Pages     []InformationPage `db:"-" json:"pages,omitempty"`
}

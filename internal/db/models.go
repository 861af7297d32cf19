package db

import (
	"encoding/json"
	"time"
)

// Source maps briefing.sources.
type Source struct {
	SourceID       string  `gorm:"column:source_id;type:text;primaryKey"`
	Name           string  `gorm:"column:name;type:text;not null"`
	Curated        bool    `gorm:"column:curated;type:boolean;not null;default:false"`
	LowReliability bool    `gorm:"column:low_reliability;type:boolean;not null;default:false"`
	Leaning        *string `gorm:"column:leaning;type:text"`
}

func (Source) TableName() string { return "briefing.sources" }

// ContentItem maps briefing.content_items.
type ContentItem struct {
	ContentID       string          `gorm:"column:content_id;type:text;primaryKey"`
	SourceID        string          `gorm:"column:source_id;type:text;not null;index"`
	Theme           *string         `gorm:"column:theme;type:text"`
	Topics          json.RawMessage `gorm:"column:topics;type:jsonb"`
	PublishedAt     time.Time       `gorm:"column:published_at;type:timestamptz;not null;index"`
	Title           string          `gorm:"column:title;type:text;not null"`
	Kind            string          `gorm:"column:kind;type:text;not null;default:article"`
	DurationSeconds *int            `gorm:"column:duration_seconds;type:integer"`
	HasThumbnail    bool            `gorm:"column:has_thumbnail;type:boolean;not null;default:false"`
	PriceGated      bool            `gorm:"column:price_gated;type:boolean;not null;default:false"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ContentItem) TableName() string { return "briefing.content_items" }

// UserAccount maps briefing.user_accounts.
type UserAccount struct {
	UserID    string    `gorm:"column:user_id;type:text;primaryKey"`
	Active    bool      `gorm:"column:active;type:boolean;not null;default:true"`
	Leaning   *string   `gorm:"column:leaning;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (UserAccount) TableName() string { return "briefing.user_accounts" }

// UserFollow maps briefing.user_follows.
type UserFollow struct {
	UserID   string `gorm:"column:user_id;type:text;primaryKey"`
	SourceID string `gorm:"column:source_id;type:text;primaryKey"`
}

func (UserFollow) TableName() string { return "briefing.user_follows" }

// UserInterest maps briefing.user_interests (broad theme interests with
// learned weights).
type UserInterest struct {
	UserID string  `gorm:"column:user_id;type:text;primaryKey"`
	Theme  string  `gorm:"column:theme;type:text;primaryKey"`
	Weight float64 `gorm:"column:weight;type:double precision;not null;default:1"`
}

func (UserInterest) TableName() string { return "briefing.user_interests" }

// UserTopicInterest maps briefing.user_topic_interests (fine-grained topics).
type UserTopicInterest struct {
	UserID string  `gorm:"column:user_id;type:text;primaryKey"`
	Topic  string  `gorm:"column:topic;type:text;primaryKey"`
	Weight float64 `gorm:"column:weight;type:double precision;not null;default:1"`
}

func (UserTopicInterest) TableName() string { return "briefing.user_topic_interests" }

// UserMute maps briefing.user_mutes. MuteType is one of source, theme,
// topic, content_kind.
type UserMute struct {
	UserID   string `gorm:"column:user_id;type:text;primaryKey"`
	MuteType string `gorm:"column:mute_type;type:text;primaryKey"`
	Value    string `gorm:"column:value;type:text;primaryKey"`
}

func (UserMute) TableName() string { return "briefing.user_mutes" }

// UserPreference maps briefing.user_preferences (free-form key/value).
type UserPreference struct {
	UserID    string `gorm:"column:user_id;type:text;primaryKey"`
	PrefKey   string `gorm:"column:pref_key;type:text;primaryKey"`
	PrefValue string `gorm:"column:pref_value;type:text;not null"`
}

func (UserPreference) TableName() string { return "briefing.user_preferences" }

// Impression maps briefing.impressions.
type Impression struct {
	UserID      string    `gorm:"column:user_id;type:text;primaryKey"`
	ContentID   string    `gorm:"column:content_id;type:text;primaryKey"`
	LastShownAt time.Time `gorm:"column:last_shown_at;type:timestamptz;not null"`
	MarkedSeen  bool      `gorm:"column:marked_seen;type:boolean;not null;default:false"`
}

func (Impression) TableName() string { return "briefing.impressions" }

// Dismissal maps briefing.dismissals. Action is one of dismissed, consumed,
// saved; all three exclude the item from future candidate pools.
type Dismissal struct {
	UserID    string    `gorm:"column:user_id;type:text;primaryKey"`
	ContentID string    `gorm:"column:content_id;type:text;primaryKey"`
	Action    string    `gorm:"column:action;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Dismissal) TableName() string { return "briefing.dismissals" }

// FeaturedItem maps briefing.featured_items (curated front-page entries).
type FeaturedItem struct {
	ContentID  string    `gorm:"column:content_id;type:text;primaryKey"`
	FeaturedAt time.Time `gorm:"column:featured_at;type:timestamptz;not null;index"`
}

func (FeaturedItem) TableName() string { return "briefing.featured_items" }

// Briefing maps briefing.briefings, one row per (user, day) selection run.
type Briefing struct {
	BriefingID   int64     `gorm:"column:briefing_id;primaryKey;autoIncrement"`
	UserID       string    `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_briefings_user_date"`
	BriefingDate time.Time `gorm:"column:briefing_date;type:date;not null;uniqueIndex:ux_briefings_user_date"`
	Mode         string    `gorm:"column:mode;type:text;not null"`
	ItemCount    int       `gorm:"column:item_count;type:integer;not null;default:0"`
	GeneratedAt  time.Time `gorm:"column:generated_at;type:timestamptz;not null"`
}

func (Briefing) TableName() string { return "briefing.briefings" }

// BriefingItem maps briefing.briefing_items.
type BriefingItem struct {
	BriefingID int64           `gorm:"column:briefing_id;type:bigint;primaryKey"`
	Rank       int             `gorm:"column:rank;type:integer;primaryKey"`
	ContentID  string          `gorm:"column:content_id;type:text;not null"`
	Score      float64         `gorm:"column:score;type:double precision;not null"`
	Reason     string          `gorm:"column:reason;type:text;not null"`
	Breakdown  json.RawMessage `gorm:"column:breakdown;type:jsonb"`
}

func (BriefingItem) TableName() string { return "briefing.briefing_items" }

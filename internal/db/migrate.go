package db

import (
	"context"
	"fmt"
)

func (p *Pool) autoMigrate(ctx context.Context) error {
	if _, err := p.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS briefing"); err != nil {
		return fmt.Errorf("create briefing schema: %w", err)
	}

	migrator := p.gdb.WithContext(ctx)
	if err := migrator.AutoMigrate(
		&Source{},
		&ContentItem{},
		&UserAccount{},
		&UserFollow{},
		&UserInterest{},
		&UserTopicInterest{},
		&UserMute{},
		&UserPreference{},
		&Impression{},
		&Dismissal{},
		&FeaturedItem{},
		&Briefing{},
		&BriefingItem{},
	); err != nil {
		return fmt.Errorf("auto-migrate briefing tables: %w", err)
	}
	return nil
}

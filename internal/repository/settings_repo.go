package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/groomhub/notify-engine/internal/settings"
	"gorm.io/gorm"
)

// Setting keys recognized by the settings source. Unknown keys are ignored;
// missing keys keep their defaults.
const (
	settingQuotaDailyLimit     = "quota.daily_limit"
	settingQuotaWarnThresholds = "quota.warn_thresholds"
	settingRemindersEnabled    = "reminders.enabled"
)

// GormSettingsSource loads business settings rows and maps them onto
// settings.Values. It backs the read-through settings cache.
type GormSettingsSource struct {
	db *gorm.DB
}

var _ settings.Source = (*GormSettingsSource)(nil)

func NewGormSettingsSource(db *gorm.DB) *GormSettingsSource {
	return &GormSettingsSource{db: db}
}

func (s *GormSettingsSource) Load(ctx context.Context) (settings.Values, error) {
	var models []SettingModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return settings.Values{}, err
	}

	values := settings.Defaults()
	for _, model := range models {
		applySetting(&values, model.Key, model.Value)
	}

	return values, nil
}

func applySetting(values *settings.Values, key, raw string) {
	raw = strings.TrimSpace(raw)

	switch key {
	case settingQuotaDailyLimit:
		if limit, err := strconv.ParseInt(raw, 10, 64); err == nil && limit > 0 {
			values.QuotaDailyLimit = limit
		}
	case settingQuotaWarnThresholds:
		parts := strings.Split(raw, ",")
		if len(parts) != 3 {
			return
		}
		var parsed [3]int
		for i, part := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || v < 0 || v > 100 {
				return
			}
			parsed[i] = v
		}
		values.QuotaWarnThresholds = parsed
	case settingRemindersEnabled:
		if enabled, err := strconv.ParseBool(raw); err == nil {
			values.RemindersEnabled = enabled
		}
	}
}

// Package migrations provides database migration management for hermes.
package migrations

import (
	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"gorm.io/gorm"
)

// AllMigrations returns all registered migrations in order.
// - 001: Schema creation using GORM AutoMigrate
// - 002: System data (default settings, hosts, cities, feeds, templates)
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002SystemData(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all database tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				// Runtime configuration
				&models.Setting{},
				&models.Host{},
				&models.RotationState{},

				// Content inputs
				&models.City{},
				&models.FeedSource{},
				&models.Headline{},
				&models.WeatherCache{},
				&models.MarketCache{},
				&models.ScriptTemplate{},

				// Production output
				&models.Break{},
				&models.Event{},
			)
		},
		Down: func(tx *gorm.DB) error {
			tables := []string{
				"events",
				"breaks",
				"script_templates",
				"market_cache",
				"weather_cache",
				"headlines",
				"feed_sources",
				"cities",
				"host_rotation",
				"hosts",
				"settings",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

// migration002SystemData inserts default system data so a fresh install
// can produce breaks immediately: runtime settings, the three host
// personas, a starter city rotation, starter feeds, and fallback
// templates.
func migration002SystemData() Migration {
	return Migration{
		Version:     "002",
		Description: "Insert default settings, hosts, cities, feeds, and templates",
		Up: func(tx *gorm.DB) error {
			if err := createDefaultSettings(tx); err != nil {
				return err
			}
			if err := createDefaultHosts(tx); err != nil {
				return err
			}
			if err := createDefaultCities(tx); err != nil {
				return err
			}
			if err := createDefaultFeedSources(tx); err != nil {
				return err
			}
			return createDefaultTemplates(tx)
		},
		Down: func(tx *gorm.DB) error {
			for _, model := range []any{
				&models.ScriptTemplate{},
				&models.FeedSource{},
				&models.City{},
				&models.Host{},
				&models.Setting{},
			} {
				if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// createDefaultSettings seeds the runtime settings registry. Existing keys
// are left untouched so re-running is safe.
func createDefaultSettings(tx *gorm.DB) error {
	defaults := []models.Setting{
		{Key: models.SettingBreakIntervalMinutes, Value: "20", Description: "Minutes between scheduled breaks"},
		{Key: models.SettingQuietMode, Value: "false", Description: "Honor quiet hours (skip scheduled breaks)"},
		{Key: models.SettingQuietHoursStart, Value: "00:00", Description: "Quiet hours start (HH:MM, may wrap midnight)"},
		{Key: models.SettingQuietHoursEnd, Value: "06:00", Description: "Quiet hours end (HH:MM)"},
		{Key: models.SettingBreakingScoreThreshold, Value: "8", Description: "Headline score that triggers a breaking break"},
		{Key: models.SettingNewsDedupeWindowMin, Value: "240", Description: "Minutes a headline identity blocks re-ingest"},
		{Key: models.SettingBreakMinWords, Value: "15", Description: "Minimum script words for scheduled breaks"},
		{Key: models.SettingBreakMaxWords, Value: "100", Description: "Maximum script words for scheduled breaks"},
		{Key: models.SettingBreakMaxChars, Value: "600", Description: "Maximum script characters"},
		{Key: models.SettingBreakingMinWords, Value: "10", Description: "Minimum script words for breaking breaks"},
		{Key: models.SettingBreakingMaxWords, Value: "50", Description: "Maximum script words for breaking breaks"},
		{Key: models.SettingDialogMode, Value: "false", Description: "Write two-host dialog scripts instead of monologues"},
		{Key: models.SettingDialogCharacters, Value: "alex,maya", Description: "Characters used in dialog mode"},
		{Key: models.SettingMasterPrompt, Value: llm.DefaultMasterPrompt, Description: "System prompt prepended to every script request"},
		{Key: models.SettingElevenLabsAPIKey, Value: "", Description: "ElevenLabs API key (empty disables the provider)"},
		{Key: models.SettingOpenAITTSModel, Value: "tts-1", Description: "OpenAI speech model (tts-1 or tts-1-hd)"},
		{Key: models.SettingTTSDefaultProvider, Value: "piper", Description: "Default speech provider: piper, elevenlabs, openai"},
		{Key: models.SettingBitcoinEnabled, Value: "false", Description: "Include a market quote in breaks"},
		{Key: models.SettingBitcoinAPIKey, Value: "", Description: "Market API key (optional)"},
		{Key: models.SettingBitcoinCacheTTL, Value: "300", Description: "Market quote cache TTL in seconds"},
		{Key: models.SettingPrepareAtTrack, Value: "3", Description: "Tracks since last break that trigger preparation"},
		{Key: models.SettingEveryNTracks, Value: "4", Description: "Expected tracks per break (used for estimates)"},
		{Key: models.SettingCooldownSeconds, Value: "120", Description: "Minimum seconds between scheduled builds"},
		{Key: models.SettingBreakTimeoutSeconds, Value: "180", Description: "Hard deadline for one break build"},
		{Key: models.SettingWeatherCitiesPerBreak, Value: "2", Description: "Cities covered per break"},
		{Key: models.SettingBlockedPhrases, Value: "buy now,click here,subscribe to,visit our website,call now", Description: "Comma-separated phrases blocked in scripts (word-boundary match)"},
		{Key: models.SettingBlockedDomains, Value: "http,www.,.com,.org,.net", Description: "Comma-separated URL fragments blocked in scripts (substring match)"},
		{Key: models.SettingEventsRetention, Value: "7d", Description: "How long event rows are kept"},
		{Key: models.SettingNewsRetention, Value: "24h", Description: "How long headline rows are kept"},
		{Key: models.SettingFailedBreaksRetention, Value: "7d", Description: "How long FAILED break rows are kept"},
	}

	for _, setting := range defaults {
		var count int64
		if err := tx.Model(&models.Setting{}).Where("key = ?", setting.Key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := tx.Create(&setting).Error; err != nil {
			return err
		}
	}
	return nil
}

// createDefaultHosts seeds the three host personas. Rotation alternates
// host_a and host_b; host_breaking fronts breaking news.
func createDefaultHosts(tx *gorm.DB) error {
	hosts := []models.Host{
		{
			Slug:        "host_a",
			Name:        "Alex",
			Character:   "alex",
			StylePrompt: llm.CharacterPrompt("alex"),
			VoiceOpenAI: "onyx",
			Active:      true,
		},
		{
			Slug:        "host_b",
			Name:        "Maya",
			Character:   "maya",
			StylePrompt: llm.CharacterPrompt("maya"),
			VoiceOpenAI: "nova",
			Active:      true,
		},
		{
			Slug:           "host_breaking",
			Name:           "Rolo",
			Character:      "rolo",
			StylePrompt:    llm.CharacterPrompt("rolo"),
			VoiceOpenAI:    "echo",
			IsBreakingHost: true,
			Active:         true,
		},
	}

	for _, host := range hosts {
		var count int64
		if err := tx.Model(&models.Host{}).Where("slug = ?", host.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := tx.Create(&host).Error; err != nil {
			return err
		}
	}
	return nil
}

// createDefaultCities seeds a starter rotation spanning time zones so
// someone is always awake to care about the forecast.
func createDefaultCities(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.City{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	cities := []models.City{
		{Name: "Lisbon", Latitude: 38.7223, Longitude: -9.1393, Active: true},
		{Name: "Berlin", Latitude: 52.5200, Longitude: 13.4050, Active: true},
		{Name: "New York", Latitude: 40.7128, Longitude: -74.0060, Active: true},
		{Name: "Tokyo", Latitude: 35.6762, Longitude: 139.6503, Active: true},
		{Name: "Sydney", Latitude: -33.8688, Longitude: 151.2093, Active: true},
		{Name: "Sao Paulo", Latitude: -23.5505, Longitude: -46.6333, Active: true},
	}

	for _, city := range cities {
		if err := tx.Create(&city).Error; err != nil {
			return err
		}
	}
	return nil
}

// createDefaultFeedSources seeds starter news feeds.
func createDefaultFeedSources(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.FeedSource{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	sources := []models.FeedSource{
		{Name: "bbc-world", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Active: true, Healthy: true},
		{Name: "npr-news", URL: "https://feeds.npr.org/1001/rss.xml", Active: true, Healthy: true},
		{Name: "aljazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml", Active: true, Healthy: true},
	}

	for _, source := range sources {
		if err := tx.Create(&source).Error; err != nil {
			return err
		}
	}
	return nil
}

// createDefaultTemplates seeds the rung-2 weather fallback templates.
func createDefaultTemplates(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.ScriptTemplate{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	templates := []models.ScriptTemplate{
		{
			Name:   "two-city-check",
			Body:   "Time for a quick look at the weather. In {city1} it's {temp1} degrees with {condition1}. Over in {city2}, {temp2} degrees and {condition2}. More music coming right up.",
			Active: true,
		},
		{
			Name:   "weather-handoff",
			Body:   "Here's your weather. {city1} is sitting at {temp1} degrees, {condition1} out there. Meanwhile {city2} has {temp2} degrees with {condition2}. Back to the music.",
			Active: true,
		},
	}

	for _, tmpl := range templates {
		if err := tx.Create(&tmpl).Error; err != nil {
			return err
		}
	}
	return nil
}

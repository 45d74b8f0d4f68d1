package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Vigil", GetVersion())

	logger.Info().
		Str("environment", config.Environment).
		Str("badger_path", config.Storage.Badger.Path).
		Str("llm_provider", config.LLM.DefaultProvider).
		Str("llm_model", config.LLM.DefaultModel).
		Bool("scheduler_enabled", config.Scheduler.Enabled).
		Bool("redis_cache", config.Cache.RedisAddr != "").
		Msg("Configuration loaded")
}

package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration from file and environment variables.
// Precedence is flags over environment over config file over defaults; the
// flag binding happens in the command layer.
func Load(cfgFile string) {
	// explicit .env loading, missing file is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dementor")
	}

	viper.SetEnvPrefix("DEMENTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The conventional GITHUB_TOKEN works without the prefix.
	if os.Getenv("DEMENTOR_GITHUB_TOKEN") == "" && os.Getenv("GITHUB_TOKEN") != "" {
		viper.SetDefault("github_token", os.Getenv("GITHUB_TOKEN"))
	}

	viper.SetDefault("workers", 4)
	viper.SetDefault("unit_timeout", "10m")
	viper.SetDefault("retries", 3)
	viper.SetDefault("retry_backoff", "500ms")
	viper.SetDefault("osv_url", "https://api.osv.dev/v1/query")
	viper.SetDefault("output", "json")
	viper.SetDefault("output_dir", "reports")
	viper.SetDefault("work_dir", ".dementor/checkouts")
	viper.SetDefault("prune", false)
	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.connection_string", ".dementor.db")
	viper.SetDefault("metrics_port", 0)
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("fail_critical", false)

	slackEnabled := os.Getenv("SLACK_BOT_USER_TOKEN") != ""
	viper.SetDefault("notifications.slack.enabled", slackEnabled)
	viper.SetDefault("notifications.slack.token", os.Getenv("SLACK_BOT_USER_TOKEN"))
	viper.SetDefault("notifications.slack.channel", "#security")

	// A missing config file is not an error; defaults and env cover it.
	_ = viper.ReadInConfig()
}

package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings is a frozen snapshot of the effective configuration, taken once
// after flags, environment and config file have been merged. The pipeline
// and its collaborators read from this value, never from viper, so nothing
// can shift mid-run.
type Settings struct {
	Workers      int
	UnitTimeout  time.Duration
	Retries      int
	RetryBackoff time.Duration

	OSVURL      string
	Output      string
	OutputDir   string
	WorkDir     string
	GitHubToken string
	Prune       bool

	FetchOnly    bool
	ParseOnly    bool
	ScanOnly     bool
	FailCritical bool

	Store StoreSettings
	Slack SlackSettings
}

type StoreSettings struct {
	Type             string
	ConnectionString string
}

type SlackSettings struct {
	Enabled bool
	Token   string
	Channel string
}

// Snapshot captures the current viper state as a Settings value. Call after
// Load and ValidateConfig.
func Snapshot() Settings {
	return Settings{
		Workers:      viper.GetInt("workers"),
		UnitTimeout:  Timeout("unit_timeout"),
		Retries:      viper.GetInt("retries"),
		RetryBackoff: Timeout("retry_backoff"),

		OSVURL:      viper.GetString("osv_url"),
		Output:      viper.GetString("output"),
		OutputDir:   viper.GetString("output_dir"),
		WorkDir:     viper.GetString("work_dir"),
		GitHubToken: viper.GetString("github_token"),
		Prune:       viper.GetBool("prune"),

		FetchOnly:    viper.GetBool("fetch_only"),
		ParseOnly:    viper.GetBool("parse_only"),
		ScanOnly:     viper.GetBool("scan_only"),
		FailCritical: viper.GetBool("fail_critical"),

		Store: StoreSettings{
			Type:             viper.GetString("store.type"),
			ConnectionString: viper.GetString("store.connection_string"),
		},
		Slack: SlackSettings{
			Enabled: viper.GetBool("notifications.slack.enabled"),
			Token:   viper.GetString("notifications.slack.token"),
			Channel: viper.GetString("notifications.slack.channel"),
		},
	}
}

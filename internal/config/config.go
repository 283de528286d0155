// Package config holds the runtime settings shared by every component.
// Settings are built once at startup and passed by reference; there is no
// ambient global configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const fileName = "crewcal.yml"

// Settings models the workspace configuration. Environment variables
// (CREWCAL_*) override values from the optional crewcal.yml file.
type Settings struct {
	Token           string        `yaml:"token"`
	GuildID         int64         `yaml:"guild_id"`
	ManagerRoles    []string      `yaml:"manager_roles"`
	ReminderChannel string        `yaml:"reminder_channel"`
	Timezone        string        `yaml:"timezone"`
	DataDir         string        `yaml:"data_dir"`
	WebhookURL      string        `yaml:"webhook_url"`
	RemindEvery     time.Duration `yaml:"remind_every"`
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	return &Settings{
		ManagerRoles:    []string{"diretoria", "lideranca"},
		ReminderChannel: "avisos",
		Timezone:        "America/Sao_Paulo",
		DataDir:         "data",
		RemindEvery:     60 * time.Minute,
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, fileName)
}

// LoadOptional reads the workspace config file, returning defaults when the
// file does not exist.
func LoadOptional(workspace string) (*Settings, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses settings over the defaults.
func FromYAML(data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("invalid settings yaml: %w", err)
	}
	if len(s.ManagerRoles) == 0 {
		s.ManagerRoles = Default().ManagerRoles
	}
	if s.RemindEvery <= 0 {
		s.RemindEvery = Default().RemindEvery
	}
	return s, nil
}

// Validate checks platform-facing startup requirements. Local data commands
// do not need credentials; daemons calling out to the chat platform do and
// must abort startup on failure.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Token) == "" {
		return fmt.Errorf("access token is required; set CREWCAL_TOKEN")
	}
	if s.GuildID <= 0 {
		return fmt.Errorf("workspace id is required; set CREWCAL_GUILD_ID")
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone.
func (s *Settings) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		name = Default().Timezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

// ParseRoles splits a comma-separated role list, dropping empties.
func ParseRoles(raw string) []string {
	var roles []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	return roles
}

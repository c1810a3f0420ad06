package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// Config captures all command-line options required to run the exporter.
type Config struct {
	CredentialsPath string
	TokenPath       string
	DataDir         string
	AttachmentsDir  string
	StateDir        string
	MboxPath        string
	Query           string
	LabelIDs        []string
	MaxMessages     int64
	DryRun          bool
	LogLevel        string
	LogDir          string
	IncludeHeader   []string
	IncludeBody     []string
	ExcludeHeader   []string
	ExcludeBody     []string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultStateDir, err := defaultStateDir()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	flags.String("credentials", "credentials.json", "Path to the OAuth client secret file")
	flags.String("token", "token.json", "Path to the cached OAuth token file")
	flags.String("data-dir", "./data", "Directory for the CSV output files")
	flags.String("attachments-dir", "./attachments", "Directory for downloaded attachments")
	flags.String("state-dir", defaultStateDir, "Directory for incremental export state files")
	flags.String("mbox", "", "Optional path of an mbox archive to append raw messages to")
	flags.String("query", "", "Gmail search query to narrow the export (e.g. 'from:billing@')")
	flags.StringArray("label", nil, "Label id to narrow the export (repeatable)")
	flags.Int64("max", 10, "Maximum number of messages to export")
	flags.Bool("dry-run", false, "Decode and report stats without writing files")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (console only when empty)")
	flags.StringArray("include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	credentialsPath, err := flags.GetString("credentials")
	if err != nil {
		return Config{}, err
	}
	tokenPath, err := flags.GetString("token")
	if err != nil {
		return Config{}, err
	}
	dataDir, err := flags.GetString("data-dir")
	if err != nil {
		return Config{}, err
	}
	attachmentsDir, err := flags.GetString("attachments-dir")
	if err != nil {
		return Config{}, err
	}
	stateDir, err := flags.GetString("state-dir")
	if err != nil {
		return Config{}, err
	}
	mboxPath, err := flags.GetString("mbox")
	if err != nil {
		return Config{}, err
	}
	query, err := flags.GetString("query")
	if err != nil {
		return Config{}, err
	}
	labelIDs, err := flags.GetStringArray("label")
	if err != nil {
		return Config{}, err
	}
	maxMessages, err := flags.GetInt64("max")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}
	includeHeader, err := flags.GetStringArray("include-header")
	if err != nil {
		return Config{}, err
	}
	includeBody, err := flags.GetStringArray("include-body")
	if err != nil {
		return Config{}, err
	}
	excludeHeader, err := flags.GetStringArray("exclude-header")
	if err != nil {
		return Config{}, err
	}
	excludeBody, err := flags.GetStringArray("exclude-body")
	if err != nil {
		return Config{}, err
	}

	if stateDir == "" {
		stateDir, err = defaultStateDir()
		if err != nil {
			return Config{}, err
		}
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		CredentialsPath: credentialsPath,
		TokenPath:       tokenPath,
		DataDir:         dataDir,
		AttachmentsDir:  attachmentsDir,
		StateDir:        filepath.Clean(stateDir),
		MboxPath:        mboxPath,
		Query:           query,
		LabelIDs:        labelIDs,
		MaxMessages:     maxMessages,
		DryRun:          dryRun,
		LogLevel:        logLevel,
		LogDir:          logDir,
		IncludeHeader:   includeHeader,
		IncludeBody:     includeBody,
		ExcludeHeader:   excludeHeader,
		ExcludeBody:     excludeBody,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.CredentialsPath == "" {
		return fmt.Errorf("--credentials is required")
	}
	if _, err := os.Stat(cfg.CredentialsPath); err != nil {
		return fmt.Errorf("missing client secret file %s: provide it before running", cfg.CredentialsPath)
	}
	if cfg.TokenPath == "" {
		return fmt.Errorf("--token is required")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("--data-dir is required")
	}
	if cfg.AttachmentsDir == "" {
		return fmt.Errorf("--attachments-dir is required")
	}
	if cfg.MaxMessages <= 0 {
		return fmt.Errorf("--max must be positive")
	}

	includeActive := len(cfg.IncludeHeader) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeHeader) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gmail-export", "state"), nil
}

package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spigell/hh-screener/internal/conversation"
	"github.com/spigell/hh-screener/internal/intent"
	"github.com/spigell/hh-screener/internal/logger"
	"github.com/spigell/hh-screener/internal/profile"
	"github.com/spigell/hh-screener/internal/screening"
	"github.com/spigell/hh-screener/internal/session"
	"github.com/spigell/hh-screener/internal/threat"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "hh-screener"
)

type Config struct {
	Listen        string `mapstructure:"listen"`
	AuthTokenFile string `mapstructure:"auth-token-file"`

	Job *JobConfig `mapstructure:"job"`

	Intent    intent.Config           `mapstructure:"intent"`
	Threat    threat.Config           `mapstructure:"threat"`
	Screening screening.Config        `mapstructure:"screening"`
	Extractor profile.ExtractorConfig `mapstructure:"extractor"`
}

type JobConfig struct {
	ID    string `mapstructure:"id"`
	Title string `mapstructure:"title"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-screener is a screening assistant that chats with candidates, classifies their intentions and reviews their resumes",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("auth-token-file", "HH_SCREENER_TOKEN_FILE"); err != nil {
		log.Fatalf("binding HH_SCREENER_TOKEN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
	}

	// The chat and serve commands run fine on defaults; only a present but
	// unparseable config file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{
		Screening: screening.DefaultConfig(),
		Extractor: profile.DefaultExtractorConfig(),
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	return config, nil
}

// buildOrchestrator wires the full screening core from the config.
func buildOrchestrator(config *Config, log *zap.Logger) (*screening.Orchestrator, *session.MemoryStore, error) {
	if err := conversation.Validate(nil); err != nil {
		return nil, nil, fmt.Errorf("transition table validation: %w", err)
	}

	classifier, err := intent.NewClassifier(config.Intent, log)
	if err != nil {
		return nil, nil, fmt.Errorf("building intention classifier: %w", err)
	}

	detector, err := threat.NewDetector(config.Threat, log)
	if err != nil {
		return nil, nil, fmt.Errorf("building threat detector: %w", err)
	}

	extractor := profile.NewExtractor(config.Extractor, log)
	store := session.NewMemoryStore(config.Screening.MaxSessionMessages)
	notifier := screening.NewLogNotifier(log)

	orchestrator := screening.New(store, detector, classifier, extractor, notifier, log, config.Screening)
	return orchestrator, store, nil
}

// jobMetadata converts the configured job reference into per-message
// metadata.
func jobMetadata(config *Config) map[string]any {
	if config.Job == nil {
		return nil
	}
	return map[string]any{
		"job_id":    config.Job.ID,
		"job_title": config.Job.Title,
	}
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"))
}

package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "talentmatch"
)

type Config struct {
	StorageDir       string    `mapstructure:"storage-dir"`
	CandidatesDir    string    `mapstructure:"candidates-dir"`
	OpportunitiesDir string    `mapstructure:"opportunities-dir"`
	ReportsDir       string    `mapstructure:"reports-dir"`
	QueuePath        string    `mapstructure:"queue-path"`
	Threshold        int       `mapstructure:"threshold"`
	AI               *AIConfig `mapstructure:"ai"`
}

type AIConfig struct {
	Model             string        `mapstructure:"model"`
	APIKeyFile        string        `mapstructure:"api-key-file"`
	MaxOutputTokens   int32         `mapstructure:"max-output-tokens"`
	Temperature       float32       `mapstructure:"temperature"`
	MaxRetries        int           `mapstructure:"max-retries"`
	RequestsPerMinute int           `mapstructure:"requests-per-minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxLogLength      int           `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "talentmatch scores candidate resumes against opportunities with an AI oracle and keeps the results cached",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talentmatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("storage-dir", ".")
	viper.SetDefault("candidates-dir", "candidates")
	viper.SetDefault("opportunities-dir", "opportunities")
	viper.SetDefault("reports-dir", "results/reports")
	viper.SetDefault("queue-path", "results/queue.db")
	viper.SetDefault("threshold", 70)
	viper.SetDefault("ai.max-retries", 3)
	viper.SetDefault("ai.timeout", time.Minute)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// Missing config file is fine: every key has a default except the API
	// key file, which can come from the environment.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

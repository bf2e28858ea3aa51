// Package bridgeinit assembles the bridge service into a runnable process:
// configuration loading, backend selection and the HTTP serving surface.
package bridgeinit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Broker profile values. The deployment configuration selects which
// MessagePublisher implementation the process is wired with.
const (
	BrokerPubSub = "pubsub"
	BrokerKafka  = "kafka"
)

// Config holds all configuration for the application, grouped per component.
type Config struct {
	// LogLevel for the application-wide logger (e.g., "debug", "info", "warn", "error").
	LogLevel string `mapstructure:"log_level"`

	// HTTPPort is the address for the API and health check server.
	HTTPPort string `mapstructure:"http_port"`

	// GCP project ID, used by the Firestore and Pub/Sub clients.
	ProjectID string `mapstructure:"project_id"`

	// Broker selects the publisher backend: "pubsub" or "kafka".
	Broker string `mapstructure:"broker"`

	// Firestore holds settings for the car document store.
	Firestore struct {
		Collection      string `mapstructure:"collection"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"firestore"`

	// PubSub holds settings for the Pub/Sub publisher.
	PubSub struct {
		TopicID         string `mapstructure:"topic_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"pubsub"`

	// Kafka holds settings for the Kafka publisher.
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
}

// LoadConfig initializes and loads the application configuration.
// It sets defaults, binds command-line flags, reads an optional config
// file, and lets CARSTREAM_* environment variables override everything.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("http_port", ":8080")
	v.SetDefault("broker", BrokerPubSub)
	v.SetDefault("firestore.collection", "cars")
	v.SetDefault("pubsub.topic_id", "myeventhub")
	v.SetDefault("kafka.topic", "myeventhub")

	// Keys without a useful default still need to be registered so that
	// environment-only values survive Unmarshal.
	v.SetDefault("project_id", "")
	v.SetDefault("firestore.credentials_file", "")
	v.SetDefault("pubsub.credentials_file", "")
	v.SetDefault("kafka.brokers", []string{})

	pflag.String("config", "config.yaml", "Path to config file")
	pflag.String("log-level", "", "Log level (debug, info, warn, error)")
	pflag.String("project-id", "", "GCP Project ID")
	pflag.String("broker", "", "Broker backend (pubsub, kafka)")
	pflag.Parse()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	configFile := v.GetString("config")
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; flags and env carry the settings.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	v.SetEnvPrefix("CARSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Flag names differ from the mapstructure keys; map them explicitly.
	if lv := v.GetString("log-level"); lv != "" {
		cfg.LogLevel = lv
	}
	if pid := v.GetString("project-id"); pid != "" {
		cfg.ProjectID = pid
	}

	if cfg.Broker != BrokerPubSub && cfg.Broker != BrokerKafka {
		return nil, fmt.Errorf("unknown broker backend %q (expected %q or %q)", cfg.Broker, BrokerPubSub, BrokerKafka)
	}
	return &cfg, nil
}

package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Refresh configuration
	RefreshInterval int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"15" description:"Minutes between refresh cycles (minimum 1)"`
	SourceTimeout   int    `long:"source-timeout" env:"SOURCE_TIMEOUT" default:"30" description:"Per-source fetch timeout in seconds"`
	SourcesDir      string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	RulesFile       string `long:"rules-file" env:"RULES_FILE" description:"YAML file with classification rules (built-in rules when empty)"`
	UserAgent       string `long:"user-agent" env:"USER_AGENT" default:"newsbell/1.0" description:"User agent string for HTTP requests"`

	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/newsbell.db" description:"SQLite history file"`

	// Notifications
	Notify         bool   `long:"notify" env:"NOTIFY" default:"true" description:"Dispatch notifications for new items (NOTIFY=false disables)"`
	NoNotify       bool   `long:"no-notify" description:"Persist new items without dispatching notifications"`
	NotifyLimit    int    `long:"notify-limit" env:"NOTIFY_LIMIT" default:"0" description:"Maximum notifications per cycle (0 = unlimited)"`
	NotifyInterval int    `long:"notify-interval" env:"NOTIFY_INTERVAL" default:"0" description:"Milliseconds between notifications after the initial burst (0 = no pacing)"`
	NotifyBurst    int    `long:"notify-burst" env:"NOTIFY_BURST" default:"3" description:"Notifications shown without pacing"`
	WebhookURL     string `long:"webhook-url" env:"WEBHOOK_URL" description:"POST notifications as JSON to this URL"`
	AMQPURL        string `long:"amqp-url" env:"AMQP_URL" description:"Publish notifications to this RabbitMQ server"`
	AMQPExchange   string `long:"amqp-exchange" env:"AMQP_EXCHANGE" default:"newsbell" description:"RabbitMQ exchange"`
	AMQPRoutingKey string `long:"amqp-routing-key" env:"AMQP_ROUTING_KEY" default:"items.new" description:"RabbitMQ routing key"`
	AMQPQueue      string `long:"amqp-queue" env:"AMQP_QUEUE" description:"RabbitMQ queue to declare and bind (optional)"`

	// Control API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (empty disables the API)"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL used in the exported feed"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	Once     bool   `long:"once" description:"Run a single refresh cycle and exit"`
}

var globalCfg *Cfg

// ErrHelp is returned when --help was requested; the usage has been printed.
var ErrHelp = errors.New("help requested")

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, ErrHelp
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Cfg{
		RefreshInterval: time.Duration(raw.RefreshInterval) * time.Minute,
		SourceTimeout:   time.Duration(raw.SourceTimeout) * time.Second,
		SourcesDir:      raw.SourcesDir,
		RulesFile:       raw.RulesFile,
		UserAgent:       raw.UserAgent,
		DBPath:          raw.DBPath,
		Notify:          raw.Notify && !raw.NoNotify,
		NotifyLimit:     raw.NotifyLimit,
		NotifyInterval:  time.Duration(raw.NotifyInterval) * time.Millisecond,
		NotifyBurst:     raw.NotifyBurst,
		WebhookURL:      raw.WebhookURL,
		AMQPURL:         raw.AMQPURL,
		AMQPExchange:    raw.AMQPExchange,
		AMQPRoutingKey:  raw.AMQPRoutingKey,
		AMQPQueue:       raw.AMQPQueue,
		Port:            raw.Port,
		BaseUrl:         raw.BaseUrl,
		APIAccessKey:    raw.APIAccessKey,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Once:            raw.Once,
		Version:         GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func validate(raw *rawCfg) error {
	if raw.RefreshInterval < 1 {
		return fmt.Errorf("refresh interval must be at least 1 minute, got %d", raw.RefreshInterval)
	}

	nonNegativeFields := map[string]int{
		"source timeout":  raw.SourceTimeout,
		"notify limit":    raw.NotifyLimit,
		"notify interval": raw.NotifyInterval,
		"notify burst":    raw.NotifyBurst,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if raw.DBPath == "" {
		return fmt.Errorf("database path is required")
	}

	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}

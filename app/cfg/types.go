package cfg

import "time"

type Cfg struct {
	// Refresh configuration
	RefreshInterval time.Duration
	SourceTimeout   time.Duration
	SourcesDir      string
	RulesFile       string
	UserAgent       string

	// Storage
	DBPath string

	// Notifications
	Notify         bool
	NotifyLimit    int
	NotifyInterval time.Duration
	NotifyBurst    int
	WebhookURL     string
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string

	// Control API
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Application metadata
	Timezone string
	Debug    bool
	Once     bool
	Version  string
}

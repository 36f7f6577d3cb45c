package config

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	AppName        string        `mapstructure:"APP_NAME"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	SamwadSendURL            string        `mapstructure:"SAMWAD_SEND_URL"`
	SamwadLocationURL        string        `mapstructure:"SAMWAD_LOCATION_URL"`
	SamwadLocationRequestURL string        `mapstructure:"SAMWAD_LOCATION_REQUEST_URL"`
	SamwadToken              string        `mapstructure:"SAMWAD_TOKEN"`
	GatewayTimeout           time.Duration `mapstructure:"GATEWAY_TIMEOUT"`

	AIBaseURL     string        `mapstructure:"AI_BASE_URL"`
	AIModel       string        `mapstructure:"AI_MODEL"`
	AIAPIKey      string        `mapstructure:"AI_API_KEY"`
	AITemperature float64       `mapstructure:"AI_TEMPERATURE"`
	AIMaxTokens   int           `mapstructure:"AI_MAX_TOKENS"`
	AITimeout     time.Duration `mapstructure:"AI_TIMEOUT"`

	WorkerCount       int     `mapstructure:"WORKER_COUNT"`
	WorkerQueueSize   int     `mapstructure:"WORKER_QUEUE_SIZE"`
	WebhookRatePerMin float64 `mapstructure:"WEBHOOK_RATE_PER_MIN"`

	GeocoderURL       string `mapstructure:"GEOCODER_URL"`
	GeocoderUserAgent string `mapstructure:"GEOCODER_USER_AGENT"`
	GeocoderCountry   string `mapstructure:"GEOCODER_COUNTRY"`
	CityDefault       string `mapstructure:"CITY_DEFAULT"`
}

// Settings holds behavior flags that are read on every call so that an
// edited .env takes effect without a restart.
type Settings struct {
	AutoReply            bool
	AutoApproveHighRisk  bool
	EscalationNumbers    []string
	Assignees            map[string][]string
	SanitationETAMinutes int
	MedicalETAMinutes    int
	TicketDedupeWindow   time.Duration
}

// AssigneesFor returns the configured assignee pool for a ticket category.
// ASSIGNEE_<CATEGORY> may list several names separated by commas.
func (s Settings) AssigneesFor(category string) []string {
	if s.Assignees == nil {
		return nil
	}
	return s.Assignees[strings.ToLower(category)]
}

type Provider struct {
	v *viper.Viper

	mu       sync.RWMutex
	settings Settings
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	// Unmarshal only sees keys viper already knows about, so env-only
	// settings need an empty default.
	for _, key := range []string{
		"DATABASE_URL", "REDIS_URL", "ADMIN_KEY",
		"SAMWAD_SEND_URL", "SAMWAD_LOCATION_URL", "SAMWAD_LOCATION_REQUEST_URL", "SAMWAD_TOKEN",
		"AI_BASE_URL", "AI_API_KEY", "GEOCODER_URL",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_NAME", "Simhastha Samwad")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("GATEWAY_TIMEOUT", "20s")
	v.SetDefault("AI_MODEL", "gemma3:12b")
	v.SetDefault("AI_TEMPERATURE", 0.4)
	v.SetDefault("AI_MAX_TOKENS", 500)
	v.SetDefault("AI_TIMEOUT", "60s")
	v.SetDefault("WORKER_COUNT", 4)
	v.SetDefault("WORKER_QUEUE_SIZE", 256)
	v.SetDefault("WEBHOOK_RATE_PER_MIN", 30)
	v.SetDefault("GEOCODER_USER_AGENT", "samwad-relay")
	v.SetDefault("GEOCODER_COUNTRY", "in")
	v.SetDefault("CITY_DEFAULT", "Ujjain")

	v.SetDefault("AI_AUTOREPLY", false)
	v.SetDefault("AGENT_AUTO_APPROVE_HIGHRISK", false)
	v.SetDefault("ESCALATION_NUMBERS", "")
	v.SetDefault("ASSIGNEE_SANITATION", "")
	v.SetDefault("ASSIGNEE_EMERGENCY", "")
	v.SetDefault("ASSIGNEE_INFO", "")
	v.SetDefault("SANITATION_ETA_MINUTES", 12)
	v.SetDefault("MEDICAL_ETA_MINUTES", 7)
	v.SetDefault("TICKET_DEDUPE_WINDOW", "2m")
	return v
}

func Load() (Config, error) {
	v := newViper()
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewProvider reads the runtime settings and keeps them current when the
// .env file changes on disk.
func NewProvider() *Provider {
	p := &Provider{v: newViper()}
	p.reload()
	p.v.OnConfigChange(func(fsnotify.Event) {
		_ = p.v.ReadInConfig()
		p.reload()
	})
	if p.v.ConfigFileUsed() != "" {
		p.v.WatchConfig()
	}
	return p
}

func (p *Provider) reload() {
	s := Settings{
		AutoReply:            p.v.GetBool("AI_AUTOREPLY"),
		AutoApproveHighRisk:  p.v.GetBool("AGENT_AUTO_APPROVE_HIGHRISK"),
		EscalationNumbers:    SplitCSV(p.v.GetString("ESCALATION_NUMBERS")),
		SanitationETAMinutes: p.v.GetInt("SANITATION_ETA_MINUTES"),
		MedicalETAMinutes:    p.v.GetInt("MEDICAL_ETA_MINUTES"),
		TicketDedupeWindow:   p.v.GetDuration("TICKET_DEDUPE_WINDOW"),
		Assignees:            map[string][]string{},
	}
	for _, category := range []string{"sanitation", "emergency", "info"} {
		if pool := SplitCSV(p.v.GetString("ASSIGNEE_" + strings.ToUpper(category))); len(pool) > 0 {
			s.Assignees[category] = pool
		}
	}
	p.mu.Lock()
	p.settings = s
	p.mu.Unlock()
}

func (p *Provider) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// Static is a fixed settings source, used by tests and one-shot commands.
type Static Settings

func (s Static) Settings() Settings {
	return Settings(s)
}

func SplitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	DashboardURL   string   `mapstructure:"dashboard_url"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
}

// OnfidoConfig holds credentials for the KYC provider.
type OnfidoConfig struct {
	APIToken      string `mapstructure:"api_token"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	APIURL        string `mapstructure:"api_url"`
	Region        string `mapstructure:"region"`
}

// StripeConfig holds credentials for the payment provider.
// Price IDs map subscription plans to Stripe price objects.
type StripeConfig struct {
	SecretKey         string `mapstructure:"secret_key"`
	WebhookSecret     string `mapstructure:"webhook_secret"`
	PriceStarter      string `mapstructure:"price_starter"`
	PriceProfessional string `mapstructure:"price_professional"`
	PriceEnterprise   string `mapstructure:"price_enterprise"`
}

// QueueConfig controls the async task queue runtime.
type QueueConfig struct {
	Concurrency      int `mapstructure:"concurrency"`
	SoftTimeLimitSec int `mapstructure:"soft_time_limit_sec"`
	HardTimeLimitSec int `mapstructure:"hard_time_limit_sec"`
	EmailRatePerMin  int `mapstructure:"email_rate_per_min"`
	KYCRatePerMin    int `mapstructure:"kyc_rate_per_min"`
}

// SchedulerConfig controls the periodic sweeps.
type SchedulerConfig struct {
	ExpirySweepHours  int `mapstructure:"expiry_sweep_hours"`
	PollSweepMinutes  int `mapstructure:"poll_sweep_minutes"`
	PollStaleAfterMin int `mapstructure:"poll_stale_after_min"`
}

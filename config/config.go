package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address           string  `yaml:"address"`
	SwaggerDir        string  `yaml:"swagger_dir"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	// AllowedOrigins enables CORS for the booking form; empty disables it.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Brokers            []string `yaml:"brokers"`
	ReservationsTopic  string   `yaml:"reservations_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	WeekdayCapacity int    `yaml:"weekday_capacity"`
	WeekendCapacity int    `yaml:"weekend_capacity"`
	// RandomSeed seeds remaining capacity randomly instead of starting every slot full.
	RandomSeed      bool `yaml:"random_seed"`
	CalendarTTLSecs int  `yaml:"calendar_cache_ttl_seconds"`
}

type WorkerConfig struct {
	DriftIntervalSeconds int `yaml:"drift_interval_seconds"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Address: ":8080", RequestsPerSecond: 5, Burst: 10},
		GRPC: GRPCConfig{Address: ":9090"},
		Kafka: KafkaConfig{
			ReservationsTopic:  "reservations",
			NotificationsTopic: "reservation-notifications",
			GroupID:            "reservation-mailer",
		},
		Booking: BookingConfig{
			StartDate:       "2025-07-24",
			EndDate:         "2025-07-31",
			WeekdayCapacity: 60,
			WeekendCapacity: 40,
			CalendarTTLSecs: 300,
		},
		Log: LogConfig{Env: "development", Level: "info"},
	}
}

// LoadConfig reads the YAML file at path over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	start, end, err := c.Booking.Window()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return errors.New("booking.end_date is before booking.start_date")
	}
	if c.Booking.WeekdayCapacity <= 0 || c.Booking.WeekendCapacity <= 0 {
		return errors.New("booking capacities must be positive")
	}
	if c.Booking.CalendarTTLSecs < 0 {
		return errors.New("booking.calendar_cache_ttl_seconds must not be negative")
	}
	if c.Worker.DriftIntervalSeconds < 0 {
		return errors.New("worker.drift_interval_seconds must not be negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// Window parses the inclusive booking window as UTC calendar days.
func (b BookingConfig) Window() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, b.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("booking.start_date: %w", err)
	}
	end, err := time.Parse(dateLayout, b.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("booking.end_date: %w", err)
	}
	return start, end, nil
}

// CalendarTTL is the expiry of mirrored calendar keys. Zero keeps them forever.
func (b BookingConfig) CalendarTTL() time.Duration {
	return time.Duration(b.CalendarTTLSecs) * time.Second
}

// CalendarRefresh is how often the mirror rewrites unchanged keys, a third of
// the TTL so a key survives two missed writes.
func (b BookingConfig) CalendarRefresh() time.Duration {
	return b.CalendarTTL() / 3
}

func (w WorkerConfig) DriftInterval() time.Duration {
	return time.Duration(w.DriftIntervalSeconds) * time.Second
}

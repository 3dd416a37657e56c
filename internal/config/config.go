package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Postgres holds PostgreSQL connection settings
type Postgres struct {
	Host     string
	Port     int
	DB       string
	User     string
	Password string
}

// Config is the resolved configuration of a pipeline run. It is
// loaded once at startup and passed to constructors; nothing reads
// configuration mid-run.
type Config struct {
	DatabaseType string // "sqlite" or "postgresql"
	SQLitePath   string
	Postgres     Postgres

	Latitude  float64
	Longitude float64
	Timezone  string

	DataDir      string
	CalendarFile string

	StartDate string // collection window, YYYY-MM-DD
	EndDate   string
	PriceSeed int64 // seed for the simulated price scraper

	LogLevel  string
	LogFormat string // "text" or "json"
	LogFile   string

	ListenAddr string
	Interval   time.Duration
}

// Load resolves configuration from defaults, an optional YAML file
// and environment variables, the environment winning. Keys map to
// env names with dots replaced by underscores, so database.type reads
// DATABASE_TYPE and postgres.host reads POSTGRES_HOST.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("sqlite.path", "database/rte_consommation.db")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.db", "rte_consommation")
	v.SetDefault("postgres.user", "rte_user")
	v.SetDefault("postgres.password", "rte_secure_password")
	v.SetDefault("location.latitude", 48.8566)
	v.SetDefault("location.longitude", 2.3522)
	v.SetDefault("location.timezone", "Europe/Paris")
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.calendar_file", "data/jours_feries_2026.csv")
	v.SetDefault("collect.start_date", "2026-01-01")
	v.SetDefault("collect.end_date", "2026-01-21")
	v.SetDefault("prices.seed", 42)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("daemon.listen", ":8080")
	v.SetDefault("daemon.interval", "24h")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.ReadInConfig()
	}

	cfg := Config{
		DatabaseType: strings.ToLower(v.GetString("database.type")),
		SQLitePath:   v.GetString("sqlite.path"),
		Postgres: Postgres{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetInt("postgres.port"),
			DB:       v.GetString("postgres.db"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
		},
		Latitude:     v.GetFloat64("location.latitude"),
		Longitude:    v.GetFloat64("location.longitude"),
		Timezone:     v.GetString("location.timezone"),
		DataDir:      v.GetString("data.dir"),
		CalendarFile: v.GetString("data.calendar_file"),
		StartDate:    v.GetString("collect.start_date"),
		EndDate:      v.GetString("collect.end_date"),
		PriceSeed:    v.GetInt64("prices.seed"),
		LogLevel:     v.GetString("log.level"),
		LogFormat:    v.GetString("log.format"),
		LogFile:      v.GetString("log.file"),
		ListenAddr:   v.GetString("daemon.listen"),
		Interval:     v.GetDuration("daemon.interval"),
	}

	return cfg, nil
}

// DSN returns the database/sql driver name and connection string for
// the configured engine
func (c Config) DSN() (driver, dsn string) {
	switch c.DatabaseType {
	case "postgresql", "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.Postgres.User, c.Postgres.Password),
			Host:   fmt.Sprintf("%s:%d", c.Postgres.Host, c.Postgres.Port),
			Path:   c.Postgres.DB,
		}
		return "pgx", u.String()
	default:
		return "sqlite", c.SQLitePath
	}
}

// Location loads the configured timezone
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Window returns the collection window bounds in the given zone:
// midnight of the start day through 23:00 of the end day, both
// included
func (c Config) Window(loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", c.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing start date %q: %w", c.StartDate, err)
	}
	endDay, err := time.ParseInLocation("2006-01-02", c.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing end date %q: %w", c.EndDate, err)
	}
	end := endDay.Add(23 * time.Hour)
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("collection window ends %s before it starts %s", c.EndDate, c.StartDate)
	}
	return start, end, nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/minibank/internal/logger"
	"github.com/nkiryanov/minibank/internal/models"
)

const (
	defaultListenAddr          = "localhost:8000"
	defaultLoggingLevel        = logger.LevelInfo
	defaultEnvironment         = logger.EnvProduction
	defaultTransferAccountType = models.AccountTypeChecking
	defaultNotifyWorkers       = 2
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the minibank service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Environment
	Environment string

	// Redis address for the idempotency cache. Cache disabled if empty
	RedisAddr string

	// SMTP server for transfer notifications. Notifications only logged if empty
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Number of workers sending notifications
	NotifyWorkers int

	// Account type both transfer parties must hold
	TransferAccountType string

	// Users registered with these emails become admins
	AdminEmails []string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:            defaultLoggingLevel,
		ListenAddr:          defaultListenAddr,
		Environment:         defaultEnvironment,
		NotifyWorkers:       defaultNotifyWorkers,
		TransferAccountType: defaultTransferAccountType,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			i, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = i
			return nil
		}
	}
	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = strings.Split(value, ",")
			}
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":           setString(&c.ListenAddr),
		"DATABASE_URI":          setString(&c.DatabaseDSN),
		"SECRET_KEY":            setString(&c.SecretKey),
		"LOG_LEVEL":             setString(&c.LogLevel),
		"ENVIRONMENT":           setString(&c.Environment),
		"REDIS_ADDR":            setString(&c.RedisAddr),
		"SMTP_ADDR":             setString(&c.SMTPAddr),
		"SMTP_USERNAME":         setString(&c.SMTPUsername),
		"SMTP_PASSWORD":         setString(&c.SMTPPassword),
		"SMTP_FROM":             setString(&c.SMTPFrom),
		"NOTIFY_WORKERS":        setInt(&c.NotifyWorkers),
		"TRANSFER_ACCOUNT_TYPE": setString(&c.TransferAccountType),
		"ADMIN_EMAILS":          setList(&c.AdminEmails),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("minibank", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address for idempotency cache")
	fs.StringVar(&c.SMTPAddr, "smtp-address", c.SMTPAddr, "SMTP server address (host:port)")
	fs.StringVar(&c.SMTPUsername, "smtp-username", c.SMTPUsername, "SMTP username")
	fs.StringVar(&c.SMTPPassword, "smtp-password", c.SMTPPassword, "SMTP password")
	fs.StringVar(&c.SMTPFrom, "smtp-from", c.SMTPFrom, "Sender address of notifications")
	fs.IntVar(&c.NotifyWorkers, "notify-workers", c.NotifyWorkers, "Number of notification workers")
	fs.StringVar(&c.TransferAccountType, "transfer-account-type", c.TransferAccountType, "Account type required for transfers (checking, savings)")
	fs.StringSliceVar(&c.AdminEmails, "admin-emails", c.AdminEmails, "Emails that get admin role on registration")

	return fs.Parse(args)
}

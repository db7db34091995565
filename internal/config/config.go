package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

var ErrConfigPathNotSet = errors.New("config path is not set")

type (
	Config struct {
		App       App       `env-prefix:"APP_"`
		HTTP      HTTP      `env-prefix:"HTTP_"`
		Metrics   Metrics   `env-prefix:"METRICS_"`
		Logger    Logger    `env-prefix:"LOGGER_"`
		Redis     Redis     `env-prefix:"REDIS_"`
		Scheduler Scheduler `env-prefix:"SCHEDULER_"`
		Worker    Worker    `env-prefix:"WORKER_"`
		Retry     Retry     `env-prefix:"RETRY_"`
		Notify    Notify    `env-prefix:"NOTIFY_"`
		Email     Email     `env-prefix:"EMAIL_"`
		SMS       SMS       `env-prefix:"SMS_"`
		Push      Push      `env-prefix:"PUSH_"`
		Env       string    `env:"ENV" env-default:"local" validate:"oneof=local dev staging prod"`
	}

	App struct {
		Name    string `env:"NAME"    validate:"required" env-default:"medremind"`
		Version string `env:"VERSION" validate:"required" env-default:"dev"`
	}

	HTTP struct {
		Host              string        `env:"HOST"                validate:"required"                 env-default:"0.0.0.0"`
		Port              string        `env:"PORT"                validate:"required"                 env-default:"8080"`
		ReadTimeout       time.Duration `env:"READ_TIMEOUT"        validate:"gte=10ms,lte=30s"         env-default:"5s"`
		WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       validate:"gte=10ms,lte=30s"         env-default:"5s"`
		IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"        validate:"gte=10ms,lte=120s"        env-default:"60s"`
		ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"    validate:"gte=10ms,lte=30s"         env-default:"10s"`
		ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gte=10ms,lte=30s"         env-default:"5s"`
	}

	Metrics struct {
		Host              string        `env:"HOST"                validate:"required"                 env-default:"0.0.0.0"`
		Port              string        `env:"PORT"                validate:"required"                 env-default:"8081"`
		ReadTimeout       time.Duration `env:"READ_TIMEOUT"        validate:"gte=10ms,lte=30s"         env-default:"5s"`
		WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       validate:"gte=10ms,lte=30s"         env-default:"5s"`
		ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gte=10ms,lte=30s"         env-default:"5s"`
		EventBuffer       int           `env:"EVENT_BUFFER"        validate:"min=16,max=65536"         env-default:"256"`
	}

	Logger struct {
		Level      string `env:"LEVEL"       env-default:"info"                  validate:"oneof=debug info warn error"`
		Filename   string `env:"FILENAME"    env-default:"./logs/medremind.log"`
		MaxSize    int    `env:"MAX_SIZE"    env-default:"100"                   validate:"min=1,max=1000"`
		MaxBackups int    `env:"MAX_BACKUPS" env-default:"3"                     validate:"min=0,max=20"`
		MaxAge     int    `env:"MAX_AGE"     env-default:"28"                    validate:"min=1,max=365"`
	}

	Redis struct {
		Addr        string        `env:"ADDR"          validate:"required"         env-default:"localhost:6379"`
		Password    string        `env:"PASSWORD"`
		DB          int           `env:"DB"            validate:"min=0,max=15"     env-default:"0"`
		PoolSize    int           `env:"POOL_SIZE"     validate:"min=1,max=100"    env-default:"20"`
		MinIdleCons int           `env:"MIN_IDLE_CONS" validate:"min=1,max=100"    env-default:"10"`
		PoolTimeout time.Duration `env:"POOL_TIMEOUT"  validate:"gte=10ms,lte=10s" env-default:"100ms"`
		DialTimeout time.Duration `env:"DIAL_TIMEOUT"  validate:"gte=100ms,lte=30s" env-default:"5s"`
		ReadTimeout time.Duration `env:"READ_TIMEOUT"  validate:"gte=100ms,lte=30s" env-default:"3s"`
	}

	Scheduler struct {
		TickInterval time.Duration `env:"TICK_INTERVAL"  validate:"gte=100ms,lte=5m" env-default:"30s"`
		BatchLimit   int64         `env:"BATCH_LIMIT"    validate:"min=1,max=10000"  env-default:"100"`
		SubBatchSize int           `env:"SUB_BATCH_SIZE" validate:"min=1,max=1000"   env-default:"10"`
		RequeueDelay time.Duration `env:"REQUEUE_DELAY"  validate:"gte=100ms,lte=5m" env-default:"2s"`
	}

	Worker struct {
		Count               int           `env:"COUNT"                 validate:"min=1,max=256"  env-default:"5"`
		HeartbeatTimeout    time.Duration `env:"HEARTBEAT_TIMEOUT"     validate:"gte=1s,lte=10m" env-default:"30s"`
		HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" validate:"gte=1s,lte=10m" env-default:"10s"`
		RequeueDelay        time.Duration `env:"REQUEUE_DELAY"         validate:"gte=1s,lte=10m" env-default:"5s"`
	}

	Retry struct {
		MaxRetries int           `env:"MAX_RETRIES" validate:"min=0,max=10"    env-default:"2"`
		BaseDelay  time.Duration `env:"BASE_DELAY"  validate:"gte=1s,lte=1h"   env-default:"5m"`
		CounterTTL time.Duration `env:"COUNTER_TTL" validate:"gte=1m,lte=168h" env-default:"24h"`
	}

	Notify struct {
		ChannelTimeout time.Duration `env:"CHANNEL_TIMEOUT" validate:"gte=100ms,lte=1m" env-default:"10s"`
	}

	Email struct {
		Host     string `env:"HOST"     validate:"required" env-default:"localhost"`
		Port     int    `env:"PORT"     validate:"required,gte=1,lte=65535" env-default:"587"`
		Username string `env:"USERNAME"`
		Password string `env:"PASSWORD"`
		Sender   string `env:"SENDER"   validate:"required" env-default:"noreply@medremind.local"`
	}

	SMS struct {
		GatewayURL string        `env:"GATEWAY_URL" validate:"required" env-default:"http://localhost:9100/send"`
		APIKey     string        `env:"API_KEY"`
		From       string        `env:"FROM"        validate:"required" env-default:"MedRemind"`
		Timeout    time.Duration `env:"TIMEOUT"     validate:"gte=100ms,lte=1m" env-default:"5s"`
	}

	Push struct {
		GatewayURL string        `env:"GATEWAY_URL" validate:"required" env-default:"http://localhost:9101/push"`
		APIKey     string        `env:"API_KEY"`
		Timeout    time.Duration `env:"TIMEOUT"     validate:"gte=100ms,lte=1m" env-default:"5s"`
	}
)

func Load() (*Config, error) {
	path := fetchConfigPath()
	if path == "" {
		return nil, ErrConfigPathNotSet
	}
	return LoadPath(path)
}

func LoadPath(configPath string) (*Config, error) {
	const op = "config.LoadPath"

	validate := validator.New()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("%s: checking config file: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: read config: %w", op, err)
	}

	var validationErrors []string
	if err := validate.Struct(&cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, ve := range validationErrs {
				validationErrors = append(validationErrors,
					fmt.Sprintf("%s=%v must satisfy '%s'", ve.Field(), ve.Value(), ve.Tag()))
			}
			return nil, fmt.Errorf(
				"%s: config validation: %v", op,
				strings.Join(validationErrors, "; "),
			)
		}
		return nil, fmt.Errorf("%s: config validation: %w", op, err)
	}

	return &cfg, nil
}

func fetchConfigPath() string {
	var path string
	flag.StringVar(&path, "config", "", "Path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

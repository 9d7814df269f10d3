// Package config loads the application configuration: a single Config
// struct assembled from an ini/yaml file, environment variables, and
// creasty/defaults-applied zero values, following the teacher's
// viper+defaults pattern.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

var (
	App = new(Config)

	configPaths = []string{}
	configFile  = ""
	configName  = "config"
	configType  = "yaml"

	mu     sync.RWMutex
	inited bool
	cv     *viper.Viper
)

// Config is the root configuration struct. It is intentionally trimmed to
// the sections a unit-of-work core and its example executor need; the
// teacher's full Config additionally carries sections (grpc, auth, cache,
// message brokers, object storage, ...) with no analogue here.
type Config struct {
	AppInfo  `mapstructure:"app" yaml:"app"`
	Logger   `mapstructure:"logger" yaml:"logger"`
	Database `mapstructure:"database" yaml:"database"`
	Sqlite   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres `mapstructure:"postgres" yaml:"postgres"`
	MySQL    `mapstructure:"mysql" yaml:"mysql"`
}

// AppInfo carries process-identification fields used in logs and traces.
type AppInfo struct {
	Name string `mapstructure:"name" yaml:"name" default:"uow"`
	Env  string `mapstructure:"env" yaml:"env" default:"dev"`
}

// Logger configures the zap-backed logger and its lumberjack rotation.
type Logger struct {
	Level         string `mapstructure:"level" yaml:"level" default:"info"`
	Dir           string `mapstructure:"dir" yaml:"dir" default:"/tmp/uow/logs"`
	MaxAge        int    `mapstructure:"max_age" yaml:"max_age" default:"7"`
	MaxSize       int    `mapstructure:"max_size" yaml:"max_size" default:"100"`
	MaxBackups    int    `mapstructure:"max_backups" yaml:"max_backups" default:"10"`
	Compress      bool   `mapstructure:"compress" yaml:"compress" default:"true"`
	ConsoleOutput bool   `mapstructure:"console_output" yaml:"console_output" default:"true"`
}

// Database carries engine-level session defaults (spec §6 "Configuration")
// in addition to which backing SQL dialect the example executor opens.
type Database struct {
	Type           string `mapstructure:"type" yaml:"type" default:"sqlite"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns" default:"10"`
	MaxOpenConns   int    `mapstructure:"max_open_conns" yaml:"max_open_conns" default:"100"`
	ConnMaxLife    int    `mapstructure:"conn_max_lifetime_seconds" yaml:"conn_max_lifetime_seconds" default:"3600"`
	SlowQueryMS    int    `mapstructure:"slow_query_ms" yaml:"slow_query_ms" default:"200"`

	FailOnCyclicDependency    bool   `mapstructure:"fail_on_cyclic_dependency" yaml:"fail_on_cyclic_dependency" default:"true"`
	SnapshotStrategy          string `mapstructure:"snapshot_strategy" yaml:"snapshot_strategy" default:"eager"`
	StrictOperationValidation bool   `mapstructure:"strict_operation_validation" yaml:"strict_operation_validation" default:"true"`
	MaxTransitionHistory      int    `mapstructure:"max_transition_history" yaml:"max_transition_history" default:"0"`
}

type Sqlite struct {
	Enable bool   `mapstructure:"enable" yaml:"enable" default:"true"`
	Path   string `mapstructure:"path" yaml:"path" default:"uow.db"`
}

type Postgres struct {
	Enable   bool   `mapstructure:"enable" yaml:"enable" default:"false"`
	Host     string `mapstructure:"host" yaml:"host" default:"127.0.0.1"`
	Port     int    `mapstructure:"port" yaml:"port" default:"5432"`
	Database string `mapstructure:"database" yaml:"database" default:"uow"`
	Username string `mapstructure:"username" yaml:"username" default:"postgres"`
	Password string `mapstructure:"password" yaml:"password"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode" default:"disable"`
}

type MySQL struct {
	Enable   bool   `mapstructure:"enable" yaml:"enable" default:"false"`
	Host     string `mapstructure:"host" yaml:"host" default:"127.0.0.1"`
	Port     int    `mapstructure:"port" yaml:"port" default:"3306"`
	Database string `mapstructure:"database" yaml:"database" default:"uow"`
	Username string `mapstructure:"username" yaml:"username" default:"root"`
	Password string `mapstructure:"password" yaml:"password"`
}

// SetConfigFile overrides which file Init reads; must be called before Init.
func SetConfigFile(path string) { configFile = path }

// AddConfigPath registers an extra search directory for the config file.
func AddConfigPath(path string) { configPaths = append(configPaths, path) }

// Init loads configuration in priority order: environment variables,
// configuration file, then struct-tag defaults.
func Init() (err error) {
	mu.Lock()
	defer mu.Unlock()

	App = new(Config)
	if err = defaults.Set(App); err != nil {
		return errors.Wrap(err, "failed to set config defaults")
	}

	cv = viper.New()
	cv.AutomaticEnv()
	cv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if len(configFile) > 0 {
		cv.SetConfigFile(configFile)
	} else {
		cv.SetConfigName(configName)
		cv.SetConfigType(configType)
	}
	cv.AddConfigPath(".")
	for _, p := range configPaths {
		cv.AddConfigPath(p)
	}

	if err = cv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read config file")
		}
		if flag.Lookup("test.v") == nil {
			fmt.Fprintln(os.Stdout, "no config file found, using defaults and environment")
		}
	}

	if err = cv.Unmarshal(App); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}

	inited = true
	return nil
}

// Inited reports whether Init has run successfully.
func Inited() bool {
	mu.RLock()
	defer mu.RUnlock()
	return inited
}

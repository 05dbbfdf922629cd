package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/ini.v1"
)

// MySQLConfig holds the connection settings used by the index import
type MySQLConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Socket   string
	Database string
}

// ImportOptions are the command line settings for importing index
// definitions from a live MySQL schema
type ImportOptions struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	Socket     string
	LoginPath  string
	ConfigFile string
	Timeout    time.Duration
}

// Requested reports whether any connection flag was given
func (o ImportOptions) Requested() bool {
	return o.Host != "" || o.Socket != "" || o.Database != "" || o.LoginPath != "" || o.ConfigFile != ""
}

// mysqlConfigFiles are read in order; the first value found for a setting wins
func mysqlConfigFiles(extra string) []string {
	files := []string{
		"/etc/my.cnf",
		"/etc/mysql/my.cnf",
		"/usr/local/etc/my.cnf",
	}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".my.cnf"))
	}
	if extra != "" {
		files = append(files, extra)
	}
	return files
}

// ReadMySQLConfig reads client settings from the standard option files.
// Unreadable files are skipped.
func ReadMySQLConfig(loginPath, configFilePath string) *MySQLConfig {
	config := &MySQLConfig{}
	for _, file := range mysqlConfigFiles(configFilePath) {
		_ = readConfigFile(file, config, loginPath)
	}
	return config
}

// readConfigFile fills unset fields of config from one option file
func readConfigFile(filename string, config *MySQLConfig, loginPath string) error {
	if _, err := os.Stat(filename); err != nil {
		return err
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true, Insensitive: true}, filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	sections := []string{"client", "mysqld"}
	if loginPath != "" && loginPath != "client" {
		sections = append(sections, loginPath)
	}

	for _, name := range sections {
		section, err := cfg.GetSection(name)
		if err != nil {
			continue
		}

		setString(&config.User, StripMatchingQuotes(section.Key("user").String()))
		setString(&config.Password, StripMatchingQuotes(section.Key("password").String()))
		setString(&config.Host, section.Key("host").String())
		setString(&config.Database, section.Key("database").String())
		setPort(&config.Port, section.Key("port").String())
		if config.Host == "" {
			setString(&config.Socket, section.Key("socket").String())
		}

		if name == "mysqld" {
			setString(&config.User, section.Key("default_user").String())
			setPort(&config.Port, section.Key("default_port").String())
			if config.Host == "" {
				setString(&config.Socket, section.Key("default_socket").String())
			}
		}
	}

	return nil
}

func setString(dst *string, val string) {
	if *dst == "" && val != "" {
		*dst = val
	}
}

func setPort(dst *int, val string) {
	if *dst != 0 || val == "" {
		return
	}
	if port, err := strconv.Atoi(val); err == nil {
		*dst = port
	}
}

// StripMatchingQuotes removes surrounding quotes from a string
func StripMatchingQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// MergeConfig overlays command line values on the option file settings
// and fills in defaults
func MergeConfig(config *MySQLConfig, opts ImportOptions) *MySQLConfig {
	merged := *config

	setOverride(&merged.User, opts.User)
	setOverride(&merged.Password, opts.Password)
	setOverride(&merged.Host, opts.Host)
	setOverride(&merged.Socket, opts.Socket)
	setOverride(&merged.Database, opts.Database)
	if opts.Port != 0 {
		merged.Port = opts.Port
	}

	if merged.User == "" {
		merged.User = os.Getenv("USER")
	}
	if merged.Host == "" && merged.Socket == "" {
		merged.Host = "localhost"
	}
	if merged.Port == 0 {
		merged.Port = 3306
	}

	// an explicit host wins over a socket from the option files
	if opts.Host != "" || config.Host != "" {
		merged.Socket = ""
	}

	return &merged
}

func setOverride(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

// BuildDSN renders the driver DSN for config
func BuildDSN(config *MySQLConfig, timeout time.Duration) string {
	dsn := mysql.NewConfig()
	dsn.User = config.User
	dsn.Passwd = config.Password
	dsn.DBName = config.Database
	if config.Socket != "" {
		dsn.Net = "unix"
		dsn.Addr = config.Socket
	} else {
		dsn.Net = "tcp"
		dsn.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	}
	if timeout > 0 {
		dsn.Timeout = timeout
	}
	return dsn.FormatDSN()
}

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// FormatDSN returns a MySQL-compatible data source name.
// If DSN is set it is parsed and normalized; otherwise the DSN is built from
// the discrete fields. parseTime and a UTC location are always enabled.
func (d *DatabaseConfig) FormatDSN() (string, error) {
	cfg, err := d.driverConfig()
	if err != nil {
		return "", err
	}
	return cfg.FormatDSN(), nil
}

// DatabaseName returns the schema the model is introspected from: the explicit
// database name, or the one embedded in the DSN.
func (d *DatabaseConfig) DatabaseName() string {
	if d.Database != "" {
		return d.Database
	}
	if d.DSN == "" {
		return ""
	}
	cfg, err := mysql.ParseDSN(d.DSN)
	if err != nil {
		return ""
	}
	return cfg.DBName
}

func (d *DatabaseConfig) driverConfig() (*mysql.Config, error) {
	var cfg *mysql.Config
	if d.DSN != "" {
		parsed, err := mysql.ParseDSN(d.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database DSN: %w", err)
		}
		cfg = parsed
		if d.Database != "" {
			cfg.DBName = d.Database
		}
	} else {
		cfg = mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
		cfg.DBName = d.Database
	}

	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

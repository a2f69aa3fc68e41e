package config

import (
	"net"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSNValue returns the connection string for the configured driver. For
// sqlite this is the database file path.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	if strings.EqualFold(c.Driver, DriverSQLite) {
		return orDefault(c.Path, defaultSQLitePath)
	}
	return c.MySQLConfig().FormatDSN()
}

// MySQLConfig builds the driver config from the discrete database fields.
func (c DatabaseRuntimeConfig) MySQLConfig() *mysql.Config {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.User = orDefault(c.User, defaultDBUser)
	mc.Passwd = orDefault(c.Password, defaultDBPassword)
	mc.Addr = net.JoinHostPort(orDefault(c.Host, defaultDBHost), strconv.Itoa(orDefaultInt(c.Port, defaultDBPort)))
	mc.DBName = orDefault(c.Name, defaultDBName)
	mc.ParseTime = c.ParseTime
	if loc, err := time.LoadLocation(orDefault(c.Loc, defaultDBLoc)); err == nil {
		mc.Loc = loc
	}
	mc.Params = map[string]string{"charset": orDefault(c.Charset, defaultDBCharset)}
	for k, v := range trimmedParams(c.Params) {
		mc.Params[k] = v
	}
	return mc
}

// URLValue returns a redis:// or rediss:// URL accepted by go-redis.
func (c RedisRuntimeConfig) URLValue() string {
	if u := withRedisScheme(c.URL); u != "" {
		return u
	}

	scheme := "redis"
	if c.TLS || strings.EqualFold(strings.TrimSpace(c.Scheme), "rediss") {
		scheme = "rediss"
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}
	u := neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(orDefault(c.Host, defaultRedisHost), strconv.Itoa(orDefaultInt(c.Port, defaultRedisPort))),
		Path:   "/" + strconv.Itoa(db),
	}
	user, pass := strings.TrimSpace(c.Username), strings.TrimSpace(c.Password)
	switch {
	case pass != "":
		u.User = neturl.UserPassword(user, pass)
	case user != "":
		u.User = neturl.User(user)
	}
	if params := trimmedParams(c.Params); len(params) > 0 {
		q := neturl.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func trimmedParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func orDefaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

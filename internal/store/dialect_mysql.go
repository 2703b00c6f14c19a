package store

import (
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
)

func init() {
	RegisterDialect(&Dialect{
		Name:       "mysql",
		Driver:     "mysql",
		ReadOnlyTx: true,
		Schema:     mysqlSchema,
		UpsertMeta: `INSERT INTO meta (name, value) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value)`,
		prepareDSN: mysqlDSN,
		isUniqueViolation: func(err error) bool {
			var myErr *mysqldriver.MySQLError
			return errors.As(err, &myErr) && myErr.Number == 1062
		},
	})
}

// mysqlDSN forces time parsing in UTC so DATETIME columns scan into
// time.Time values.
func mysqlDSN(dsn, _ string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("mysql store requires store.dsn")
	}
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Keys are VARCHAR(191) so utf8mb4 primary keys stay within the index
// length limit.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		name VARCHAR(191) PRIMARY KEY,
		value TEXT NOT NULL
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS admin_credential (
		id INT PRIMARY KEY,
		username VARCHAR(191) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		last_login_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS revoked_tokens (
		jti VARCHAR(64) PRIMARY KEY,
		expires_at DATETIME(6) NOT NULL
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS personal_info (
		id INT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL DEFAULT '',
		subtitle VARCHAR(512) NOT NULL DEFAULT '',
		location VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(320) NOT NULL DEFAULT '',
		phone VARCHAR(64) NOT NULL DEFAULT '',
		bio TEXT NOT NULL,
		github VARCHAR(512) NOT NULL DEFAULT '',
		linkedin VARCHAR(512) NOT NULL DEFAULT '',
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS projects (
		id VARCHAR(64) PRIMARY KEY,
		position BIGINT NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		category VARCHAR(255) NOT NULL,
		duration VARCHAR(255) NOT NULL,
		technologies TEXT NOT NULL,
		status VARCHAR(32) NOT NULL,
		highlights TEXT NOT NULL,
		security_score INT NOT NULL DEFAULT 0,
		vulnerabilities_fixed INT NOT NULL DEFAULT 0,
		performance INT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS skills (
		category VARCHAR(191) PRIMARY KEY,
		position BIGINT NOT NULL,
		level INT NOT NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS certifications (
		name VARCHAR(191) PRIMARY KEY,
		position BIGINT NOT NULL,
		issuer VARCHAR(255) NOT NULL,
		year INT NOT NULL,
		verified TINYINT(1) NOT NULL DEFAULT 0,
		color VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS experience (
		id VARCHAR(64) PRIMARY KEY,
		position BIGINT NOT NULL,
		title VARCHAR(255) NOT NULL,
		company VARCHAR(255) NOT NULL,
		duration VARCHAR(255) NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		achievements TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS education (
		id VARCHAR(64) PRIMARY KEY,
		position BIGINT NOT NULL,
		degree VARCHAR(255) NOT NULL,
		institution VARCHAR(255) NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT '',
		is_current TINYINT(1) NOT NULL DEFAULT 0,
		expected VARCHAR(128) NOT NULL DEFAULT '',
		completed VARCHAR(128) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS site_settings (
		name VARCHAR(191) PRIMARY KEY,
		value TEXT NOT NULL
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS contact_messages (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(320) NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		user_agent VARCHAR(1024) NOT NULL DEFAULT '',
		INDEX idx_contact_messages_created_at (created_at)
	) DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS analytics_events (
		id VARCHAR(64) PRIMARY KEY,
		event_type VARCHAR(32) NOT NULL,
		page VARCHAR(512) NOT NULL,
		device_type VARCHAR(16) NOT NULL,
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		user_agent VARCHAR(1024) NOT NULL DEFAULT '',
		browser VARCHAR(64) NOT NULL DEFAULT '',
		os VARCHAR(64) NOT NULL DEFAULT '',
		location VARCHAR(128) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		INDEX idx_analytics_events_created_at (created_at)
	) DEFAULT CHARSET=utf8mb4`,
}

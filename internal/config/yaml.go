package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up in the working
// directory and in $HOME/.folio.
const DefaultFileName = "folio.yaml"

// DefaultYAML is the commented template written by "folio config init".
const DefaultYAML = `# Folio configuration
# Every key can be overridden with FOLIO_<SECTION>_<KEY>, e.g. FOLIO_AUTH_JWT_SECRET.

server:
  host: 0.0.0.0
  port: 8080
  cors_origins:
    - "*"
  max_body_size: 1048576
  shutdown_timeout: 30s
  static_dir: ""       # serve a built frontend from this directory
  metrics: true        # expose /metrics
  trust_proxy: false   # honor X-Forwarded-For; only behind a reverse proxy

store:
  driver: sqlite       # sqlite, postgres or mysql
  dsn: ""              # required for postgres and mysql
  data_dir: ""         # sqlite file location (default: ~/.folio)

auth:
  jwt_secret: ""       # generated and persisted on first start when empty
  token_ttl: 24h
  admin_username: admin
  admin_password: password   # only used to seed the first credential
  login_rate_per_minute: 10

contact:
  require_captcha: true
  captcha_ttl: 10m
  rate_per_minute: 5

analytics:
  queue_size: 1024
  batch_size: 100
  flush_interval: 2s
  session_timeout: 30m
  stats_cache_ttl: 30s
  recent_visitors: 10

content:
  seed_on_empty: true

log:
  level: info          # debug, info, warn, error
  format: text         # text or json

mcp:
  transport: stdio     # stdio or http
  addr: ":8081"
`

// WriteDefault writes DefaultYAML to path. An existing file is only
// replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, []byte(DefaultYAML), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// MarshalSettings renders a viper settings map as YAML with the secrets
// masked.
func MarshalSettings(settings map[string]interface{}) ([]byte, error) {
	masked := maskSecrets(settings)
	return yaml.Marshal(masked)
}

var secretKeys = map[string]bool{
	"jwt_secret":     true,
	"admin_password": true,
	"dsn":            true,
}

func maskSecrets(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := in[k].(type) {
		case map[string]interface{}:
			out[k] = maskSecrets(v)
		case string:
			if secretKeys[k] && v != "" {
				out[k] = "********"
			} else {
				out[k] = v
			}
		default:
			out[k] = v
		}
	}
	return out
}

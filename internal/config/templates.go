package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes a commented framectl config to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}

const Template = `[node]
id = "framectl"
listen_addr = ":7400"
dial_addr = "127.0.0.1:7400"
# admin_addr = ":9400"
# admin_origins = ["http://localhost:3000"]

[transport]
dial_timeout = "5s"
read_timeout = "0s"
write_timeout = "15s"
max_dial_attempts = 5
max_payload_bytes = 67108864
skip_geometry_check = false
reject_unknown_connections = false
backoff_initial = "250ms"
backoff_max = "5s"
backoff_multiplier = 2.0
backoff_jitter = true

[security]
mode = "development"
tls_enabled = false
tls_mutual = false
# tls_cert_file = ""
# tls_key_file = ""
# tls_ca_file = ""
# tls_server_name = ""

[log]
level = "info"
`

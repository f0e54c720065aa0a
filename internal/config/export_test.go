package config

// DetectFormat exports detectFormat for testing.
var DetectFormat = detectFormat

// FindConfigIn exports findConfigIn for testing.
var FindConfigIn = findConfigIn

// ValidTOML is the smallest complete configuration.
const ValidTOML = `
[api]
address = "127.0.0.1"
port = 8080
log = { level = "debug", format = "pretty" }

[server]
log = { level = "info", format = "pretty" }
local_hostname = "server"
`

// InvalidTOML drops log formats and the dependency hostname.
const InvalidTOML = `
[api]
address = "127.0.0.1"
port = 8080
log = { level = "debug" }

[server]
log = { level = "info" }
`

// ValidYAML is ValidTOML expressed as YAML.
const ValidYAML = `
api:
  address: 127.0.0.1
  port: 8080
  log:
    level: debug
    format: pretty
server:
  local_hostname: server
  log:
    level: info
    format: pretty
`

// MakeTestConfig returns a minimal valid Config.
func MakeTestConfig() *Config {
	return &Config{
		API: APIConfig{
			Address: "127.0.0.1",
			Port:    8080,
			Log:     LogConfig{Level: LevelDebug, Format: FormatPretty},
		},
		Server: ServerConfig{
			LocalHostname: "server",
			Log:           LogConfig{Level: LevelInfo, Format: FormatPretty},
		},
	}
}

package config

// DefaultTOML is the template written by "synolink config init". Every key
// is commented out so the built-in defaults stay in effect until edited.
const DefaultTOML = `# synolink configuration.
# Environment variables (SYNO_HOST, SYNO_PORT, ...) and flags override this file.

[synology]
# host = "localhost"
# port = 5000
# username = ""
# Prefer SYNO_PASS in .env.local over storing the password here.
# password = ""

[log]
# level = "info"      # debug, info, warn, error
# format = "console"  # console, json

[search]
# poll_interval = "500ms"

[http]
# timeout = "0s"      # 0 disables the per-request timeout

[metrics]
# listen = "127.0.0.1:9464"
`

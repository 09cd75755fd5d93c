package webhook

// Config holds the event server settings.
type Config struct {
	Port        int
	TLSCertPath string
	TLSKeyPath  string
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{Port: 8080}
}

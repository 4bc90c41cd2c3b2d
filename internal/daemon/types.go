package daemon

// StartOptions configures the daemon. Zero values fall back to <home>/config.yaml.
type StartOptions struct {
	Home       string
	Port       int    // overrides server.port when non-zero
	Dev        bool   // CORS for a dashboard served from another origin
	PprofAddr  string // e.g. "localhost:6060"; empty disables pprof
	EnableOtel bool   // Prometheus exporter and otelhttp instrumentation
	Fast       bool   // zero every scenario pause
}

// StatusInfo is the result of Status (running or not, PID, listen addr).
type StatusInfo struct {
	Running bool
	PID     int
	Addr    string
}

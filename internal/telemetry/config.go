package telemetry

// Config configures the trace pipeline.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string

	// Insecure disables TLS toward the collector.
	Insecure bool

	// SampleRate is the head-sampling ratio in [0,1]; 1 keeps every trace.
	SampleRate float64
}

// DefaultConfig returns the local-collector defaults used when the
// config file has no telemetry section.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "ptyhub",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ServerRunOptions configures the HTTP/SSE surface.
type ServerRunOptions struct {
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	BindPort    int    `json:"bind-port" mapstructure:"bind-port"`

	// AuthToken, when non-empty, requires Bearer auth on every endpoint
	// except /api/health and /api/progress. FORGE_SERVER_AUTH_TOKEN
	// overrides it.
	AuthToken string `json:"auth-token" mapstructure:"auth-token"`

	// RateLimitMax is the per-IP request budget inside RateLimitWindow.
	RateLimitMax    int           `json:"rate-limit-max" mapstructure:"rate-limit-max"`
	RateLimitWindow time.Duration `json:"rate-limit-window" mapstructure:"rate-limit-window"`

	// SSE channel tuning.
	HeartbeatInterval time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`
	MaxSSEClients     int           `json:"max-sse-clients" mapstructure:"max-sse-clients"`
}

func NewServerRunOptions() *ServerRunOptions {
	return &ServerRunOptions{
		BindAddress:       "127.0.0.1",
		BindPort:          8777,
		RateLimitMax:      30,
		RateLimitWindow:   time.Minute,
		HeartbeatInterval: 15 * time.Second,
		MaxSSEClients:     64,
	}
}

func (o *ServerRunOptions) Addr() string {
	return fmt.Sprintf("%s:%d", o.BindAddress, o.BindPort)
}

func (o *ServerRunOptions) Validate() []error {
	var errs []error
	if o.BindPort < 1 || o.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("server.bind-port %d out of range [1,65535]", o.BindPort))
	}
	if o.RateLimitMax < 1 {
		errs = append(errs, fmt.Errorf("server.rate-limit-max must be positive"))
	}
	if o.MaxSSEClients < 1 {
		errs = append(errs, fmt.Errorf("server.max-sse-clients must be positive"))
	}
	return errs
}

func (o *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BindAddress, "server.bind-address", o.BindAddress, "Address the API server listens on.")
	fs.IntVar(&o.BindPort, "server.bind-port", o.BindPort, "Port the API server listens on.")
	fs.StringVar(&o.AuthToken, "server.auth-token", o.AuthToken, "Bearer token required on API endpoints; empty disables auth.")
	fs.IntVar(&o.RateLimitMax, "server.rate-limit-max", o.RateLimitMax, "Max requests per IP per window.")
	fs.DurationVar(&o.RateLimitWindow, "server.rate-limit-window", o.RateLimitWindow, "Sliding rate-limit window.")
	fs.IntVar(&o.MaxSSEClients, "server.max-sse-clients", o.MaxSSEClients, "Max concurrent SSE subscribers per channel.")
}

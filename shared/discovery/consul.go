package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Config holds Consul registration settings. Registration is skipped when
// Address is empty.
type Config struct {
	Address     string `env:"CONSUL_ADDR"`
	ServiceName string `env:"CONSUL_SERVICE_NAME" envDefault:"auth-service"`
	ServiceHost string `env:"CONSUL_SERVICE_HOST" envDefault:"localhost"`
}

// Registry registers the running service with Consul using a gRPC health check.
type Registry struct {
	client    *consulapi.Client
	logger    *zerolog.Logger
	serviceID string
}

// NewRegistry creates a Consul client for the configured agent.
func NewRegistry(cfg Config, logger *zerolog.Logger) (*Registry, error) {
	consulCfg := consulapi.DefaultConfig()
	consulCfg.Address = cfg.Address

	client, err := consulapi.NewClient(consulCfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &Registry{client: client, logger: logger}, nil
}

// Register announces the service. grpcAddr is the address of the gRPC health
// server and httpAddr the address serving the auth endpoints.
func (r *Registry) Register(cfg Config, httpAddr, grpcAddr string) error {
	_, httpPort, err := splitHostPort(httpAddr)
	if err != nil {
		return err
	}
	_, grpcPort, err := splitHostPort(grpcAddr)
	if err != nil {
		return err
	}

	r.serviceID = fmt.Sprintf("%s-%s-%d", cfg.ServiceName, cfg.ServiceHost, httpPort)

	registration := &consulapi.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    cfg.ServiceName,
		Address: cfg.ServiceHost,
		Port:    httpPort,
		Check: &consulapi.AgentServiceCheck{
			GRPC:                           net.JoinHostPort(cfg.ServiceHost, strconv.Itoa(grpcPort)),
			Interval:                       (10 * time.Second).String(),
			Timeout:                        (2 * time.Second).String(),
			DeregisterCriticalServiceAfter: time.Minute.String(),
		},
	}

	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("register service with consul: %w", err)
	}

	r.logger.Info().Str("service_id", r.serviceID).Msg("registered service with consul")
	return nil
}

// Deregister removes the service registered by Register.
func (r *Registry) Deregister() error {
	if r.serviceID == "" {
		return nil
	}
	if err := r.client.Agent().ServiceDeregister(r.serviceID); err != nil {
		return fmt.Errorf("deregister service from consul: %w", err)
	}

	r.logger.Info().Str("service_id", r.serviceID).Msg("deregistered service from consul")
	return nil
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("parse address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("parse port in %q: %w", addr, err)
	}

	return host, port, nil
}

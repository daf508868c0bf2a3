package cli

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/alecthomas/kong"

	"github.com/ThomasMiz/whereyoufrom/internal"
	"github.com/ThomasMiz/whereyoufrom/internal/addr"
	"github.com/ThomasMiz/whereyoufrom/internal/config"
)

// Flags is the root flag set for the whereyoufrom command.
var Flags struct {
	Verbose   bool             `short:"v" help:"Display additional information while running."`
	Silent    bool             `short:"s" help:"Do not print per-connection notices."`
	ListenTCP []string         `short:"t" name:"listen-tcp" placeholder:"ADDR" help:"TCP socket address to listen on for incoming clients. May be repeated; use '-' to disable TCP."`
	ListenUDP []string         `short:"u" name:"listen-udp" placeholder:"ADDR" help:"UDP socket address to listen on for incoming clients. May be repeated; use '-' to disable UDP."`
	Config    string           `short:"c" placeholder:"PATH" help:"Path to a YAML configuration file."`
	Monitor   string           `placeholder:"ADDR" help:"Expose the monitoring HTTP server on this address."`
	Version   kong.VersionFlag `short:"V" help:"Display the version number and exit."`
}

// Settings is the fully resolved startup configuration consumed by main.
type Settings struct {
	Verbose bool
	Silent  bool

	// Resolved listen endpoints per transport. Empty means disabled.
	TCP []netip.AddrPort
	UDP []netip.AddrPort

	Logging    config.LoggingConfig
	Monitoring config.MonitoringConfig
}

// flagValues carries the parsed flags into buildSettings, keeping the merge
// logic testable without going through kong.
type flagValues struct {
	Verbose   bool
	Silent    bool
	ListenTCP []string
	ListenUDP []string
	Monitor   string
}

// Load parses the command line, loads the optional config file, and resolves
// everything into Settings. Help and version requests exit the process from
// within kong.
func Load(ctx context.Context) (*Settings, error) {
	kong.Parse(&Flags,
		kong.Name(internal.Name),
		kong.Description("A server that responds to every TCP connection and UDP datagram with the sender's observed address.\n\n"+
			"Socket addresses may be an IPv4 or IPv6 address or a domain name, optionally with a port number "+
			"(default 6969). With no -t/-u options the server listens on [::] and 0.0.0.0."),
		kong.UsageOnError(),
		kong.Vars{"version": internal.VersionString()},
	)

	cfg := config.Default()
	path := Flags.Config
	if path == "" {
		if p, ok := config.DefaultPath(); ok {
			path = p
		}
	}
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	return buildSettings(ctx, flagValues{
		Verbose:   Flags.Verbose,
		Silent:    Flags.Silent,
		ListenTCP: Flags.ListenTCP,
		ListenUDP: Flags.ListenUDP,
		Monitor:   Flags.Monitor,
	}, cfg)
}

// buildSettings merges flags over the config file and resolves the listen
// tokens. Flags replace file values wholesale where given.
func buildSettings(ctx context.Context, fl flagValues, cfg *config.Config) (*Settings, error) {
	tcpTokens := fl.ListenTCP
	if len(tcpTokens) == 0 {
		tcpTokens = cfg.Server.TCP
	}
	udpTokens := fl.ListenUDP
	if len(udpTokens) == 0 {
		udpTokens = cfg.Server.UDP
	}

	tcp, err := addr.Resolve(ctx, tcpTokens)
	if err != nil {
		return nil, fmt.Errorf("TCP listen address: %w", err)
	}
	udp, err := addr.Resolve(ctx, udpTokens)
	if err != nil {
		return nil, fmt.Errorf("UDP listen address: %w", err)
	}

	if len(tcp) == 0 && len(udp) == 0 {
		return nil, errors.New("no sockets were specified for TCP nor UDP")
	}

	monitoring := cfg.Monitoring
	if fl.Monitor != "" {
		monitoring.Enabled = true
		monitoring.Address = fl.Monitor
		if err := monitoring.Validate(); err != nil {
			return nil, fmt.Errorf("monitor address: %w", err)
		}
	}

	return &Settings{
		Verbose:    fl.Verbose,
		Silent:     fl.Silent,
		TCP:        tcp,
		UDP:        udp,
		Logging:    cfg.Logging,
		Monitoring: monitoring,
	}, nil
}

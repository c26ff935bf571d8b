// ABOUTME: mDNS service advertisement and browsing
// ABOUTME: TXT records carry the websocket path, modes and version
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/dvmvoice/mbe-go/internal/version"
	"github.com/dvmvoice/mbe-go/pkg/mbe"
	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type of a transcoder
const ServiceType = "_mbe-transcode._tcp"

// DefaultPath is the websocket path advertised when Config.Path is empty
const DefaultPath = "/mbe"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string
}

// Manager handles mDNS operations
type Manager struct {
	config   Config
	ctx      context.Context
	cancel   context.CancelFunc
	services chan *ServiceInfo
	server   *mdns.Server
}

// ServiceInfo describes a discovered transcoder
type ServiceInfo struct {
	Name    string
	Host    string
	Port    int
	Path    string
	Modes   []string
	Version string
}

// Addr returns host:port of the service
func (s *ServiceInfo) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		services: make(chan *ServiceInfo, 10),
	}
}

// txtRecords returns the TXT records advertised for the service
func (m *Manager) txtRecords() []string {
	return []string{
		"path=" + m.config.Path,
		"modes=" + mbe.CodecDMRAMBE + "," + mbe.CodecIMBE88,
		"version=" + version.Version,
	}
}

// Advertise advertises this transcoder via mDNS
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	m.server = server

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for transcoders until Stop is called
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop continuously browses for transcoders
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				if entry.AddrV4 == nil {
					continue
				}
				info := parseEntry(entry)
				log.Printf("Discovered transcoder: %s at %s", info.Name, info.Addr())

				select {
				case m.services <- info:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: ServiceType,
			Domain:  "local",
			Timeout: 3 * time.Second,
			Entries: entries,
		}

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
	}
}

// parseEntry builds a ServiceInfo from an mDNS entry and its TXT records
func parseEntry(entry *mdns.ServiceEntry) *ServiceInfo {
	info := &ServiceInfo{
		Name: entry.Name,
		Port: entry.Port,
		Path: DefaultPath,
	}
	if entry.AddrV4 != nil {
		info.Host = entry.AddrV4.String()
	}

	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			info.Path = value
		case "modes":
			info.Modes = strings.Split(value, ",")
		case "version":
			info.Version = value
		}
	}
	return info
}

// Services returns the channel of discovered transcoders
func (m *Manager) Services() <-chan *ServiceInfo {
	return m.services
}

// Stop stops advertisement and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IPv4 addresses
func getLocalIPs() ([]net.IP, error) {
	ips := []net.IP{}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}

// ABOUTME: mDNS service discovery for the PCM bridge
// ABOUTME: Advertises the websocket receiver and lets senders find bridges on the LAN
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/glebpom/shairport/internal/version"
	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service type of a bridge
const ServiceType = "_shairport-pcm._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string
	SampleRate  int
	ID          string
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
	server *mdns.Server
}

// BridgeInfo describes a discovered bridge
type BridgeInfo struct {
	Name       string
	Host       string
	Port       int
	Path       string
	SampleRate int
	ID         string
	Version    string
}

// URL returns the websocket URL of the bridge
func (b BridgeInfo) URL() string {
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(b.Host, strconv.Itoa(b.Port)), b.Path)
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/pcm"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// TXT returns the TXT records advertised for config
func (c Config) TXT() []string {
	txt := []string{"path=" + c.Path}
	if c.SampleRate > 0 {
		txt = append(txt, "rate="+strconv.Itoa(c.SampleRate))
	}
	if c.ID != "" {
		txt = append(txt, "id="+c.ID)
	}
	return append(txt, "version="+version.Version)
}

// Advertise advertises this bridge via mDNS until Stop
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
		m.config.TXT(),
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

// Stop stops advertising
func (m *Manager) Stop() {
	m.cancel()
}

// Lookup queries the LAN for bridges for up to timeout
func Lookup(ctx context.Context, timeout time.Duration) ([]BridgeInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []BridgeInfo

	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if !strings.Contains(entry.Name, ServiceType) {
				continue
			}
			info := infoFromEntry(entry)
			log.Printf("Discovered bridge: %s at %s:%d", info.Name, info.Host, info.Port)
			found = append(found, info)
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done

	if err != nil {
		return found, fmt.Errorf("mdns query failed: %w", err)
	}
	return found, nil
}

// infoFromEntry converts a service entry, reading the TXT fields
func infoFromEntry(entry *mdns.ServiceEntry) BridgeInfo {
	info := BridgeInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Port: entry.Port,
		Path: "/pcm",
	}
	if entry.AddrV4 != nil {
		info.Host = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		info.Host = entry.AddrV6.String()
	} else {
		info.Host = strings.TrimSuffix(entry.Host, ".")
	}

	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			info.Path = value
		case "rate":
			info.SampleRate, _ = strconv.Atoi(value)
		case "id":
			info.ID = value
		case "version":
			info.Version = value
		}
	}
	return info
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

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

package services

import (
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"netvisor-console/backend/system"
)

// GeoIPService resolves source IPs to country codes for the activity view.
// Backed by a MaxMind GeoLite2 database when one is configured; otherwise a
// small built-in CIDR table covers the common cases. Private addresses are
// always reported as "LAN".
type GeoIPService struct {
	mu            sync.RWMutex
	reader        *geoip2.Reader
	countryRanges map[string][]net.IPNet
}

// NewGeoIPService creates the resolver. dbPath may be empty; lookups then
// fall back to the built-in table.
func NewGeoIPService(dbPath string) *GeoIPService {
	g := &GeoIPService{
		countryRanges: make(map[string][]net.IPNet),
	}
	g.loadFallbackData()

	if dbPath != "" {
		reader, err := geoip2.Open(dbPath)
		if err != nil {
			system.Warn("Failed to open GeoIP database %s, using built-in ranges: %v", dbPath, err)
		} else {
			g.reader = reader
			system.Info("GeoIP database loaded from %s", dbPath)
		}
	}

	return g
}

// Close releases the database handle.
func (g *GeoIPService) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reader != nil {
		g.reader.Close()
		g.reader = nil
	}
}

// CountryCode returns the ISO country code for an IP, "LAN" for private
// addresses and "XX" when unknown.
func (g *GeoIPService) CountryCode(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "XX"
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return "LAN"
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.reader != nil {
		record, err := g.reader.Country(ip)
		if err == nil && record.Country.IsoCode != "" {
			return record.Country.IsoCode
		}
	}

	for country, ranges := range g.countryRanges {
		for _, ipRange := range ranges {
			if ipRange.Contains(ip) {
				return country
			}
		}
	}
	return "XX"
}

// loadFallbackData loads a coarse country CIDR table used when no MaxMind
// database is available. Accuracy is best-effort only.
func (g *GeoIPService) loadFallbackData() {
	countryCIDRs := map[string][]string{
		"KR": {
			"1.11.0.0/16", "1.16.0.0/12", "27.0.0.0/10",
			"58.120.0.0/13", "59.5.0.0/16", "61.72.0.0/13",
			"106.240.0.0/12", "115.68.0.0/14", "121.128.0.0/10",
			"175.192.0.0/10", "211.32.0.0/12",
		},
		"US": {
			"3.0.0.0/8", "4.0.0.0/8", "8.0.0.0/8",
			"12.0.0.0/8", "13.0.0.0/8",
		},
		"CN": {
			"36.0.0.0/8", "42.0.0.0/8", "58.0.0.0/8",
			"60.0.0.0/8", "61.0.0.0/8", "101.0.0.0/8",
		},
		"JP": {
			"1.0.16.0/20", "1.1.0.0/16", "1.21.0.0/16",
			"49.212.0.0/14",
		},
		"DE": {
			"2.16.0.0/13", "5.0.0.0/8", "31.0.0.0/8",
			"46.0.0.0/8", "78.0.0.0/8",
		},
		"GB": {
			"2.0.0.0/9", "25.0.0.0/8",
		},
	}

	for country, cidrs := range countryCIDRs {
		ranges := make([]net.IPNet, 0, len(cidrs))
		for _, cidr := range cidrs {
			_, ipNet, err := net.ParseCIDR(cidr)
			if err == nil {
				ranges = append(ranges, *ipNet)
			}
		}
		g.countryRanges[country] = ranges
	}
}

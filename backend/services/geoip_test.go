package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountryCode(t *testing.T) {
	t.Parallel()
	g := NewGeoIPService("")
	defer g.Close()

	assert.Equal(t, "LAN", g.CountryCode("192.168.0.10"))
	assert.Equal(t, "LAN", g.CountryCode("10.1.2.3"))
	assert.Equal(t, "LAN", g.CountryCode("127.0.0.1"))
	assert.Equal(t, "US", g.CountryCode("8.8.8.8"))
	assert.Equal(t, "XX", g.CountryCode("not-an-ip"))
	assert.Equal(t, "XX", g.CountryCode("198.51.100.7"))
}

func TestGeoIPMissingDatabaseFallsBack(t *testing.T) {
	t.Parallel()
	g := NewGeoIPService("/nonexistent/GeoLite2-Country.mmdb")
	defer g.Close()

	assert.Equal(t, "US", g.CountryCode("8.8.8.8"))
}

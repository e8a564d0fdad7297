// Package geo provides country lookups for attribution diagnostics.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Info is the subset of GeoIP data surfaced in diagnostics.
type Info struct {
	Country     string
	CountryCode string
	City        string
}

// Resolver looks up IPs against a MaxMind database. A nil Resolver is
// valid and resolves nothing.
type Resolver struct {
	reader *maxminddb.Reader
}

// NewResolver opens a MaxMind database at dbPath.
func NewResolver(dbPath string) (*Resolver, error) {
	reader, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// record mirrors the GeoLite2-City fields we read.
type record struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

// Lookup returns geo info for ip, or nil when the resolver is disabled,
// the address is unparsable, or the database has no entry.
func (r *Resolver) Lookup(ip string) *Info {
	if r == nil || r.reader == nil {
		return nil
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil
	}
	var rec record
	if err := r.reader.Lookup(parsed, &rec); err != nil {
		return nil
	}
	if rec.Country.ISOCode == "" && len(rec.Country.Names) == 0 {
		return nil
	}
	return &Info{
		Country:     rec.Country.Names["en"],
		CountryCode: rec.Country.ISOCode,
		City:        rec.City.Names["en"],
	}
}

// Close releases the database.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

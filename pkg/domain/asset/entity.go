// Package asset holds the Asset aggregate: one logical host that collects
// vulnerability counts and a risk score across scan batches.
package asset

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)

// Asset is a logical host. There is exactly one Asset per distinct host string.
type Asset struct {
	id                 shared.ID
	fqdnOrIP           string
	ipAddress          string
	rootDomain         string
	vulnerabilityCount int
	riskScore          int
	uploadSessionID    shared.ID
	createdAt          time.Time
	updatedAt          time.Time
}

// NewAsset creates an asset on first sighting of a host.
func NewAsset(host string, vulnerabilityCount, riskScore int, uploadSessionID shared.ID) (*Asset, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("%w: host is required", shared.ErrValidation)
	}
	if vulnerabilityCount < 0 {
		return nil, fmt.Errorf("%w: vulnerability count must not be negative", shared.ErrValidation)
	}

	a := &Asset{
		id:                 shared.NewID(),
		fqdnOrIP:           host,
		vulnerabilityCount: vulnerabilityCount,
		riskScore:          riskScore,
		uploadSessionID:    uploadSessionID,
		createdAt:          time.Now().UTC(),
	}
	a.updatedAt = a.createdAt

	if IsIPv4(host) {
		a.ipAddress = host
	} else if host != "unknown" {
		a.rootDomain = ExtractRootDomain(host)
	}
	return a, nil
}

// Reconstitute recreates an Asset from persistence.
func Reconstitute(
	id shared.ID,
	fqdnOrIP, ipAddress, rootDomain string,
	vulnerabilityCount, riskScore int,
	uploadSessionID shared.ID,
	createdAt, updatedAt time.Time,
) *Asset {
	return &Asset{
		id:                 id,
		fqdnOrIP:           fqdnOrIP,
		ipAddress:          ipAddress,
		rootDomain:         rootDomain,
		vulnerabilityCount: vulnerabilityCount,
		riskScore:          riskScore,
		uploadSessionID:    uploadSessionID,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

func (a *Asset) ID() shared.ID              { return a.id }
func (a *Asset) FQDNOrIP() string           { return a.fqdnOrIP }
func (a *Asset) IPAddress() string          { return a.ipAddress }
func (a *Asset) RootDomain() string         { return a.rootDomain }
func (a *Asset) VulnerabilityCount() int    { return a.vulnerabilityCount }
func (a *Asset) RiskScore() int             { return a.riskScore }
func (a *Asset) UploadSessionID() shared.ID { return a.uploadSessionID }
func (a *Asset) CreatedAt() time.Time       { return a.createdAt }
func (a *Asset) UpdatedAt() time.Time       { return a.updatedAt }

// HasIP reports whether the host is a literal IPv4 address.
func (a *Asset) HasIP() bool {
	return a.ipAddress != ""
}

// IsIPv4 reports whether host is a dotted-quad IPv4 address.
func IsIPv4(host string) bool {
	m := ipv4Pattern.FindStringSubmatch(host)
	if m == nil {
		return false
	}
	for _, octet := range m[1:] {
		n := 0
		for _, c := range octet {
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

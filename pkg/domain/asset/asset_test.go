package asset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

func newFinding(t *testing.T, sev vulnerability.Severity) *vulnerability.Finding {
	t.Helper()
	f, err := vulnerability.NewFinding(vulnerability.FindingParams{
		ScanID:   shared.NewID(),
		Host:     "h1",
		Severity: sev,
	})
	require.NoError(t, err)
	return f
}

func TestCalculateRiskScore(t *testing.T) {
	findings := []*vulnerability.Finding{
		newFinding(t, vulnerability.SeverityCritical),
		newFinding(t, vulnerability.SeverityHigh),
		newFinding(t, vulnerability.SeverityMedium),
		newFinding(t, vulnerability.SeverityLow),
		newFinding(t, vulnerability.SeverityInfo),
	}

	assert.Equal(t, 22, CalculateRiskScore(findings))
	assert.Equal(t, 0, CalculateRiskScore(nil))
}

func TestCalculateRiskScore_OrderIndependent(t *testing.T) {
	findings := []*vulnerability.Finding{
		newFinding(t, vulnerability.SeverityLow),
		newFinding(t, vulnerability.SeverityCritical),
		newFinding(t, vulnerability.SeverityMedium),
		newFinding(t, vulnerability.SeverityCritical),
	}
	want := CalculateRiskScore(findings)

	permutations := [][]int{{3, 2, 1, 0}, {1, 0, 3, 2}, {2, 3, 0, 1}, {0, 3, 1, 2}}
	for _, perm := range permutations {
		reordered := make([]*vulnerability.Finding, len(perm))
		for i, j := range perm {
			reordered[i] = findings[j]
		}
		assert.Equal(t, want, CalculateRiskScore(reordered), "perm=%v", perm)
	}
}

func TestSeverityWeight_Ordering(t *testing.T) {
	assert.Greater(t, SeverityWeight(vulnerability.SeverityCritical), SeverityWeight(vulnerability.SeverityHigh))
	assert.Greater(t, SeverityWeight(vulnerability.SeverityHigh), SeverityWeight(vulnerability.SeverityMedium))
	assert.Greater(t, SeverityWeight(vulnerability.SeverityMedium), SeverityWeight(vulnerability.SeverityLow))
	assert.Zero(t, SeverityWeight(vulnerability.SeverityInfo))
	assert.Zero(t, SeverityWeight(vulnerability.SeverityUnknown))
}

func TestNewAsset(t *testing.T) {
	batch := shared.NewID()

	t.Run("ip host", func(t *testing.T) {
		a, err := NewAsset("10.0.0.12", 3, 21, batch)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.12", a.IPAddress())
		assert.True(t, a.HasIP())
		assert.Empty(t, a.RootDomain())
		assert.Equal(t, 3, a.VulnerabilityCount())
		assert.Equal(t, 21, a.RiskScore())
		assert.Equal(t, batch, a.UploadSessionID())
	})

	t.Run("hostname", func(t *testing.T) {
		a, err := NewAsset("api.example.co.uk", 1, 0, batch)
		require.NoError(t, err)
		assert.False(t, a.HasIP())
		assert.Equal(t, "example.co.uk", a.RootDomain())
	})

	t.Run("empty host", func(t *testing.T) {
		_, err := NewAsset(" ", 1, 0, batch)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := NewAsset("h1", -1, 0, batch)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestIsIPv4(t *testing.T) {
	tests := map[string]bool{
		"192.168.1.1":     true,
		"0.0.0.0":         true,
		"256.1.1.1":       false,
		"10.0.0":          false,
		"example.com":     false,
		"10.0.0.1:8080":   false,
		"::1":             false,
		"1.2.3.4.5":       false,
		"255.255.255.255": true,
	}
	for host, want := range tests {
		t.Run(host, func(t *testing.T) {
			assert.Equal(t, want, IsIPv4(host))
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://API.example.com:8443/login", "api.example.com"},
		{"example.com:80", "example.com"},
		{"Example.COM.", "example.com"},
		{"10.1.1.1", "10.1.1.1"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHost(tt.in), tt.in)
	}
}

func TestReconstitute(t *testing.T) {
	id, batch := shared.NewID(), shared.NewID()
	now := time.Now().UTC()

	a := Reconstitute(id, "h1", "", "", 5, 17, batch, now, now)
	assert.Equal(t, id, a.ID())
	assert.Equal(t, 5, a.VulnerabilityCount())
	assert.Equal(t, 17, a.RiskScore())
}

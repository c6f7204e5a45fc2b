package app

import (
	"github.com/openctemio/scanledger/internal/metrics"
)

// Re-export metrics used by application services.

// SLA metrics
var (
	SLAFindings     = metrics.SLAFindings
	SLASweepsTotal  = metrics.SLASweepsTotal
	SLASweepLastRun = metrics.SLASweepLastRun
)

// Notification metrics
var (
	NotificationsDispatched = metrics.NotificationsDispatched
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated      prometheus.Counter
	UsersDeleted      prometheus.Counter
	BansCreated       prometheus.Counter
	IdentityAccesses  prometheus.Counter
	CooldownRefreshes prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idlink_users_created_total",
			Help: "Total number of linked user accounts created",
		}),
		UsersDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idlink_users_deleted_total",
			Help: "Total number of linked user accounts deleted",
		}),
		BansCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idlink_bans_created_total",
			Help: "Total number of ban records issued",
		}),
		IdentityAccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idlink_identity_accesses_total",
			Help: "Total number of true-identity accesses",
		}),
		CooldownRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idlink_cooldown_refreshes_total",
			Help: "Total number of unlink cooldown refreshes",
		}),
	}
}

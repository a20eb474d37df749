package metrics

import "github.com/prometheus/client_golang/prometheus"

// Server collects request outcomes of the development server.
type Server struct {
	logins  *prometheus.CounterVec
	entries *prometheus.CounterVec
}

func NewServer(reg prometheus.Registerer) *Server {
	s := &Server{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_entries_total",
			Help:      "Create-entry calls by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(s.logins, s.entries)
	}
	return s
}

// Login counts one attempt; result is "ok", "denied" or "limited".
func (s *Server) Login(result string) {
	if s == nil {
		return
	}
	s.logins.WithLabelValues(result).Inc()
}

// Entry counts one create call; result is "created", "duplicate" or "rejected".
func (s *Server) Entry(result string) {
	if s == nil {
		return
	}
	s.entries.WithLabelValues(result).Inc()
}

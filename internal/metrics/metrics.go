package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_reservations_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})

	TradeResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_trade_resolutions_total",
		Help: "Trade resolve attempts by outcome.",
	}, []string{"outcome"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_events_dropped_total",
		Help: "Events dropped because the queue was full.",
	})
)

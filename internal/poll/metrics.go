package poll

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// vote kinds of poll_votes_cast_total.
const (
	voteFirst  = "first"
	voteChange = "change"
	voteRepeat = "repeat"
)

var votesCast = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "poll_votes_cast_total",
		Help: "Number of accepted poll votes, by first vote, changed vote and repeated vote.",
	},
	[]string{"kind"},
)

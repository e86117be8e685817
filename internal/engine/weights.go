package engine

// Weights holds the 19 memory-model parameters.
//
//	w0-w3   initial stability per first-review grade (Again..Easy)
//	w4,w5   initial difficulty: D0(g) = w4 - e^(w5*(g-1)) + 1
//	w6,w7   difficulty delta and mean-reversion strength
//	w8-w10  stability growth after a successful recall
//	w11-w14 stability decay after a lapse
//	w15     hard penalty (< 1)
//	w16     easy bonus (> 1)
//	w17,w18 reserved same-day terms, unused by the daily scheduler
type Weights [19]float64

// DefaultWeights are the stock parameter values, fitted on large public review
// datasets. Per-learner optimization can replace them wholesale.
var DefaultWeights = Weights{
	0.40255, 1.18385, 3.173, 15.69105,
	7.1949, 0.5345,
	1.4604, 0.0046,
	1.54575, 0.1192, 1.01925,
	1.9395, 0.11, 0.29605, 2.2698,
	0.2315,
	2.9898,
	0.51655, 0.6621,
}

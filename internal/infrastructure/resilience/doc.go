/*
Package resilience provides a circuit breaker for graceful degradation.

# Overview

The gateway reissues passthrough traffic against the static upstream.
When that upstream becomes unavailable or slow, the breaker fails those
fetches fast instead of piling up connections behind a dead origin.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Consecutive-failure trip threshold and cooldown period
- Bounded probe budget while half-open
- State change callbacks for monitoring
- Thread-safe operations

# Usage

	breaker := resilience.New("upstream", resilience.Settings{
		TripAfter: 5,
		Cooldown:  15 * time.Second,
		Probes:    3,
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Do(req)
	})

# States

- Closed: Normal operation, requests pass through
- Open: Upstream unavailable, requests fail immediately
- Half-Open: Testing if the upstream recovered, limited requests allowed
*/
package resilience

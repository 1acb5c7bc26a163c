// Package health provides health monitoring for hub components.
//
// Components report their status to a shared Monitor, which aggregates
// them into a single system status served over HTTP alongside metrics.
package health

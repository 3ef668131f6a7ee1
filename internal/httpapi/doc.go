// Package httpapi exposes the scheduler's file states, manual submission and
// Prometheus metrics over HTTP.
package httpapi

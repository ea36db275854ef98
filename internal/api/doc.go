// Package api hosts the HTTP server and REST handlers for articles.
// Routes:
//   - POST /new, PUT /{id}, DELETE /{id}, POST /{id}/publish, GET /published
//     for article commands, each dispatched to the worker pool.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api

// Package api hosts the operator HTTP surface of a running crawl:
//   - GET /healthz and /readyz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/progress for a JSON snapshot of the crawl.
package api

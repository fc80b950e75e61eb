// Package api hosts the HTTP server and REST handlers for submitting
// crawl tasks and reading back graph summaries. Notable routes:
//   - GET /healthz / readyz for liveness/readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /queue-website/ to admit a new crawl task.
//   - GET /graphs/all and GET /graphs/?url=<host> for graph summaries.
package api

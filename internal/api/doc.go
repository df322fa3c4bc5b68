// Package api is the HTTP surface: REST endpoints for comments,
// notifications, and login, the websocket upgrade at /ws, health checks,
// and the Prometheus scrape endpoint. Routing uses Chi with middleware
// applied per route group, so auth endpoints get login rate limiting
// while data endpoints get session authentication.
//
// Every REST response uses the models.APIResponse envelope. Error codes
// map one-to-one onto HTTP statuses: VALIDATION_ERROR (400),
// UNAUTHORIZED (401), FORBIDDEN (403), NOT_FOUND (404), and
// INTERNAL_ERROR (500).
package api

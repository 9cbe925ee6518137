// Package http provides HTTP handlers and middleware for the console booking API.
//
// The router exposes the following endpoints, all exchanging JSON with RFC 3339
// timestamps:
//   - GET /resources, POST /resources, GET/PUT/DELETE /resources/{id}: console catalog.
//     Listing is public while mutations require the admin PIN in `X-Admin-Pin`.
//     Payloads use the `resourceDTO` defined in resource_handler.go.
//   - POST /resources/{id}/enabled: toggles a console. Body: {"enabled": bool}.
//   - GET /resources/{id}/schedule?at=: the theoretical schedule with derived status.
//   - GET /resources/{id}/next-slot?at=: the earliest conflict free start.
//   - GET /reservations?resource_id=, POST /reservations: listing and creation. Creation
//     takes {"resource_id","owner_name","authorization_token","pin","start","end"}.
//   - PUT /reservations/{id}, DELETE /reservations/{id}, POST /reservations/{id}/validate:
//     owner actions authorized by the PIN in `X-Reservation-Pin` (or the admin PIN).
//     A modification answers with the replacement reservation and its new id.
//   - GET /tokens, POST /tokens, DELETE /tokens/{token}: whitelist administration.
//   - GET /healthz and GET /metrics (Prometheus, optionally behind a bearer token).
//
// Errors are reported as {"error_code","message","errors"} with Japanese messages.
// Slot conflicts also carry "next_available_start". Every state changing request is
// rate limited per client address.
package http

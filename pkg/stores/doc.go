// Package stores provides the payload journal: a SQLite database recording
// render passes and the headless payloads each pass dispatched, in order.
// Migrations are embedded and applied with golang-migrate.
package stores

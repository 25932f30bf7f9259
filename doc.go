// Package autoreload reloads pages and tools when the server behind them
// restarts.
//
// A server exposes its restart token at GET /health_check (package health).
// Clients poll it once per second and reload as soon as the token changes:
// browsers through the script in package frontend, Go programs through the
// Poller in package reload. The autoreload command bundles a demo server,
// a poller that runs a command on restart, and a dev loop that restarts an
// application when its files change.
package autoreload

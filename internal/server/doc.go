// Package server exposes the service's HTTP surface: the WebSocket
// media stream endpoint that feeds call sessions, the telephony webhook
// endpoints that return call-control documents and receive call status
// updates, and the monitoring API with Prometheus metrics.
package server

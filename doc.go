/*
Package evloop implements a single-threaded, cooperative, non-blocking I/O
event loop for TCP and UNIX-domain stream sockets.

One process-wide Loop multiplexes many sockets through the best readiness
backend the host offers (kqueue, epoll, or a portable poll fallback), drives
user callbacks for accept, read, write, hangup and error events, and owns the
per-connection write buffer and back-pressure protocol. It is the engine a
higher-level protocol layer (HTTP, WebSocket, a client pipeline) is built on
top of; this package does not parse any wire protocol itself.

TLS certificate handling is a simple on/off toggle (tlsconfig.go), not a full
certificate management layer. Application framing, the byte-buffer container
used for outbound data, configuration file parsing and logging destinations
are all left to the host application.
*/
package evloop

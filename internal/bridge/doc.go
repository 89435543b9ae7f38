// Package bridge exposes one connected receiver over HTTP.
//
// Routes:
//
//	GET  /ws       websocket: every receiver event as a JSON Message;
//	               accepts CommandRequest messages and answers each with
//	               a Message marked "reply"
//	POST /command  CommandRequest in, reply Message out
//	GET  /healthz  Health, 503 while the receiver is not connected
//	GET  /metrics  prometheus, when metrics are enabled
//
// Events are fanned out from a single SubscribeAll handler. Each websocket
// client has a bounded queue; a client that falls behind is disconnected
// rather than stalling the receiver's read loop.
package bridge

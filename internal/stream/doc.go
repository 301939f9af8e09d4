// Package stream maintains the persistent WebSocket connection to the
// dashboard backend's /ws/updates endpoint.
//
// Client is the raw transport: a single gorilla/websocket connection with a
// read loop, write serialization, and a ping/pong liveness check. Manager sits
// above it and owns the connection lifecycle: observable status, the
// post-connect auth handshake, classification of inbound frames into the
// dispatcher, and the capped-backoff reconnect loop. Registry shares one
// Manager per endpoint across subscribers, closing the transport when the last
// subscriber detaches.
package stream

// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the change feed socket.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was missing, invalid or expired.
)

package middleware

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// @title GoADS Secure HTTP/WebSocket Middleware API
// @version 1.0
// @description REST API for interacting with TwinCAT PLCs over Secure ADS
// @description
// @description ## Features
// @description - Device info and state of a TwinCAT target over Secure ADS
// @description - Self-signed certificate, shared-CA, and TLS-PSK authentication
// @description - WebSocket streaming of periodic PLC state snapshots
//
// @contact.name GoADS Secure Middleware
// @contact.url https://github.com/mrpasztoradam/goadssec
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @tag.name device
// @tag.description Device info and state operations
// @tag.name health
// @tag.description Health and info endpoints

// Handler contains HTTP request handlers
type Handler struct {
	middleware *Middleware
	upgrader   *websocket.Upgrader
}

// NewHandler creates a new handler
func NewHandler(middleware *Middleware) *Handler {
	bufSize := middleware.config.Middleware.WebSocketBufferSize
	if bufSize <= 0 {
		bufSize = 1024
	}
	return &Handler{
		middleware: middleware,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  bufSize,
			WriteBufferSize: bufSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS is enforced by the router middleware
			},
		},
	}
}

// HandleHealth handles GET /api/v1/health
// @Summary Health check
// @Description Report middleware health and ADS connection status
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.middleware.GetHealth())
}

// HandleInfo handles GET /api/v1/info
// @Summary Connection info
// @Description Report target addressing, secure mode, and server uptime
// @Tags health
// @Produce json
// @Success 200 {object} InfoResponse
// @Router /info [get]
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.middleware.GetInfo())
}

// HandleDeviceInfo handles GET /api/v1/device
// @Summary Read device info
// @Description Read name and version of the TwinCAT target (ADS ReadDeviceInfo)
// @Tags device
// @Produce json
// @Success 200 {object} DeviceInfoResponse
// @Failure 503 {object} ErrorResponse
// @Router /device [get]
func (h *Handler) HandleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	result := h.middleware.GetDeviceInfo(r.Context())
	if !result.Success {
		WriteError(w, NewPLCConnectionError(result.Error))
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleGetState handles GET /api/v1/state
// @Summary Read PLC state
// @Description Read ADS and device state of the target (ADS ReadState)
// @Tags device
// @Produce json
// @Success 200 {object} StateResponse
// @Failure 503 {object} ErrorResponse
// @Router /state [get]
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	result := h.middleware.GetState(r.Context())
	if !result.Success {
		WriteError(w, NewPLCConnectionError(result.Error))
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleGetVersion handles GET /api/v1/version
// @Summary Library version
// @Description Report the goadssec library version behind this middleware
// @Tags health
// @Produce json
// @Success 200 {object} VersionResponse
// @Router /version [get]
func (h *Handler) HandleGetVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.middleware.GetVersion())
}

// Package api wires up the Gin HTTP router with all handler functions.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"causalkv/internal/controller"
	"causalkv/internal/oplog"
)

// Handler holds the single dependency every route needs: the node's
// replication controller.
type Handler struct {
	ctrl *controller.Controller
}

// NewHandler creates a Handler.
func NewHandler(c *controller.Controller) *Handler {
	return &Handler{ctrl: c}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.POST("/alumnos", h.Create)
	r.PUT("/alumnos/:key", h.Update)
	r.GET("/alumnos", h.List)
	r.GET("/alumnos/:key", h.Get)

	r.POST("/replicate", h.Replicate)

	r.GET("/log", h.Log)
	r.GET("/queue", h.Queue)
}

// errorResponse renders a controller.Error as the structured JSON the
// spec requires — a stable "kind" field alongside the message — mapped
// to the status code that kind implies.
func errorResponse(c *gin.Context, err error) {
	if cerr, ok := err.(*controller.Error); ok {
		status := http.StatusBadRequest
		switch cerr.Kind {
		case controller.KindNotFound:
			status = http.StatusNotFound
		case controller.KindValidation, controller.KindProtocol:
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"kind": string(cerr.Kind), "error": cerr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"kind": "FatalError", "error": err.Error()})
}

// ─── Client-facing handlers ────────────────────────────────────────────────

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Health())
}

// Create handles POST /alumnos.
// Body: {"key": "<string>", ...payload}
func (h *Handler) Create(c *gin.Context) {
	var body struct {
		Key string `json:"key" binding:"required"`
	}
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": string(controller.KindValidation), "error": err.Error()})
		return
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"kind": string(controller.KindValidation), "error": "missing or invalid \"key\""})
		return
	}

	op, err := h.ctrl.Write(oplog.KindCreate, body.Key, json.RawMessage(raw))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": op.Key, "vc": op.VC})
}

// Update handles PUT /alumnos/:key.
// Body: the new opaque payload.
func (h *Handler) Update(c *gin.Context) {
	key := c.Param("key")

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": string(controller.KindValidation), "error": err.Error()})
		return
	}

	op, err := h.ctrl.Write(oplog.KindUpdate, key, json.RawMessage(raw))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": op.Key, "vc": op.VC})
}

// List handles GET /alumnos.
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.List())
}

// Get handles GET /alumnos/:key.
func (h *Handler) Get(c *gin.Context) {
	key := c.Param("key")

	rec, ok := h.ctrl.Read(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"kind": string(controller.KindNotFound), "error": "key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "payload": rec.Payload, "vc_written": rec.VCWritten})
}

// ─── Peer-facing handler ────────────────────────────────────────────────────

// Replicate handles POST /replicate — the peer-to-peer entry point.
// Returns 2xx for any message it consumed (applied or enqueued) and 4xx
// only for a ProtocolError.
func (h *Handler) Replicate(c *gin.Context) {
	var op oplog.Operation
	if err := c.ShouldBindJSON(&op); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": string(controller.KindProtocol), "error": err.Error()})
		return
	}

	deliveredNow, err := h.ctrl.Deliver(op)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": true, "delivered_now": deliveredNow})
}

// ─── Inspection handlers ────────────────────────────────────────────────────

// Log handles GET /log.
func (h *Handler) Log(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.LogSnapshot())
}

// Queue handles GET /queue.
func (h *Handler) Queue(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.QueueSnapshot())
}

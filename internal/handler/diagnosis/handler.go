package diagnosis

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medhist-api/internal/middleware"
	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/realtime"
	"github.com/jwalitptl/medhist-api/internal/service/diagnosis"
	"github.com/jwalitptl/medhist-api/pkg/errors"
	"github.com/jwalitptl/medhist-api/pkg/httputil"
	"github.com/jwalitptl/medhist-api/pkg/validator"
)

const maxClientMessage = 512

// Subscriber opens a live diagnosis feed for one patient
type Subscriber interface {
	Subscribe(ctx context.Context, patientID uuid.UUID) *realtime.Subscription
}

type StreamConfig struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type Handler struct {
	service    diagnosis.DiagnosisService
	subscriber Subscriber
	config     StreamConfig
	upgrader   websocket.Upgrader
}

func NewHandler(service diagnosis.DiagnosisService, subscriber Subscriber, config StreamConfig) *Handler {
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	return &Handler{
		service:    service,
		subscriber: subscriber,
		config:     config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("/:id/diagnoses", h.ListDiagnoses)
		patients.POST("/:id/diagnoses", h.CreateDiagnosis)
		patients.GET("/:id/diagnoses/stream", h.Stream)
		patients.GET("/:id/diagnoses/:diagnosisId", h.GetDiagnosis)
	}
}

func (h *Handler) CreateDiagnosis(c *gin.Context) {
	patientID, ok := patientParam(c)
	if !ok {
		return
	}

	var req model.CreateDiagnosisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, validator.FromBindError(err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), diagnosis.CreateInput{
		PatientID:     patientID,
		DoctorID:      middleware.DoctorID(c),
		DiagnosisName: req.DiagnosisName,
		Description:   req.Description,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, created)
}

func (h *Handler) ListDiagnoses(c *gin.Context) {
	patientID, ok := patientParam(c)
	if !ok {
		return
	}

	diagnoses, err := h.service.ListForPatient(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, diagnoses)
}

func (h *Handler) GetDiagnosis(c *gin.Context) {
	patientID, ok := patientParam(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("diagnosisId"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewValidation("Invalid diagnosis id", "", err))
		return
	}

	d, err := h.service.Get(c.Request.Context(), patientID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

// Stream upgrades to a websocket and writes one frame per diagnosis created
// for the patient while the socket stays open. No earlier records are sent.
func (h *Handler) Stream(c *gin.Context) {
	patientID, ok := patientParam(c)
	if !ok {
		return
	}
	logger := zerolog.Ctx(c.Request.Context()).With().Str("patient_id", patientID.String()).Logger()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// subscribe before the handshake completes so the client sees every
	// record created after its dial returns
	sub := h.subscriber.Subscribe(ctx, patientID)
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, sub, logger)
}

// readPump drains client frames so pongs and close frames are processed
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	pongWait := h.config.PingInterval * 2
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, sub *realtime.Subscription, logger zerolog.Logger) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.writeClose(conn, websocket.CloseNormalClosure, "")
			return

		case d, ok := <-sub.C:
			if !ok {
				// evicted for falling behind; the client refetches and resubscribes
				h.writeClose(conn, websocket.CloseTryAgainLater, "subscription ended")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteJSON(realtime.NewDiagnosisEvent(d)); err != nil {
				logger.Debug().Err(err).Msg("stream write failed")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(h.config.WriteTimeout),
	)
}

func patientParam(c *gin.Context) (uuid.UUID, bool) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewValidation("Invalid patient id", "", err))
		return uuid.Nil, false
	}
	return patientID, true
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

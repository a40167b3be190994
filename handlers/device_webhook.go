package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"sata_school_go/config"
	"sata_school_go/services"
	"sata_school_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// DeviceWebhookHandler ingests scan batches pushed over HTTP by camera
// terminal firmware that cannot hold a WebSocket open. The vendor signs
// each request body with HMAC-SHA256 over a shared secret.
type DeviceWebhookHandler struct {
	Attendance *services.AttendanceService
	Hub        *websocket.Hub
	secret     string
}

func NewDeviceWebhookHandler(attendance *services.AttendanceService, hub *websocket.Hub) *DeviceWebhookHandler {
	secret := config.AppConfig.DeviceWebhookSecret
	if secret == "" {
		logrus.Warn("DEVICE_WEBHOOK_SECRET not set: device webhook disabled")
	}
	return &DeviceWebhookHandler{Attendance: attendance, Hub: hub, secret: secret}
}

type deviceEvent struct {
	EmployeeNo string `json:"employee_no"`
	Timestamp  string `json:"timestamp"`
}

type devicePayload struct {
	SchoolID     uint          `json:"school_id"`
	DeviceSerial string        `json:"device_serial"`
	Events       []deviceEvent `json:"events"`
}

// Handle accepts one signed batch. The device firmware retries the whole
// batch on anything but 200, so events are acknowledged first and
// processed async; the debounce makes retried duplicates harmless.
func (h *DeviceWebhookHandler) Handle(c *fiber.Ctx) error {
	if h.secret == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	signature := c.Get("X-Device-Signature")
	if signature == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !validateSignature(h.secret, c.Body(), signature) {
		logrus.WithField("device", c.Get("X-Device-Serial")).Warn("device webhook signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	body := make([]byte, len(c.Body()))
	copy(body, c.Body())
	go h.process(body)

	return c.SendStatus(fiber.StatusOK)
}

func (h *DeviceWebhookHandler) process(body []byte) {
	var payload devicePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logrus.WithError(err).Warn("device webhook: unreadable payload")
		return
	}
	if payload.SchoolID == 0 || len(payload.Events) == 0 {
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"school_id": payload.SchoolID,
		"device":    payload.DeviceSerial,
	})

	for _, ev := range payload.Events {
		var at time.Time
		if ev.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339, ev.Timestamp)
			if err != nil {
				log.WithField("timestamp", ev.Timestamp).Warn("device webhook: bad event timestamp")
				continue
			}
			at = parsed
		}

		result, err := h.Attendance.RecordScan(payload.SchoolID, ev.EmployeeNo, at)
		if err != nil {
			// Debounce rejections are routine here: firmware often
			// double-fires on a single badge presentation
			log.WithError(err).WithField("employee_no", ev.EmployeeNo).Debug("device webhook: scan rejected")
			continue
		}
		h.Hub.BroadcastToSchool(payload.SchoolID, "scan", result)
	}
}

func validateSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

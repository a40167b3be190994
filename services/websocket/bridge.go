package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"sata_school_go/services"

	fiberws "github.com/gofiber/websocket/v2"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ScanSink is where ingested badge reads go
type ScanSink interface {
	RecordScan(schoolID uint, employeeNo string, at time.Time) (*services.ScanResult, error)
}

// ScanFrame is one inbound hardware event. Timestamp is optional; devices
// without a clock omit it and the server stamps the read.
type ScanFrame struct {
	EmployeeNo string `json:"employee_no"`
	Timestamp  string `json:"timestamp,omitempty"`
}

type scanAck struct {
	OK     bool                 `json:"ok"`
	Error  string               `json:"error,omitempty"`
	Result *services.ScanResult `json:"result,omitempty"`
}

// Bridge turns device frames into attendance records and mirrors the
// results to the school's dashboards and the optional replay webhook.
type Bridge struct {
	Hub        *Hub
	Sink       ScanSink
	WebhookURL string

	httpClient *http.Client
}

func NewBridge(hub *Hub, sink ScanSink, webhookURL string) *Bridge {
	return &Bridge{
		Hub:        hub,
		Sink:       sink,
		WebhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// handleFrame runs one frame through the sink and builds the device ack
func (b *Bridge) handleFrame(schoolID uint, frame ScanFrame) scanAck {
	if frame.EmployeeNo == "" {
		return scanAck{OK: false, Error: "missing employee_no"}
	}

	var at time.Time
	if frame.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, frame.Timestamp)
		if err != nil {
			return scanAck{OK: false, Error: "bad timestamp, want RFC3339"}
		}
		at = parsed
	}

	result, err := b.Sink.RecordScan(schoolID, frame.EmployeeNo, at)
	if err != nil {
		return scanAck{OK: false, Error: scanErrorText(err)}
	}

	b.Hub.BroadcastToSchool(schoolID, "attendance_scan", result)
	if b.WebhookURL != "" {
		go b.replay(schoolID, result)
	}
	return scanAck{OK: true, Result: result}
}

// scanErrorText maps sink errors to the short strings the gate firmware
// shows on its display
func scanErrorText(err error) string {
	var tooSoon *services.TooSoonError
	var dwell *services.MinimumDwellError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "unknown badge"
	case errors.Is(err, services.ErrForbidden):
		return "badge deactivated"
	case errors.As(err, &tooSoon):
		return "scanned too recently"
	case errors.As(err, &dwell):
		return "too early to leave"
	default:
		return "scan failed"
	}
}

// ServeGate handles a gate device connection: each text frame is one scan.
// Blocks until the device disconnects.
func (b *Bridge) ServeGate(c *fiberws.Conn, schoolID uint) {
	defer c.Close()

	c.SetReadLimit(maxMessageSize)
	log := logrus.WithField("school_id", schoolID)
	log.Info("gate device connected")
	defer log.Info("gate device disconnected")

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if fiberws.IsUnexpectedCloseError(err, fiberws.CloseGoingAway, fiberws.CloseAbnormalClosure) {
				log.WithError(err).Warn("gate connection dropped")
			}
			return
		}

		var frame ScanFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.WriteJSON(scanAck{OK: false, Error: "bad frame"})
			continue
		}

		ack := b.handleFrame(schoolID, frame)
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(ack); err != nil {
			return
		}
	}
}

// replay POSTs a recorded scan to the configured webhook target
func (b *Bridge) replay(schoolID uint, result *services.ScanResult) {
	body, err := json.Marshal(map[string]interface{}{
		"school_id": schoolID,
		"scan":      result,
	})
	if err != nil {
		return
	}

	resp, err := b.httpClient.Post(b.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		logrus.WithError(err).Warn("attendance webhook replay failed")
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		logrus.WithField("status", resp.StatusCode).Warn("attendance webhook rejected replay")
	}
}

// DialCameraFeed connects out to a camera vendor's event stream and pipes
// its frames through the bridge. Reconnects with backoff until ctx ends.
// Some installations push events instead; those use the webhook handler.
func (b *Bridge) DialCameraFeed(ctx context.Context, schoolID uint, feedURL string) {
	backoff := time.Second
	log := logrus.WithFields(logrus.Fields{"school_id": schoolID, "feed": feedURL})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, feedURL, nil)
		if err != nil {
			log.WithError(err).Warn("camera feed dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < time.Minute {
				backoff *= 2
			}
			continue
		}

		log.Info("camera feed connected")
		backoff = time.Second
		b.consumeFeed(ctx, schoolID, conn)
	}
}

func (b *Bridge) consumeFeed(ctx context.Context, schoolID uint, conn *websocket.Conn) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var frame ScanFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() == nil {
				logrus.WithError(err).Warn("camera feed read failed")
			}
			return
		}
		ack := b.handleFrame(schoolID, frame)
		if !ack.OK {
			logrus.WithFields(logrus.Fields{
				"school_id":   schoolID,
				"employee_no": frame.EmployeeNo,
				"error":       ack.Error,
			}).Debug("camera frame rejected")
		}
	}
}

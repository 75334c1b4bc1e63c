// Package hue emulates a local Philips Hue bridge so voice assistants can
// discover the bridge's virtual lights and switch or dim them.
package hue

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tv-bridge/internal/application"
	"tv-bridge/internal/domain"
)

const (
	// Hue API error types.
	errTypeInvalidJSON = 2
	errTypeUnavailable = 3
	errTypeInternal    = 901

	defaultPollInterval = 50 * time.Millisecond
	defaultQueueSize    = 16
	maxBodyBytes        = 4096
)

var ErrQueueFull = errors.New("state change queue full")

type Config struct {
	Addr         string
	Serial       string
	Username     string
	PollInterval time.Duration
	QueueSize    int
	RateLimit    int
	RateWindow   time.Duration
}

// stateRequest is the body of PUT /api/:user/lights/:id/state. Absent
// fields leave the light unchanged.
type stateRequest struct {
	On  *bool `json:"on"`
	Bri *int  `json:"bri"`
}

// Server exposes the virtual lights over the Hue REST API and queues every
// state change for the control loop.
type Server struct {
	cfg      Config
	echo     *echo.Echo
	registry *Registry
	changes  chan domain.StateChange
	logger   *slog.Logger

	mu      sync.RWMutex
	handler application.StateHandler
	running bool
}

func NewServer(cfg Config, names domain.DeviceNames, logger *slog.Logger) *Server {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Username == "" {
		cfg.Username = "tvbridge"
	}

	s := &Server{
		cfg:      cfg,
		registry: NewRegistry(cfg.Serial, names.All()),
		changes:  make(chan domain.StateChange, cfg.QueueSize),
		logger:   logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				logger.Warn("hue request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Debug("hue request", attrs...)
			return nil
		},
	}))

	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateWindow)

	e.GET("/description.xml", s.handleDescription)
	e.POST("/api", s.handleRegister)
	e.POST("/api/", s.handleRegister)
	e.GET("/api/:user", s.handleConfig)
	e.GET("/api/:user/lights", s.handleLights)
	e.GET("/api/:user/lights/:id", s.handleLight)
	e.PUT("/api/:user/lights/:id/state", s.handleState, limiter.Middleware)
	e.GET("/health", s.handleHealth)

	s.echo = e
	return s
}

func (s *Server) OnSetState(handler application.StateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Handle waits up to the poll interval for a state change, then delivers
// every queued change to the handler on the caller's goroutine.
func (s *Server) Handle(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case change := <-s.changes:
		s.deliver(change)
	}

	for {
		select {
		case change := <-s.changes:
			s.deliver(change)
		default:
			return nil
		}
	}
}

func (s *Server) deliver(change domain.StateChange) {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()

	if handler == nil {
		s.logger.Warn("no state handler registered, dropping change", "device", change.Device)
		return
	}
	handler(change)
}

// SetState updates the state a light reports without queueing a change.
func (s *Server) SetState(device string, on bool, value uint8) error {
	return s.registry.SetState(device, on, value)
}

// State returns the state a named light currently reports.
func (s *Server) State(device string) (domain.DeviceState, bool) {
	return s.registry.State(device)
}

// Inject feeds a change from another front end through the same path as a
// Hue request. The light keeps its state when the change cannot be queued.
func (s *Server) Inject(change domain.StateChange) error {
	return s.registry.update(change, s.enqueue)
}

func (s *Server) enqueue(change domain.StateChange) error {
	select {
	case s.changes <- change:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	go func() {
		s.logger.Info("hue server starting", "addr", s.cfg.Addr)
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("hue server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.echo.Close(); err != nil {
			return fmt.Errorf("closing hue server: %w", err)
		}
	}

	s.running = false
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleRegister(c echo.Context) error {
	s.logger.Info("assistant registered", "remote_ip", c.RealIP())
	return c.JSON(http.StatusOK, []map[string]any{
		{"success": map[string]string{"username": s.cfg.Username}},
	})
}

func (s *Server) handleConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"lights": s.registry.Lights(),
	})
}

func (s *Server) handleLights(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.Lights())
}

func (s *Server) handleLight(c echo.Context) error {
	id := c.Param("id")
	light, ok := s.registry.Light(id)
	if !ok {
		return c.JSON(http.StatusNotFound, unavailable(id))
	}
	return c.JSON(http.StatusOK, light)
}

func (s *Server) handleState(c echo.Context) error {
	id := c.Param("id")
	address := "/lights/" + id + "/state"

	// Assistants do not always send a JSON content type, so the body is
	// decoded directly rather than through Bind.
	var req stateRequest
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, hueError(errTypeInvalidJSON, address, "body contains invalid json"))
	}

	change, err := s.registry.apply(id, req, s.enqueue)
	switch {
	case errors.Is(err, ErrUnknownDevice):
		return c.JSON(http.StatusNotFound, unavailable(id))
	case errors.Is(err, ErrQueueFull):
		return c.JSON(http.StatusServiceUnavailable, hueError(errTypeInternal, address, "queue full, try again"))
	case err != nil:
		return err
	}

	result := []map[string]any{}
	if req.On != nil {
		result = append(result, success(address+"/on", change.On))
	}
	if req.Bri != nil {
		result = append(result, success(address+"/bri", clampBri(change.Value)))
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleHealth(c echo.Context) error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	status := "ok"
	code := http.StatusOK
	if !running {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status":     status,
		"running":    running,
		"queue_size": len(s.changes),
		"lights":     len(s.registry.IDs()),
	})
}

func (s *Server) handleDescription(c echo.Context) error {
	desc := newDescription(c.Request().Host, s.cfg.Serial)
	out, err := xml.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding description: %w", err)
	}
	return c.Blob(http.StatusOK, echo.MIMETextXMLCharsetUTF8, append([]byte(xml.Header), out...))
}

func success(address string, value any) map[string]any {
	return map[string]any{"success": map[string]any{address: value}}
}

func hueError(typ int, address, description string) []map[string]any {
	return []map[string]any{{
		"error": map[string]any{
			"type":        typ,
			"address":     address,
			"description": description,
		},
	}}
}

func unavailable(id string) []map[string]any {
	address := "/lights/" + id
	return hueError(errTypeUnavailable, address, "resource, "+address+", not available")
}

type description struct {
	XMLName     xml.Name    `xml:"urn:schemas-upnp-org:device-1-0 root"`
	SpecVersion specVersion `xml:"specVersion"`
	URLBase     string      `xml:"URLBase"`
	Device      device      `xml:"device"`
}

type specVersion struct {
	Major int `xml:"major"`
	Minor int `xml:"minor"`
}

type device struct {
	DeviceType       string `xml:"deviceType"`
	FriendlyName     string `xml:"friendlyName"`
	Manufacturer     string `xml:"manufacturer"`
	ManufacturerURL  string `xml:"manufacturerURL"`
	ModelDescription string `xml:"modelDescription"`
	ModelName        string `xml:"modelName"`
	ModelNumber      string `xml:"modelNumber"`
	ModelURL         string `xml:"modelURL"`
	SerialNumber     string `xml:"serialNumber"`
	UDN              string `xml:"UDN"`
	PresentationURL  string `xml:"presentationURL"`
}

func newDescription(host, serial string) description {
	return description{
		SpecVersion: specVersion{Major: 1, Minor: 0},
		URLBase:     "http://" + host + "/",
		Device: device{
			DeviceType:       deviceType,
			FriendlyName:     "Philips hue (" + host + ")",
			Manufacturer:     "Royal Philips Electronics",
			ManufacturerURL:  "http://www.philips.com",
			ModelDescription: "Philips hue Personal Wireless Lighting",
			ModelName:        "Philips hue bridge 2012",
			ModelNumber:      "929000226503",
			ModelURL:         "http://www.meethue.com",
			SerialNumber:     serial,
			UDN:              "uuid:" + bridgeUUID(serial),
			PresentationURL:  "index.html",
		},
	}
}

func bridgeUUID(serial string) string {
	return "2f402f80-da50-11e1-9b23-" + serial
}

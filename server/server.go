package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"MicroDetServer/config"
	iface "MicroDetServer/interface"
	"MicroDetServer/logger"
	"MicroDetServer/monitor"
	"MicroDetServer/pipeline"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server is the HTTP surface around the detection pipeline.
type Server struct {
	cfg  config.Config
	pipe *pipeline.Pipeline

	// last annotated image, kept in memory for GET /api/predict/annotated
	annotatedMu   sync.RWMutex
	lastAnnotated []byte
}

type predictJSONRequest struct {
	Image string `json:"image"`
}

// New builds a server around an initialized pipeline.
func New(cfg config.Config, pipe *pipeline.Pipeline) *Server {
	return &Server{cfg: cfg, pipe: pipe}
}

// Router assembles the gin engine with every API route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/classes", s.handleClasses)
	r.POST("/api/predict", s.handlePredict)
	r.GET("/api/predict/annotated", s.handleAnnotated)
	return r
}

// Run serves the API on the configured port, blocking until the listener
// fails or the process exits.
func (s *Server) Run() error {
	return s.Router().Run(fmt.Sprintf(":%d", s.cfg.HTTPPort))
}

func (s *Server) handleHealth(c *gin.Context) {
	modelLoaded, demoMode := s.pipe.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": modelLoaded,
		"demo_mode":    demoMode,
	})
}

func (s *Server) handleClasses(c *gin.Context) {
	names := s.pipe.Classes()
	classes := make([]gin.H, 0, len(names))
	for id, name := range names {
		classes = append(classes, gin.H{"id": id, "name": name})
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (s *Server) handlePredict(c *gin.Context) {
	monitor.PredictTotal.Inc()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	data, status, err := s.readImage(c)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	result, err := s.pipe.Detect(data)
	if err != nil {
		if errors.Is(err, iface.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Log().Error("pipeline failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.annotatedMu.Lock()
	s.lastAnnotated = result.AnnotatedImage
	s.annotatedMu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"request_id":             result.RequestID,
		"detections":             result.Detections,
		"summary":                result.Summary,
		"annotated_image_base64": base64.StdEncoding.EncodeToString(result.AnnotatedImage),
	})
}

// readImage extracts raw image bytes from either a multipart "image" field
// or a JSON body with a base64 "image" value.
func (s *Server) readImage(c *gin.Context) ([]byte, int, error) {
	if file, err := c.FormFile("image"); err == nil {
		if file.Filename == "" {
			return nil, http.StatusBadRequest, errors.New("no file selected")
		}
		if !allowedFile(file.Filename) {
			return nil, http.StatusBadRequest,
				fmt.Errorf("unsupported file type, allowed: %s", strings.Join(config.AllowedExtensions, ", "))
		}
		f, err := file.Open()
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("failed to read upload: %v", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("failed to read upload: %v", err)
		}
		return data, http.StatusOK, nil
	}

	var req predictJSONRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.Image != "" {
		b64 := req.Image
		// tolerate data URL prefixes such as data:image/jpeg;base64,
		if i := strings.Index(b64, ","); i != -1 && strings.HasPrefix(b64, "data:") {
			b64 = b64[i+1:]
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid base64 image: %v", err)
		}
		return data, http.StatusOK, nil
	}

	return nil, http.StatusBadRequest,
		errors.New("no image provided, send via 'image' file field or base64 JSON")
}

func (s *Server) handleAnnotated(c *gin.Context) {
	s.annotatedMu.RLock()
	data := s.lastAnnotated
	s.annotatedMu.RUnlock()
	if len(data) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no annotated image available, run /api/predict first"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

func allowedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range config.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

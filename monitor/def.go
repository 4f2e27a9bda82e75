package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"MicroDetServer/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	PID      process.Process
	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})
	PredictTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "predict_requests_total",
		Help: "Total number of predict requests processed",
	})
)

var srv *http.Server

func prom(port int) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(memUsage, cpuUsage, PredictTotal)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.S().Errorf("metrics server ListenAndServe error: %v", err)
		}
	}()
}

func CheckProcessInfo() {
	MemInfo, _ := PID.MemoryInfo()
	var MemMB = MemInfo.RSS / 1024 / 1024
	CPUPercent, _ := PID.CPUPercent()
	CPUPercentFloat := math.Round(CPUPercent*100) / 100
	memUsage.Set(float64(MemMB))
	cpuUsage.Set(CPUPercentFloat)
}

func GotPID() {
	pid := os.Getpid()
	i32Pid := int32(pid)
	PID.Pid = i32Pid
}

// StartMon serves /metrics on the given port and samples process memory and
// CPU until ctx is cancelled.
func StartMon(port int, ctx context.Context) {
	PID = process.Process{}
	GotPID()
	// register and assign srv before the sampling loop so shutdown never
	// sees a nil server; only the listener itself runs in the background
	prom(port)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
checkPcs:
	for {
		select {
		case <-ctx.Done():
			break checkPcs
		case <-ticker.C:
			CheckProcessInfo()
		}
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.S().Errorf("metrics server Shutdown error: %v", err)
	}
}

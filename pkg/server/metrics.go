package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metric descriptors for the game server.
type Metrics struct {
	game      *Game
	startTime time.Time

	usersConnected  *prometheus.GaugeVec
	roomsTotal      prometheus.Gauge
	botsTotal       prometheus.Gauge
	commandsTotal   prometheus.Gauge
	scriptRunsTotal prometheus.Gauge
	scriptFaults    prometheus.Gauge
	pendingScripts  prometheus.Gauge
	uptimeSeconds   prometheus.Gauge
	memoryHeapBytes prometheus.Gauge
	goroutines      prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics for the game.
func NewMetrics(game *Game, startTime time.Time) *Metrics {
	m := &Metrics{
		game:      game,
		startTime: startTime,
		usersConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "textspot_users_connected",
			Help: "Number of currently connected users by transport.",
		}, []string{"transport"}),
		roomsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_rooms_total",
			Help: "Total number of rooms in the world.",
		}),
		botsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_bots_total",
			Help: "Total number of bots in the world.",
		}),
		commandsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_commands_processed_total",
			Help: "Total commands processed since server start.",
		}),
		scriptRunsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_scripts_executed_total",
			Help: "Total script invocations since server start.",
		}),
		scriptFaults: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_script_faults_total",
			Help: "Total script invocations ended by a fault.",
		}),
		pendingScripts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_scripts_pending",
			Help: "Scripts currently parked on the wait scheduler.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textspot_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	prometheus.MustRegister(
		m.usersConnected,
		m.roomsTotal,
		m.botsTotal,
		m.commandsTotal,
		m.scriptRunsTotal,
		m.scriptFaults,
		m.pendingScripts,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)

	return m
}

// Update refreshes all gauge metrics from current game state.
func (m *Metrics) Update() {
	tcp, wsCount := 0, 0
	for _, d := range m.game.Conns.AllDescriptors() {
		if d.State != ConnConnected {
			continue
		}
		if d.Transport == TransportWebSocket {
			wsCount++
		} else {
			tcp++
		}
	}
	m.usersConnected.WithLabelValues("tcp").Set(float64(tcp))
	m.usersConnected.WithLabelValues("websocket").Set(float64(wsCount))

	m.roomsTotal.Set(float64(len(m.game.World.RoomIDs())))
	m.botsTotal.Set(float64(len(m.game.World.BotIDs())))

	m.commandsTotal.Set(float64(m.game.CommandCount.Load()))
	m.scriptRunsTotal.Set(float64(m.game.ScriptRuns.Load()))
	m.scriptFaults.Set(float64(m.game.ScriptFaults.Load()))
	m.pendingScripts.Set(float64(m.game.Sched.Len()))

	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		promhttp.Handler().ServeHTTP(w, r)
	})
}

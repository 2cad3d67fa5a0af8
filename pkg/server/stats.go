package server

import "runtime"

// ConnectionStats returns a breakdown of current connections.
func (g *Game) ConnectionStats() map[string]any {
	descs := g.Conns.AllDescriptors()

	total := len(descs)
	tcp := 0
	ws := 0
	loginScreen := 0
	connected := 0
	var bytesSent, bytesRecv, cmdCount int

	for _, d := range descs {
		switch d.Transport {
		case TransportTCP:
			tcp++
		case TransportWebSocket:
			ws++
		}
		switch d.State {
		case ConnLogin:
			loginScreen++
		case ConnConnected:
			connected++
		}
		bytesSent += d.BytesSent
		bytesRecv += d.BytesRecv
		cmdCount += d.CmdCount
	}

	return map[string]any{
		"total":        total,
		"tcp":          tcp,
		"websocket":    ws,
		"login_screen": loginScreen,
		"connected":    connected,
		"bytes_sent":   bytesSent,
		"bytes_recv":   bytesRecv,
		"commands":     cmdCount,
	}
}

// MemoryStats returns Go runtime memory statistics.
func (g *Game) MemoryStats() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]any{
		"heap_alloc_bytes":  m.HeapAlloc,
		"heap_inuse_bytes":  m.HeapInuse,
		"heap_alloc_mb":     float64(m.HeapAlloc) / 1024 / 1024,
		"goroutines":        runtime.NumGoroutine(),
		"gc_cycles":         m.NumGC,
		"gc_pause_total_ns": m.PauseTotalNs,
	}
}

// WorldStats returns world content and script engine stats.
func (g *Game) WorldStats() map[string]any {
	rooms, items, bots := g.World.Dump()
	return map[string]any{
		"rooms":            len(rooms),
		"items":            len(items),
		"bots":             len(bots),
		"triggers":         g.Triggers.Len(),
		"pending_scripts":  g.Sched.Len(),
		"scripts_executed": g.ScriptRuns.Load(),
		"script_faults":    g.ScriptFaults.Load(),
	}
}

package provider

import "expvar"

// connMetrics record connection activity counters.
type connMetrics struct {
	framesRecv     expvar.Int
	framesSent     expvar.Int
	callsIn        expvar.Int // Function requests received
	callsInFailed  expvar.Int // Function requests resulting in a Failure frame
	callsActive    expvar.Int // 0 or 1: whether a Function request is currently running
	pingsIn        expvar.Int // Ping frames received
	cancels        expvar.Int // requests that entered the cancelled state

	emap *expvar.Map
}

func newConnMetrics() *connMetrics {
	cm := &connMetrics{emap: new(expvar.Map)}
	cm.emap.Set("frames_received", &cm.framesRecv)
	cm.emap.Set("frames_sent", &cm.framesSent)
	cm.emap.Set("calls_in", &cm.callsIn)
	cm.emap.Set("calls_in_failed", &cm.callsInFailed)
	cm.emap.Set("calls_active", &cm.callsActive)
	cm.emap.Set("pings_in", &cm.pingsIn)
	cm.emap.Set("cancels", &cm.cancels)
	return cm
}

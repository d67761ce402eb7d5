// Package provider implements the provider side of a calculation
// supervisor's IPC protocol: a single TCP connection carrying a
// length-prefixed binary frame format, a strictly single-in-flight
// Function/Result/Progress/Failure exchange, and a Ping/Pong liveness
// side channel.
//
// # Connections
//
// The core type defined by this package is the [Connection]. Construct one
// with [New], bound to a [registry.Registry] of computations it will serve:
//
//	reg := registry.New()
//	reg.Register(registry.Func1("add", addFunc))
//	conn := provider.New(reg)
//
// Start reads the supervisor's address and this process's identity from the
// environment and runs the connection until it terminates:
//
//	conn, err := provider.Start(reg)
//	if err != nil {
//	    log.Fatalf("start: %v", err)
//	}
//	if err := conn.Wait(); err != nil {
//	    log.Fatalf("connection failed: %v", err)
//	}
//
// Connect and Start separate dialing and registering from running the
// receive loop, for callers that want to customize the transport; most
// applications only need Start.
//
// # Registered methods
//
// Methods are not exchanged on the wire; a Function request names a method
// by a string the supervisor already knows. Use the generic constructors in
// the registry package — Func0, Func1, Func2, and their ProgressFunc- and
// FailureFunc-accepting variants — to adapt an ordinary Go function without
// touching encoded argument bytes directly.
//
// # Progress and failure
//
// A registered computation that declares a capability for progress or
// failure reporting receives the corresponding reporter handle as a
// trailing parameter. Calling the failure reporter cancels the request;
// after that, further progress or result writes for that request are
// silently dropped.
//
// # Metrics
//
// Connections maintain a collection of metrics while running. Use the
// [Connection.Metrics] method to obtain an [expvar.Map] containing the
// metrics exported by the connection, including counts of frames sent and
// received, calls dispatched and failed, and cancellations.
package provider

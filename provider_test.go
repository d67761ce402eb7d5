package provider_test

import (
	"context"
	"errors"
	"expvar"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"

	provider "github.com/thinknode/thinknode-provider-ipc-net"
	"github.com/thinknode/thinknode-provider-ipc-net/channel"
	"github.com/thinknode/thinknode-provider-ipc-net/codec"
	"github.com/thinknode/thinknode-provider-ipc-net/frame"
	"github.com/thinknode/thinknode-provider-ipc-net/registry"
)

type fixture struct {
	sup  channel.Channel
	conn *provider.Connection
}

func newFixture(t *testing.T, descs ...registry.Descriptor) *fixture {
	t.Helper()
	reg := registry.New()
	for _, d := range descs {
		if err := reg.Register(d); err != nil {
			t.Fatalf("Register(%s): %v", d.Name, err)
		}
	}
	sup, prov := channel.Direct()
	conn := provider.New(reg).Start(prov)
	t.Cleanup(func() {
		if err := conn.Stop(); err != nil {
			t.Logf("Stop: %v", err)
		}
	})
	return &fixture{sup: sup, conn: conn}
}

func (f *fixture) send(t *testing.T, action frame.Action, body []byte) {
	t.Helper()
	if err := f.sup.Send(&frame.Frame{Version: frame.Version, Action: action, Body: body}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func (f *fixture) recv(t *testing.T) *frame.Frame {
	t.Helper()
	fr, err := f.sup.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	return fr
}

func encodeArg(t *testing.T, v any) []byte {
	t.Helper()
	enc, err := codec.Encode(v)
	if err != nil {
		t.Fatalf("Encode(%v): %v", v, err)
	}
	return enc
}

func TestFunctionResult(t *testing.T) {
	t.Cleanup(leaktest.Check(t)) // runs after the fixture's Stop

	f := newFixture(t, registry.Func2("add", func(ctx context.Context, a, b int64) (int64, error) {
		return a + b, nil
	}))

	req := provider.FunctionRequest{
		Name: "add",
		Args: [][]byte{encodeArg(t, int64(2)), encodeArg(t, int64(3))},
	}.Encode()
	f.send(t, frame.ActionFunction, req)

	got := f.recv(t)
	if got.Action != frame.ActionResult {
		t.Fatalf("Action: got %v, want Result", got.Action)
	}
	sum, err := codec.Decode[int64](got.Body)
	if err != nil {
		t.Fatalf("Decode result: %v", err)
	}
	if sum != 5 {
		t.Errorf("sum: got %d, want 5", sum)
	}
}

func TestFunctionNotFound(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	f := newFixture(t)
	req := provider.FunctionRequest{Name: "missing"}.Encode()
	f.send(t, frame.ActionFunction, req)

	got := f.recv(t)
	if got.Action != frame.ActionFailure {
		t.Fatalf("Action: got %v, want Failure", got.Action)
	}
	fb, err := provider.DecodeFailureBody(got.Body)
	if err != nil {
		t.Fatalf("DecodeFailureBody: %v", err)
	}
	if fb.Code != "NotFound" {
		t.Errorf("Code: got %q, want NotFound", fb.Code)
	}
}

func TestFunctionArityMismatch(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	f := newFixture(t, registry.Func1("id", func(ctx context.Context, a int64) (int64, error) {
		return a, nil
	}))
	req := provider.FunctionRequest{
		Name: "id",
		Args: [][]byte{encodeArg(t, int64(1)), encodeArg(t, int64(2))},
	}.Encode()
	f.send(t, frame.ActionFunction, req)

	got := f.recv(t)
	fb, err := provider.DecodeFailureBody(got.Body)
	if err != nil {
		t.Fatalf("DecodeFailureBody: %v", err)
	}
	if fb.Code != "ArityMismatch" {
		t.Errorf("Code: got %q, want ArityMismatch", fb.Code)
	}
}

func TestFunctionUserError(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	f := newFixture(t, registry.Func0("boom", func(ctx context.Context) (int64, error) {
		return 0, errors.New("kaboom")
	}))
	f.send(t, frame.ActionFunction, provider.FunctionRequest{Name: "boom"}.Encode())

	got := f.recv(t)
	fb, err := provider.DecodeFailureBody(got.Body)
	if err != nil {
		t.Fatalf("DecodeFailureBody: %v", err)
	}
	if fb.Code != "UserError" || fb.Message != "kaboom" {
		t.Errorf("Failure: got %+v, want {UserError kaboom}", fb)
	}
}

func TestFunctionProgressThenResult(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	f := newFixture(t, registry.Func0P("slow", func(ctx context.Context, progress registry.ProgressFunc) (int64, error) {
		progress(0.5, "halfway")
		return 7, nil
	}))
	f.send(t, frame.ActionFunction, provider.FunctionRequest{Name: "slow"}.Encode())

	prog := f.recv(t)
	if prog.Action != frame.ActionProgress {
		t.Fatalf("Action: got %v, want Progress", prog.Action)
	}
	pb, err := provider.DecodeProgressBody(prog.Body)
	if err != nil {
		t.Fatalf("DecodeProgressBody: %v", err)
	}
	if diff := cmp.Diff(provider.ProgressBody{Fraction: 0.5, Message: "halfway"}, pb); diff != "" {
		t.Errorf("ProgressBody (-want +got):\n%s", diff)
	}

	res := f.recv(t)
	if res.Action != frame.ActionResult {
		t.Fatalf("Action: got %v, want Result", res.Action)
	}
}

func TestFunctionFailureCancelsRequest(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	f := newFixture(t, registry.Func0F("cancellable", func(ctx context.Context, failure registry.FailureFunc) (int64, error) {
		failure("Cancelled", "gave up")
		return 0, errors.New("gave up")
	}))
	f.send(t, frame.ActionFunction, provider.FunctionRequest{Name: "cancellable"}.Encode())

	got := f.recv(t)
	if got.Action != frame.ActionFailure {
		t.Fatalf("Action: got %v, want Failure", got.Action)
	}
	fb, err := provider.DecodeFailureBody(got.Body)
	if err != nil {
		t.Fatalf("DecodeFailureBody: %v", err)
	}
	if fb.Code != "Cancelled" {
		t.Errorf("Code: got %q, want Cancelled", fb.Code)
	}
}

func TestPingPong(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	f := newFixture(t)
	token := make([]byte, provider.PingTokenLen)
	for i := range token {
		token[i] = byte(i)
	}
	f.send(t, frame.ActionPing, token)

	got := f.recv(t)
	if got.Action != frame.ActionPong {
		t.Fatalf("Action: got %v, want Pong", got.Action)
	}
	if diff := cmp.Diff(token, got.Body); diff != "" {
		t.Errorf("Pong body (-want +got):\n%s", diff)
	}
}

func TestPingWrongLength(t *testing.T) {
	defer leaktest.Check(t)()

	f := newFixture(t)
	f.send(t, frame.ActionPing, []byte("short"))

	if err := f.conn.Wait(); err == nil {
		t.Error("Wait: got nil error, want a protocol violation")
	}
}

func TestSecondFunctionWhileRunningIsFatal(t *testing.T) {
	defer leaktest.Check(t)()

	release := make(chan struct{})
	f := newFixture(t, registry.Func0("wait", func(ctx context.Context) (int64, error) {
		<-release
		return 0, nil
	}))

	f.send(t, frame.ActionFunction, provider.FunctionRequest{Name: "wait"}.Encode())
	f.send(t, frame.ActionFunction, provider.FunctionRequest{Name: "wait"}.Encode())

	got := f.recv(t)
	if got.Action != frame.ActionFailure {
		t.Fatalf("Action: got %v, want Failure", got.Action)
	}
	fb, err := provider.DecodeFailureBody(got.Body)
	if err != nil {
		t.Fatalf("DecodeFailureBody: %v", err)
	}
	if fb.Code != "ProtocolViolation" {
		t.Errorf("Code: got %q, want ProtocolViolation", fb.Code)
	}

	// Wait joins the dispatcher worker, so let the computation finish first,
	// and drain any frame it sends before the connection closes.
	go func() {
		for {
			if _, err := f.sup.Recv(); err != nil {
				return
			}
		}
	}()
	close(release)
	if err := f.conn.Wait(); err == nil {
		t.Error("Wait: got nil error, want a protocol violation")
	}
}

func TestInboundResultIsProtocolViolation(t *testing.T) {
	defer leaktest.Check(t)()

	f := newFixture(t)
	f.send(t, frame.ActionResult, nil)

	if err := f.conn.Wait(); err == nil {
		t.Error("Wait: got nil error, want a protocol violation")
	}
}

func TestMetrics(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	f := newFixture(t, registry.Func0("noop", func(ctx context.Context) (int64, error) { return 0, nil }))
	f.send(t, frame.ActionFunction, provider.FunctionRequest{Name: "noop"}.Encode())
	f.recv(t)

	m := f.conn.Metrics()
	get := func(name string) int64 { return m.Get(name).(*expvar.Int).Value() }
	if got := get("calls_in"); got != 1 {
		t.Errorf("calls_in: got %d, want 1", got)
	}
	if got := get("calls_active"); got != 0 {
		t.Errorf("calls_active: got %d, want 0", got)
	}
}

package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"els/protocol"
)

func statusFrame(t *testing.T, s protocol.Status) protocol.Message {
	t.Helper()
	out := protocol.NewScratchOutput()
	require.NoError(t, protocol.NewFramer(out).EncodeFrame(func(o protocol.OutputBuffer) {
		protocol.EncodeStatus(o, s)
	}))
	msg, _, err := protocol.ParseFrame(out.Result())
	require.NoError(t, err)
	return msg
}

func TestHandleUpdatesMetrics(t *testing.T) {
	m := New(nil)
	m.Handle(statusFrame(t, protocol.Status{
		Tick:    10,
		Current: 40,
		Desired: 43,
		Flags:   protocol.StatusEnabled | protocol.StatusLimitPending,
	}))

	metrics := m.Metrics()
	assert.Equal(t, 40.0, testutil.ToFloat64(metrics.Position))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Backlog))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LimitPending))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Fault))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Frames))
}

func TestHandleDropsUnknownMessage(t *testing.T) {
	m := New(nil)
	m.Handle(protocol.Message{Payload: []byte{0x7f}})

	_, ok := m.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Metrics().Frames))
}

func TestObserveReaderAddsDeltas(t *testing.T) {
	m := New(nil)
	m.Metrics().ObserveReader(protocol.ReaderStats{Errors: 2, Gaps: 1})
	m.Metrics().ObserveReader(protocol.ReaderStats{Errors: 5, Gaps: 1})

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Metrics().FrameErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().FrameGaps))
}

func TestStatusEndpoint(t *testing.T) {
	m := New(nil)
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	m.Handle(statusFrame(t, protocol.Status{
		Tick:       5,
		Current:    -2,
		Desired:    1,
		Flags:      protocol.StatusFault,
		LimitState: 5,
	}))

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view StatusView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, int32(3), view.Backlog)
	assert.True(t, view.Fault)
	assert.Equal(t, "feed-hold", view.LimitState)
	assert.Equal(t, "idle", view.PulseState)
}

func TestMetricsAndHealthEndpoints(t *testing.T) {
	m := New(nil)
	m.Handle(statusFrame(t, protocol.Status{Current: 12, Desired: 12}))
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	expected := `
# HELP els_position_steps Believed motor position in steps.
# TYPE els_position_steps gauge
els_position_steps 12
`
	assert.NoError(t, testutil.CollectAndCompare(m.Metrics().Position, strings.NewReader(expected), "els_position_steps"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebsocketStream(t *testing.T) {
	m := New(nil)
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return m.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	m.Handle(statusFrame(t, protocol.Status{Tick: 99, Current: 7, Desired: 9}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var view StatusView
	require.NoError(t, conn.ReadJSON(&view))
	assert.Equal(t, uint32(99), view.Tick)
	assert.Equal(t, int32(2), view.Backlog)
}

package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, zap.NewNop())
	c.Timeout = 2 * time.Second
	return c
}

func TestDoJSON_RetriesServerErrorsWithBackoff(t *testing.T) {
	var calls int32
	var callTimes []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callTimes = append(callTimes, time.Now())
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"ok":true}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	var out Envelope
	err := client.DoJSON(context.Background(), http.MethodGet, "/v2/services/pghostels/slugs", nil, &out, &CallOptions{
		Retryable: []ErrorKind{KindServer},
	})

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	// First retry waits ~1s, second ~2s.
	require.Len(t, callTimes, 3)
	firstGap := callTimes[1].Sub(callTimes[0])
	secondGap := callTimes[2].Sub(callTimes[1])
	assert.InDelta(t, float64(time.Second), float64(firstGap), float64(500*time.Millisecond))
	assert.InDelta(t, float64(2*time.Second), float64(secondGap), float64(time.Second))
}

func TestDoJSON_UnauthorizedNeverRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	var notified ErrorKind
	err := client.DoJSON(context.Background(), http.MethodGet, "/v2/services/appliances/slugs", nil, nil, &CallOptions{
		// Even an explicit override cannot make 401 retryable.
		Retryable: []ErrorKind{KindUnauthorized, KindNetwork},
		OnFailure: func(kind ErrorKind) { notified = kind },
	})

	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, KindUnauthorized, notified)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDoJSON_ValidationFailsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.GetJSON(context.Background(), "/v2/services/spa-salon/slugs", nil)

	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDoJSON_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, KindUnauthorized},
		{"not found", http.StatusNotFound, KindNotFound},
		{"bad request", http.StatusBadRequest, KindValidation},
		{"unprocessable", http.StatusUnprocessableEntity, KindValidation},
		{"internal error", http.StatusInternalServerError, KindServer},
		{"bad gateway", http.StatusBadGateway, KindServer},
		{"teapot", http.StatusTeapot, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := newTestClient(srv.URL)
			client.MaxAttempts = 1
			err := client.GetJSON(context.Background(), "/", nil)

			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))

			var ue *Error
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.status, ue.Status)
			assert.Equal(t, kindMessages[tt.kind], ue.Message)
		})
	}
}

func TestDoJSON_TimeoutClassifiedAndRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	client.Timeout = 50 * time.Millisecond
	client.BackoffBase = 10 * time.Millisecond
	client.MaxAttempts = 2
	err := client.GetJSON(context.Background(), "/", nil)

	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDoJSON_CancellationDuringBackoffIsNotATimeout(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	client.BackoffBase = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	err := client.DoJSON(ctx, http.MethodGet, "/", nil, nil, &CallOptions{
		Retryable: []ErrorKind{KindServer},
	})

	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err), "caller abandonment must not be reported as TIMEOUT")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDoJSON_DeadlineDuringBackoffIsATimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	client.BackoffBase = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := client.DoJSON(ctx, http.MethodGet, "/", nil, nil, &CallOptions{
		Retryable: []ErrorKind{KindServer},
	})

	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestDoJSON_NetworkErrorOnUnreachableHost(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	client.BackoffBase = 10 * time.Millisecond
	err := client.GetJSON(context.Background(), "/", nil)

	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestBackoffCapsAtTenSeconds(t *testing.T) {
	c := NewClient("http://example.invalid", zap.NewNop())
	assert.Equal(t, time.Second, c.backoff(0))
	assert.Equal(t, 2*time.Second, c.backoff(1))
	assert.Equal(t, 4*time.Second, c.backoff(2))
	assert.Equal(t, 8*time.Second, c.backoff(3))
	assert.Equal(t, 10*time.Second, c.backoff(4))
	assert.Equal(t, 10*time.Second, c.backoff(20))
}

func TestEnvelopeDecodeData(t *testing.T) {
	env := &Envelope{Success: true, Data: []byte(`{"homeSlug":"home-appliance-services"}`)}
	var slugs struct {
		Home string `json:"homeSlug"`
	}
	require.NoError(t, env.DecodeData(&slugs))
	assert.Equal(t, "home-appliance-services", slugs.Home)

	empty := &Envelope{Success: false}
	assert.Error(t, empty.DecodeData(&slugs))
}

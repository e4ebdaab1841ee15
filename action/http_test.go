package action

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagrs-dev/dagrs"
)

func TestHTTPActionCapturesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	a := NewHTTPAction(http.MethodGet, srv.URL)
	out, err := a.Run(context.Background(), dagrs.Input{}, dagrs.NewEnv())
	require.NoError(t, err)
	s, ok := dagrs.GetPacket[string](out.Packet)
	require.True(t, ok)
	assert.Equal(t, "pong", s)
}

func TestHTTPActionNonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	a := NewHTTPAction(http.MethodGet, srv.URL)
	_, err := a.Run(context.Background(), dagrs.Input{}, dagrs.NewEnv())
	assert.Error(t, err)
}

func TestHTTPActionSendsPredecessorBody(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewHTTPAction(http.MethodPost, srv.URL)
	_, err := a.Run(context.Background(), dagrs.NewInput(dagrs.NewPacket("hello")), dagrs.NewEnv())
	require.NoError(t, err)
	assert.Equal(t, "hello", gotBody)
}

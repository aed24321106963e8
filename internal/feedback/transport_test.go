package feedback

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResend_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails", r.URL.Path)
		require.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"id":"m1"}`)
	}))
	defer srv.Close()

	r := NewResend("re_key", srv.URL, srv.Client())
	err := r.Send(context.Background(), Mail{From: "a@b.c", To: []string{"d@e.f"}, Subject: "s", Text: "t", HTML: "<p>t</p>"})
	require.NoError(t, err)
	require.Equal(t, "a@b.c", got["from"])
	require.Equal(t, []any{"d@e.f"}, got["to"])
	require.Equal(t, "<p>t</p>", got["html"])
}

func TestResend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"invalid from"}`)
	}))
	defer srv.Close()

	err := NewResend("k", srv.URL, srv.Client()).Send(context.Background(), Mail{})
	require.ErrorContains(t, err, "status 422")
	require.ErrorContains(t, err, "invalid from")
}

func TestWebhook_Notify(t *testing.T) {
	var got Submission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sub := Submission{CreatedAt: fixedNow, Message: "hello", UserAgent: "ua"}
	require.NoError(t, NewWebhook(srv.URL, srv.Client()).Notify(context.Background(), sub))
	require.Equal(t, sub, got)
}

func TestBuildMessage(t *testing.T) {
	m := Mail{From: "blog@example.com", To: []string{"me@example.com"}, Subject: Subject, Text: "plain é", HTML: "<p>rich</p>"}
	raw, err := BuildMessage(m, fixedNow)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	require.Equal(t, "blog@example.com", msg.Header.Get("From"))
	require.Equal(t, Subject, msg.Header.Get("Subject"))
	date, err := msg.Header.Date()
	require.NoError(t, err)
	require.True(t, date.Equal(fixedNow.Truncate(time.Second)))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var bodies []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(p)
		require.NoError(t, err)
		bodies = append(bodies, string(b))
	}
	require.Equal(t, []string{"plain é", "<p>rich</p>"}, bodies)
}

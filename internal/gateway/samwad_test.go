package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamwadSendTextMultipart(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got = map[string]string{
			"phone":   r.FormValue("phone"),
			"token":   r.FormValue("token"),
			"message": r.FormValue("message"),
			"text":    r.FormValue("text"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := &Samwad{SendURL: srv.URL, Token: "tok"}
	require.NoError(t, g.SendText(context.Background(), "919800000000", "hello"))
	assert.Equal(t, map[string]string{"phone": "919800000000", "token": "tok", "message": "hello", "text": "hello"}, got)
}

func TestSamwadSendImageAttachesFile(t *testing.T) {
	var fileBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		fileBody = hdr.Filename + ":" + string(b)
	}))
	defer srv.Close()

	g := &Samwad{SendURL: srv.URL}
	require.NoError(t, g.SendImage(context.Background(), "1", "caption", []byte("png"), "map.png"))
	assert.Equal(t, "map.png:png", fileBody)
}

func TestSamwadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	g := &Samwad{LocationURL: srv.URL}
	err := g.SendLocation(context.Background(), "1", Location{Latitude: 23.18, Longitude: 75.77})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, "upstream down", se.Body)
}

func TestSamwadRequestLocationJSON(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	g := &Samwad{LocationRequestURL: srv.URL, Token: "tok"}
	require.NoError(t, g.RequestLocation(context.Background(), "42", "Please share your location"))
	assert.Equal(t, "42", payload["phone"])
	assert.Equal(t, "tok", payload["token"])
	assert.Equal(t, "Please share your location", payload["body"])
}

func TestSamwadMissingURL(t *testing.T) {
	g := &Samwad{}
	assert.Error(t, g.SendText(context.Background(), "1", "x"))
}

func TestFetchMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	data, name, err := FetchMedia(context.Background(), nil, srv.URL+"/maps/ghat.png?x=1")
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
	assert.Equal(t, "ghat.png", name)

	_, _, err = FetchMedia(context.Background(), nil, srv.URL+"/missing.png")
	assert.Error(t, err)
}

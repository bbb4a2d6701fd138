package adapter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"genstudio/pkg/adapter"
)

func TestFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads bytes and sends the api key", func(t *testing.T) {
		var gotKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.URL.Query().Get("key")
			w.Write([]byte("video-bytes"))
		}))
		defer srv.Close()

		f := adapter.NewFetcher("secret-key")
		data, err := f.Fetch(ctx, srv.URL+"/files/abc:download?alt=media")
		gt.NoError(t, err)
		gt.V(t, string(data)).Equal("video-bytes")
		gt.V(t, gotKey).Equal("secret-key")
	})

	t.Run("non-success status is a download failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		f := adapter.NewFetcher("")
		_, err := f.Fetch(ctx, srv.URL)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, adapter.ErrDownloadFailed))
	})

	t.Run("unreachable server is a download failure", func(t *testing.T) {
		f := adapter.NewFetcher("")
		_, err := f.Fetch(ctx, "http://127.0.0.1:1/missing")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, adapter.ErrDownloadFailed))
	})
}

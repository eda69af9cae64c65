package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFetch_DecodesArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"flight_number": 1, "mission_name": "FalconSat"}, {"flight_number": 2}]`))
	}))
	defer srv.Close()

	f := New(srv.URL, time.Second, zaptest.NewLogger(t))
	got := f.Fetch(context.Background())
	require.Len(t, got, 2)
	require.Equal(t, json.Number("1"), got[0]["flight_number"])
	require.Equal(t, "FalconSat", got[0]["mission_name"])
}

func TestFetch_FailSoft(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"not found": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"flight_number": `))
		},
		"object instead of array": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"launches": []}`))
		},
		"slow": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(`[]`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			f := New(srv.URL, 100*time.Millisecond, zaptest.NewLogger(t))
			got := f.Fetch(context.Background())
			require.NotNil(t, got)
			require.Empty(t, got)

			_, err := f.FetchErr(context.Background())
			require.Error(t, err)
			require.True(t, Error.Has(err))
		})
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	got := New(addr, time.Second, nil).Fetch(context.Background())
	require.Empty(t, got)
}

func TestFetch_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launches.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"flight_number": 9}]`), 0o644))

	got := New("file://"+path, 0, nil).Fetch(context.Background())
	require.Len(t, got, 1)
}

func TestNew_Defaults(t *testing.T) {
	f := New("", 0, nil)
	require.Equal(t, DefaultURL, f.URL())
	require.Equal(t, DefaultTimeout, f.client.Timeout)
}

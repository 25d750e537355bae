package games

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	mycache "github.com/sam80180/stardb-exporter/cache"
	"github.com/stretchr/testify/require"
)

func TestCatalogFetchesOnce(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		require.Equal(t, "/api/gi/achievements", r.URL.Path)
		w.Write([]byte(`[{"id":81000},{"id":81001},{"id":81000}]`))
	}))
	defer srv.Close()
	c, err := mycache.New(mycache.DefaultCacheOptions())
	require.NoError(t, err)
	catalog := NewCatalog(c, WithCatalogBaseURL(srv.URL), WithCatalogTTL(time.Minute))
	gi, _ := Lookup("gi")
	for i := 0; i < 2; i++ {
		ids, err := catalog.AchievementIDs(context.Background(), gi)
		require.NoError(t, err)
		require.Equal(t, []uint32{81000, 81001}, ids)
	} // end for
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
} // end TestCatalogFetchesOnce()

func TestCatalogUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	hsr, _ := Lookup("hsr")
	_, err := NewCatalog(nil, WithCatalogBaseURL(srv.URL)).AchievementIDs(context.Background(), hsr)
	require.ErrorContains(t, err, "failed to fetch achievement catalog")
} // end TestCatalogUnreachable()

func TestCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":7}]`), 0o644))
	hsr, _ := Lookup("hsr")
	ids, err := NewCatalog(nil, WithCatalogFile(path)).AchievementIDs(context.Background(), hsr)
	require.NoError(t, err)
	require.Equal(t, []uint32{7}, ids)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	_, err = NewCatalog(nil, WithCatalogFile(path)).AchievementIDs(context.Background(), hsr)
	require.Error(t, err)
} // end TestCatalogFile()

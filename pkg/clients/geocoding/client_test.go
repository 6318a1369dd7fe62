package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

func TestClientResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "agrimarket-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("q") {
		case "Chennai":
			_, _ = w.Write([]byte(`[{"lat":"13.0827","lon":"80.2707","display_name":"Chennai"}]`))
		case "broken":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"overloaded"}`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL + "/", UserAgent: "agrimarket-test"})

	coords, err := client.Resolve(context.Background(), "Chennai")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Latitude: 13.0827, Longitude: 80.2707}, coords)

	_, err = client.Resolve(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = client.Resolve(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=503")

	_, err = client.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoResult)
}

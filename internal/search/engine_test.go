package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitmon/internal/departure"
	"transitmon/internal/provider"
)

// fakeProvider answers searches from a canned list and counts calls.
type fakeProvider struct {
	stops  []departure.Stop
	places []departure.Stop
	err    error
	calls  int
}

func (f *fakeProvider) ID() string   { return "fake" }
func (f *fakeProvider) Name() string { return "Fake" }
func (f *fakeProvider) FetchDepartures(ctx context.Context, q provider.Query) (*departure.Payload, error) {
	return &departure.Payload{}, nil
}
func (f *fakeProvider) ParseDeparture(raw any, loc *time.Location, now time.Time) (departure.Departure, bool) {
	return departure.Departure{}, false
}
func (f *fakeProvider) Timezone() string                  { return "UTC" }
func (f *fakeProvider) RequiresAPIKey() bool              { return false }
func (f *fakeProvider) Cleanup(ctx context.Context) error { return nil }

func (f *fakeProvider) SearchStops(ctx context.Context, term string) ([]departure.Stop, error) {
	f.calls++
	return f.stops, f.err
}

type placeProvider struct{ *fakeProvider }

func (p placeProvider) SearchPlaces(ctx context.Context, term string) ([]departure.Stop, error) {
	p.calls++
	return p.places, p.err
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestEngine_CachesResults(t *testing.T) {
	fp := &fakeProvider{stops: []departure.Stop{{ID: "1", Name: "Düsseldorf Hbf"}}}
	e := NewEngine(fp, discard())

	got := e.Search(context.Background(), provider.SearchStop, "Düsseldorf")
	require.Len(t, got, 1)

	got = e.Search(context.Background(), provider.SearchStop, "  duesseldorf")
	require.Len(t, got, 1)
	assert.Equal(t, 1, fp.calls)
}

func TestEngine_CachesEmptyResults(t *testing.T) {
	fp := &fakeProvider{}
	e := NewEngine(fp, discard())

	got := e.Search(context.Background(), provider.SearchStop, "nowhere")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	e.Search(context.Background(), provider.SearchStop, "nowhere")
	assert.Equal(t, 1, fp.calls)
}

func TestEngine_ErrorsAreNotCached(t *testing.T) {
	fp := &fakeProvider{err: errors.New("HTTP 503")}
	e := NewEngine(fp, discard())

	got := e.Search(context.Background(), provider.SearchStop, "Essen")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	fp.err = nil
	fp.stops = []departure.Stop{{ID: "e", Name: "Essen Hbf"}}
	got = e.Search(context.Background(), provider.SearchStop, "Essen")
	assert.Len(t, got, 1)
	assert.Equal(t, 2, fp.calls)
}

func TestEngine_CapsResults(t *testing.T) {
	fp := &fakeProvider{}
	for i := 0; i < 15; i++ {
		fp.stops = append(fp.stops, departure.Stop{ID: fmt.Sprint(i), Name: "Stop"})
	}
	got := NewEngine(fp, discard()).Search(context.Background(), provider.SearchStop, "Stop")
	assert.Len(t, got, 10)
	assert.Equal(t, "0", got[0].ID)
}

func TestEngine_BlankTerm(t *testing.T) {
	fp := &fakeProvider{stops: []departure.Stop{{ID: "1"}}}
	got := NewEngine(fp, discard()).Search(context.Background(), provider.SearchStop, "   ")
	assert.Empty(t, got)
	assert.Equal(t, 0, fp.calls)
}

func TestEngine_Locations(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		pp := placeProvider{&fakeProvider{
			stops:  []departure.Stop{{ID: "stop"}},
			places: []departure.Stop{{ID: "place"}},
		}}
		e := NewEngine(pp, discard())

		got := e.Search(context.Background(), provider.SearchLocation, "Köln")
		require.Len(t, got, 1)
		assert.Equal(t, "place", got[0].ID)

		got = e.Search(context.Background(), provider.SearchStop, "Köln")
		require.Len(t, got, 1)
		assert.Equal(t, "stop", got[0].ID)
		assert.Equal(t, 2, pp.calls)
	})

	t.Run("unsupported", func(t *testing.T) {
		fp := &fakeProvider{stops: []departure.Stop{{ID: "stop"}}}
		got := NewEngine(fp, discard()).Search(context.Background(), provider.SearchLocation, "Köln")
		assert.Empty(t, got)
		assert.Equal(t, 0, fp.calls)
	})
}

func TestEngine_SessionsDoNotShareCaches(t *testing.T) {
	fp := &fakeProvider{stops: []departure.Stop{{ID: "1"}}}
	NewEngine(fp, discard()).Search(context.Background(), provider.SearchStop, "Bochum")
	NewEngine(fp, discard()).Search(context.Background(), provider.SearchStop, "Bochum")
	assert.Equal(t, 2, fp.calls)
}

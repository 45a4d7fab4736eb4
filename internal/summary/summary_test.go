package summary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdx-adsb/adsb-analytics/internal/model"
	"github.com/pdx-adsb/adsb-analytics/internal/store"
	"github.com/pdx-adsb/adsb-analytics/pkg/anthropic"
)

type fakeClient struct {
	req  *anthropic.MessageRequest
	text string
	err  error
}

func (f *fakeClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.req = &req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
	}, nil
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestSummarizer_Run(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seen := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)
	_, err := st.InsertObservations(ctx, []model.Observation{
		{Timestamp: seen, Hex: "A6F1B2", Flight: strPtr("DAL123"), AltBaro: intPtr(34000), GroundSpeed: intPtr(451)},
		{Timestamp: seen.Add(time.Minute), Hex: "AB34CD"},
	})
	require.NoError(t, err)
	require.NoError(t, st.UpsertAircraft(ctx, model.Aircraft{
		Hex:          "A6F1B2",
		Registration: strPtr("N301DQ"),
		Type:         strPtr("A321"),
		Operator:     strPtr("Delta Air Lines"),
		Source:       "adsbdb",
	}))

	client := &fakeClient{text: "  Quiet morning dominated by Delta mainline traffic.  "}
	outPath := filepath.Join(t.TempDir(), "summaries", "today.txt")
	s := New(st, client, Options{
		Model:      "claude-haiku-4-5-20251001",
		MaxTokens:  500,
		OutputPath: outPath,
	})
	s.now = func() time.Time { return seen.Add(2 * time.Hour) }

	text, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Quiet morning dominated by Delta mainline traffic.", text)

	require.NotNil(t, client.req)
	assert.Equal(t, "claude-haiku-4-5-20251001", client.req.Model)
	assert.Equal(t, int64(500), client.req.MaxTokens)
	require.NotNil(t, client.req.Temperature)
	assert.Equal(t, 0.5, *client.req.Temperature)
	require.Len(t, client.req.Messages, 1)

	prompt := client.req.Messages[0].Content
	assert.Contains(t, prompt, "aviation analyst")
	assert.Contains(t, prompt, "DAL123 (A6F1B2) at 34000 ft, 451 kt")
	assert.Contains(t, prompt, "[N301DQ A321, Delta Air Lines]")
	assert.Contains(t, prompt, "N/A (AB34CD)")

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "Quiet morning dominated by Delta mainline traffic.\n", string(written))
}

func TestSummarizer_EmptyDay(t *testing.T) {
	st := newTestStore(t)

	client := &fakeClient{text: "Nothing to report."}
	outPath := filepath.Join(t.TempDir(), "today.txt")
	s := New(st, client, Options{Model: "m", MaxTokens: 100, OutputPath: outPath})

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No aircraft data was recorded today.", client.req.Messages[0].Content)
}

func TestSummarizer_RowCap(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	var obs []model.Observation
	for i := 0; i < 10; i++ {
		obs = append(obs, model.Observation{Timestamp: now, Hex: "A0000" + string(rune('0'+i))})
	}
	_, err := st.InsertObservations(ctx, obs)
	require.NoError(t, err)

	client := &fakeClient{text: "ok"}
	s := New(st, client, Options{
		Model:      "m",
		MaxTokens:  100,
		MaxRows:    3,
		OutputPath: filepath.Join(t.TempDir(), "today.txt"),
	})

	_, err = s.Run(ctx)
	require.NoError(t, err)

	prompt := client.req.Messages[0].Content
	assert.Contains(t, prompt, "Log:")
	assert.Equal(t, 3, strings.Count(prompt, "(A0000"))
}

func TestSummarizer_ClientError(t *testing.T) {
	st := newTestStore(t)

	client := &fakeClient{err: errors.New("overloaded")}
	s := New(st, client, Options{Model: "m", MaxTokens: 100, OutputPath: filepath.Join(t.TempDir(), "today.txt")})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate")
}

package sink

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/netpurchase/internal/domain"
)

func flagged() domain.FlaggedPurchase {
	return domain.FlaggedPurchase{
		Purchase: domain.Purchase{
			UserID:       2,
			Amount:       1601.83,
			Timestamp:    time.Date(2017, 6, 13, 11, 33, 2, 0, time.UTC),
			RawAmount:    "1601.83",
			RawTimestamp: "2017-06-13 11:33:02",
		},
		Mean:   29.1,
		StdDev: 14.266,
	}
}

func TestJSONLines_WritesOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf)

	require.NoError(t, s.Write(flagged()))
	require.NoError(t, s.Write(flagged()))
	require.NoError(t, s.Close())

	line := `{"event_type":"purchase","timestamp":"2017-06-13 11:33:02","id":"2","amount":"1601.83","mean":"29.10","sd":"14.27"}` + "\n"
	assert.Equal(t, line+line, buf.String())
	assert.Equal(t, 2, s.Count())
}

func TestJSONLines_FormatsInMemoryPurchases(t *testing.T) {
	fp := flagged()
	fp.Purchase.RawAmount = ""
	fp.Purchase.RawTimestamp = ""

	var buf bytes.Buffer
	s := NewJSONLines(&buf)
	require.NoError(t, s.Write(fp))

	assert.Contains(t, buf.String(), `"timestamp":"2017-06-13 11:33:02"`)
	assert.Contains(t, buf.String(), `"amount":"1601.83"`)
	assert.Contains(t, buf.String(), `"id":"2"`)
}

func TestJSONLines_EchoesIDText(t *testing.T) {
	fp := flagged()
	fp.Purchase.RawID = "002"

	var buf bytes.Buffer
	s := NewJSONLines(&buf)
	require.NoError(t, s.Write(fp))

	assert.Contains(t, buf.String(), `"id":"002"`)
}

func TestCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "flagged_purchases.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	s, err := CreateFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(flagged()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Equal(t, 1, bytes.Count(data, []byte("\n")))
}

type failingSink struct{ err error }

func (f failingSink) Write(domain.FlaggedPurchase) error { return f.err }
func (f failingSink) Close() error { return f.err }

func TestTee(t *testing.T) {
	var a, b Collector
	tee := Tee{&a, &b}
	require.NoError(t, tee.Write(flagged()))
	require.NoError(t, tee.Close())
	assert.Len(t, a.Items, 1)
	assert.Len(t, b.Items, 1)

	boom := errors.New("boom")
	var c Collector
	broken := Tee{failingSink{err: boom}, &c}
	require.ErrorIs(t, broken.Write(flagged()), boom)
	assert.Empty(t, c.Items)
	require.ErrorIs(t, broken.Close(), boom)
}

package feed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `book_name,game_id,matchup,game_date,ml_price1,ml_price2,sp_price1,sp_price2,ou_price1,ou_price2,extra
bovada,g1,BOS @ NYK,2023-10-24,150,-200,-110,,-105,-115,x
pinnacle,g1,BOS @ NYK,2023-10-24 00:00:00,-110,110,NA,NA,-110,-110,y
bovada,g2,LAL @ DEN,2023-10-25,+120,-140,,,,,z
`

func TestReadCSV(t *testing.T) {
	quotes, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), DateRange{})
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	q := quotes[0]
	assert.Equal(t, "bovada", q.BookName)
	assert.Equal(t, "g1", q.GameID)
	assert.Equal(t, "BOS @ NYK", q.Matchup)
	assert.Equal(t, "2023-10-24", q.GameDate)
	require.NotNil(t, q.Moneyline.Price1)
	assert.Equal(t, 150.0, *q.Moneyline.Price1)
	assert.Equal(t, -200.0, *q.Moneyline.Price2)
	assert.NotNil(t, q.Spread.Price1)
	assert.Nil(t, q.Spread.Price2)

	assert.Equal(t, "2023-10-24", quotes[1].GameDate)
	assert.Nil(t, quotes[1].Spread.Price1)
	assert.Equal(t, 120.0, *quotes[2].Moneyline.Price1)
}

func TestReadCSVDateRange(t *testing.T) {
	quotes, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), Day("2023-10-25"))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "g2", quotes[0].GameID)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "read header"},
		{"missing column", "book_name,game_id\nx,y\n", "missing column"},
		{"bad price", strings.Replace(sampleCSV, "150", "abc", 1), "line 2"},
		{"bad date", strings.Replace(sampleCSV, "2023-10-25", "25/10/2023", 1), "game_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), strings.NewReader(tt.input), DateRange{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCSVSourceRereadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	src := NewCSVSource(path)
	quotes, err := src.LoadQuotes(context.Background(), DateRange{})
	require.NoError(t, err)
	assert.Len(t, quotes, 3)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).LoadQuotes(context.Background(), DateRange{})
	assert.Error(t, err)
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{Start: "2023-10-24", End: "2023-10-26"}
	assert.True(t, r.Contains("2023-10-24"))
	assert.True(t, r.Contains("2023-10-26"))
	assert.False(t, r.Contains("2023-10-23"))
	assert.False(t, r.Contains("2023-10-27"))
	assert.True(t, DateRange{}.Contains("1999-01-01"))
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice(" -110 ")
	require.NoError(t, err)
	assert.Equal(t, -110.0, *p)

	for _, blank := range []string{"", "NA", "nan", "NULL", "None"} {
		p, err := ParsePrice(blank)
		require.NoError(t, err)
		assert.Nil(t, p, blank)
	}
}

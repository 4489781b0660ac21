package numbering

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	highest string
	err     error
}

func (s stubSource) HighestNumber(ctx context.Context) (string, error) {
	return s.highest, s.err
}

func TestParse(t *testing.T) {
	n, ok := Parse("INV-1042")
	assert.True(t, ok)
	assert.Equal(t, int64(1042), n)

	for _, bad := range []string{"", "INV-", "INV-abc", "X-1001", "INV--4"} {
		_, ok := Parse(bad)
		assert.False(t, ok, bad)
	}
}

func TestDatabaseSequencer_Next(t *testing.T) {
	ctx := context.Background()
	seq := NewDatabaseSequencer()

	tests := []struct {
		name    string
		highest string
		want    string
	}{
		{"empty ledger starts at first", "", "INV-1001"},
		{"increments highest", "INV-1041", "INV-1042"},
		{"crosses a digit boundary", "INV-9999", "INV-10000"},
		{"low legacy numbers are lifted", "INV-7", "INV-1001"},
		{"unparseable numbers are ignored", "INV-draft", "INV-1001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := seq.Next(ctx, stubSource{highest: tt.highest})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatabaseSequencer_SourceError(t *testing.T) {
	_, err := NewDatabaseSequencer().Next(context.Background(), stubSource{err: errors.New("db down")})
	assert.ErrorContains(t, err, "db down")
}

func TestRedisSequencer_SeedsOnceThenIncrements(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	seq := NewRedisSequencer(client, "test:seq")

	mock.ExpectSetNX("test:seq", int64(1041), 0).SetVal(true)
	mock.ExpectIncr("test:seq").SetVal(1042)
	mock.ExpectIncr("test:seq").SetVal(1043)

	first, err := seq.Next(ctx, stubSource{highest: "INV-1041"})
	require.NoError(t, err)
	assert.Equal(t, "INV-1042", first)

	second, err := seq.Next(ctx, stubSource{highest: "INV-1041"})
	require.NoError(t, err)
	assert.Equal(t, "INV-1043", second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSequencer_IncrError(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	seq := NewRedisSequencer(client, "")

	mock.ExpectSetNX(DefaultRedisKey, int64(1000), 0).SetVal(false)
	mock.ExpectIncr(DefaultRedisKey).SetErr(errors.New("connection refused"))

	_, err := seq.Next(ctx, stubSource{})
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSequencer_ResetAdvancesLaggingCounter(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	seq := NewRedisSequencer(client, "test:seq")

	mock.ExpectGet("test:seq").SetVal("1010")
	mock.ExpectSet("test:seq", int64(1500), 0).SetVal("OK")

	require.NoError(t, seq.Reset(ctx, stubSource{highest: "INV-1500"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

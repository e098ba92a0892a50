package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "calendar day", input: "2026-01-27", want: time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)},
		{name: "leap day", input: "2024-02-29", want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "day first", input: "27-01-2026", wantErr: true},
		{name: "out of range day", input: "2026-01-32", wantErr: true},
		{name: "with time", input: "2026-01-27T10:00:00Z", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "YYYY-MM-DD")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package sensor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Reading
		wantErr bool
	}{
		{
			name: "json status line",
			line: `{"uptime":1.25,"counts":800,"speed":42.5}`,
			want: Reading{Uptime: 1.25, Counts: 800, Speed: 42.5},
		},
		{
			name: "csv status line",
			line: "1.25,800,42.5",
			want: Reading{Uptime: 1.25, Counts: 800, Speed: 42.5},
		},
		{
			name: "csv with spaces and crlf",
			line: " 2.00, 1600, 55.0\r\n",
			want: Reading{Uptime: 2.0, Counts: 1600, Speed: 55.0},
		},
		{
			name: "negative speed on reversal",
			line: "3.5,1590,-4.25",
			want: Reading{Uptime: 3.5, Counts: 1590, Speed: -4.25},
		},
		{name: "empty", line: "", wantErr: true},
		{name: "blank crlf", line: "\r\n", wantErr: true},
		{name: "command echo", line: "OK", wantErr: true},
		{name: "truncated csv", line: "1.25,800", wantErr: true},
		{name: "garbage field", line: "1.25,eight,42.5", wantErr: true},
		{name: "malformed json", line: `{"uptime":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

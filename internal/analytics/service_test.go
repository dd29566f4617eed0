package analytics

import "testing"

func TestResponseRate(t *testing.T) {
	cases := []struct {
		name               string
		outgoing, incoming int
		want               float64
	}{
		{name: "no traffic", outgoing: 0, incoming: 0, want: 0},
		{name: "no incoming", outgoing: 5, incoming: 0, want: 0},
		{name: "half answered", outgoing: 5, incoming: 10, want: 50},
		{name: "fully answered", outgoing: 10, incoming: 10, want: 100},
		{name: "capped over 100", outgoing: 15, incoming: 10, want: 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := responseRate(tc.outgoing, tc.incoming); got != tc.want {
				t.Fatalf("responseRate(%d, %d) = %v, want %v", tc.outgoing, tc.incoming, got, tc.want)
			}
		})
	}
}

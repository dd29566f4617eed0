package gateway

import "testing"

func TestFormatInbound(t *testing.T) {
	cases := map[string]string{
		"whatsapp:+15550001111": "+15550001111",
		"+15550001111":          "+15550001111",
		"15550001111":           "+15550001111",
		"whatsapp:15550001111":  "+15550001111",
		" +15550001111 ":        "+15550001111",
		"":                      "",
	}
	for in, want := range cases {
		if got := FormatInbound(in); got != want {
			t.Fatalf("FormatInbound(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatOutbound(t *testing.T) {
	cases := map[string]string{
		"+15550001111":          "whatsapp:+15550001111",
		"15550001111":           "whatsapp:+15550001111",
		"whatsapp:+15550001111": "whatsapp:+15550001111",
	}
	for in, want := range cases {
		if got := FormatOutbound(in); got != want {
			t.Fatalf("FormatOutbound(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormattingInverses(t *testing.T) {
	addresses := []string{"+15550001111", "whatsapp:+5215512345678", "34600111222"}
	for _, addr := range addresses {
		canonical := FormatInbound(addr)
		// Idempotent canonicalization.
		if FormatInbound(canonical) != canonical {
			t.Fatalf("FormatInbound not idempotent for %q", addr)
		}
		// format_outbound(format_inbound(x)) == format_outbound(x)
		if FormatOutbound(canonical) != FormatOutbound(addr) {
			t.Fatalf("outbound form diverges for %q", addr)
		}
		// Mutual inverses up to the canonical form.
		if FormatInbound(FormatOutbound(canonical)) != canonical {
			t.Fatalf("round trip lost canonical form for %q", addr)
		}
	}
}

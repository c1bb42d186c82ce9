package backend

import "testing"

func TestResolveBaseURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8000":       "http://localhost:8000",
		"http://localhost:8000/":      "http://localhost:8000",
		"https://api.example.com/":    "https://api.example.com",
		"  https://api.example.com  ": "https://api.example.com",
	}
	for input, want := range cases {
		if got := ResolveBaseURL(input); got != want {
			t.Fatalf("ResolveBaseURL(%q) = %q, ожидали %q", input, got, want)
		}
	}
}

func TestResolveWSURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		override string
		want     string
	}{
		{name: "http to ws", base: "http://localhost:8000", want: "ws://localhost:8000/ws"},
		{name: "https to wss", base: "https://api.example.com/", want: "wss://api.example.com/ws"},
		{name: "override wins", base: "http://localhost:8000", override: "ws://other:9000/ws", want: "ws://other:9000/ws"},
		{name: "suffix not duplicated", base: "http://localhost:8000/ws", want: "ws://localhost:8000/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveWSURL(tt.base, tt.override); got != tt.want {
				t.Fatalf("ResolveWSURL(%q, %q) = %q, ожидали %q", tt.base, tt.override, got, tt.want)
			}
		})
	}
}

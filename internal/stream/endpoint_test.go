package stream

import "testing"

func TestDeriveEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "http to ws",
			base: "http://localhost:8000",
			path: "/ws/updates",
			want: "ws://localhost:8000/ws/updates",
		},
		{
			name: "https to wss",
			base: "https://dashboard.example.com",
			path: "/ws/updates",
			want: "wss://dashboard.example.com/ws/updates",
		},
		{
			name: "trailing slash on base",
			base: "https://dashboard.example.com/",
			path: "/ws/updates",
			want: "wss://dashboard.example.com/ws/updates",
		},
		{
			name: "base with path prefix",
			base: "https://example.com/backend",
			path: "/ws/updates",
			want: "wss://example.com/backend/ws/updates",
		},
		{
			name: "already ws",
			base: "ws://localhost:8000",
			path: "/ws/updates",
			want: "ws://localhost:8000/ws/updates",
		},
		{
			name: "port preserved",
			base: "http://127.0.0.1:9000",
			path: "/ws/updates",
			want: "ws://127.0.0.1:9000/ws/updates",
		},
		{
			name:    "unsupported scheme",
			base:    "ftp://example.com",
			path:    "/ws/updates",
			wantErr: true,
		},
		{
			name:    "no host",
			base:    "http://",
			path:    "/ws/updates",
			wantErr: true,
		},
		{
			name:    "unparseable",
			base:    "http://bad url with spaces",
			path:    "/ws/updates",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveEndpoint(tt.base, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DeriveEndpoint(%q, %q) = %q, want error", tt.base, tt.path, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeriveEndpoint(%q, %q) error: %v", tt.base, tt.path, err)
			}
			if got != tt.want {
				t.Errorf("DeriveEndpoint(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}
}

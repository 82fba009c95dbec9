package middleware

import "testing"

// TestNormalizePath проверяет нормализацию путей для лейблов метрик.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/health/live", "/health/live"},
		{"/health/ready", "/health/ready"},
		{"/metrics", "/metrics"},
		{"/api/lookup", "/api/lookup"},
		{"/api/certificates", "/api/certificates"},
		{"/api/certificates/6f1c0e2a", "/api/certificates/{id}"},
		{"/files/6f1c0e2a", "/files/{id}"},
		{"/files/6f1c0e2a/extra", "/files/{id}"},
		{"/", "/static"},
		{"/index.html", "/static"},
		{"/assets/app.js", "/static"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.expected {
			t.Errorf("normalizePath(%q): ожидалось %q, получено %q", tt.path, tt.expected, got)
		}
	}
}

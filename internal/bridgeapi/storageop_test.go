package bridgeapi

import "testing"

func TestParseStorageParams(t *testing.T) {
	req, err := parseStorageParams(map[string]any{
		"path":        "avatars/u1/profile.jpg",
		"contentType": "image/png",
		"sizeBytes":   float64(2048),
	})
	if err != nil {
		t.Fatalf("parseStorageParams() error: %v", err)
	}
	if req.Path != "avatars/u1/profile.jpg" || req.ContentType != "image/png" || req.SizeBytes != 2048 {
		t.Errorf("parseStorageParams() = %+v", req)
	}
}

func TestParseStorageParamsDefaultsToZeroValues(t *testing.T) {
	req, err := parseStorageParams(map[string]any{})
	if err != nil {
		t.Fatalf("parseStorageParams() error: %v", err)
	}
	if req.Path != "" || req.ContentType != "" || req.SizeBytes != 0 {
		t.Errorf("parseStorageParams() = %+v, want zero values", req)
	}
}

func TestParseStorageParamsWrongTypes(t *testing.T) {
	if _, err := parseStorageParams(map[string]any{"path": 123}); err == nil {
		t.Error("expected error for non-string path")
	}
	if _, err := parseStorageParams(map[string]any{"contentType": 123}); err == nil {
		t.Error("expected error for non-string contentType")
	}
	if _, err := parseStorageParams(map[string]any{"sizeBytes": "big"}); err == nil {
		t.Error("expected error for non-numeric sizeBytes")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/brainalyze")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected development mode by default")
	}
	if cfg.UploadDir != "./uploads" {
		t.Errorf("expected default upload dir ./uploads, got %s", cfg.UploadDir)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/brainalyze")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("CLASSIFIER_MODEL_PATH", "/opt/models/class.onnx")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.IsDev() {
		t.Error("expected production mode")
	}
	if cfg.ClassifierPath != "/opt/models/class.onnx" {
		t.Errorf("unexpected classifier path %s", cfg.ClassifierPath)
	}
}

func TestValidate_MissingModelFile(t *testing.T) {
	cfg := &Config{
		Env:            "development",
		ClassifierPath: "/nonexistent/class.onnx",
		SegmenterPath:  "/nonexistent/seg.onnx",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing model weights")
	}
}

func TestValidate_ModelFilesPresent(t *testing.T) {
	dir := t.TempDir()
	classPath := filepath.Join(dir, "class.onnx")
	segPath := filepath.Join(dir, "seg.onnx")
	for _, p := range []string{classPath, segPath} {
		if err := os.WriteFile(p, []byte("stub"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &Config{
		Env:            "development",
		ClassifierPath: classPath,
		SegmenterPath:  segPath,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionRequiresIssuer(t *testing.T) {
	dir := t.TempDir()
	classPath := filepath.Join(dir, "class.onnx")
	segPath := filepath.Join(dir, "seg.onnx")
	for _, p := range []string{classPath, segPath} {
		if err := os.WriteFile(p, []byte("stub"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &Config{
		Env:            "production",
		ClassifierPath: classPath,
		SegmenterPath:  segPath,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when AUTH_ISSUER is unset in production")
	}
}

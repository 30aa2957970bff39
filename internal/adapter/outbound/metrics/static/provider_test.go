package static

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/prompt"
)

func TestProvider_Sample(t *testing.T) {
	p := NewProvider("")
	snap, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(snap.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(snap.Records))
	}
	rec := snap.Records[0]
	if rec.Environment != "Production" || rec.Region != "West US 2" {
		t.Errorf("unexpected labels: %q / %q", rec.Environment, rec.Region)
	}

	wantOrder := []string{
		"API_Management", "Function_Write_DB", "Azure_SQL", "VM_Scale_Set",
		"Service_Bus", "Function_Read_Queue", "Client", "Application_Insights",
	}
	if len(rec.Services) != len(wantOrder) {
		t.Fatalf("expected %d services, got %d", len(wantOrder), len(rec.Services))
	}
	for i, name := range wantOrder {
		if rec.Services[i].Name != name {
			t.Errorf("service %d = %s, want %s", i, rec.Services[i].Name, name)
		}
	}
	if rec.Services[0].Status() != model.HealthStatusWarning {
		t.Errorf("API_Management status = %s, want warning", rec.Services[0].Status())
	}
	if p.Name() != "static:sample" {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestProvider_SampleDigest(t *testing.T) {
	snap, err := NewProvider("").Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	digest := prompt.Digest(snap)
	for _, want := range []string{
		"API_Management - TotalRequests: 10000",
		"Function_Write_DB - InvocationCount: 9000",
		"Client - 5xxErrors: 50",
		"Application_Insights - AlertCount: 5",
	} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
}

func TestProvider_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	body := `[{"timestamp":"2025-03-01T00:00:00Z","environment":"staging","region":"eu-west-1",` +
		`"services":{"payments":{"ErrorRate":4.5,"status":"warning"}}}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	snap, err := NewProvider(path).Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.ServiceCount() != 1 || snap.Records[0].Services[0].Name != "payments" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestProvider_EmptyFileIsNoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	snap, err := NewProvider(path).Get(context.Background())
	if err != nil {
		t.Fatalf("empty file should not be an error: %v", err)
	}
	if !snap.IsEmpty() {
		t.Error("expected empty snapshot")
	}
}

func TestProvider_MissingFile(t *testing.T) {
	_, err := NewProvider(filepath.Join(t.TempDir(), "nope.yaml")).Get(context.Background())
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider("").Get(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

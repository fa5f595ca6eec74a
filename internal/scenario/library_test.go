package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

func sampleDecision(id string, week int) models.Decision {
	return models.Decision{
		ID:            id,
		Title:         "Vendor review",
		Description:   "Pick a model vendor",
		Category:      models.CategoryStrategic,
		WeekAvailable: week,
		Options: []models.DecisionOption{
			{
				ID:                 "single_vendor",
				Text:               "One vendor",
				Cost:               30000,
				TimeWeeks:          2,
				ResourcesRequired:  1,
				MaturityImpact:     models.MaturityDelta{models.Governance: 4},
				ImmediateImpact:    false,
				DelayedImpactWeeks: 2,
			},
		},
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	want := []struct {
		id   string
		week int
	}{
		{"dev_framework_choice", 1},
		{"observability_setup", 5},
		{"data_infrastructure", 8},
		{"security_implementation", 12},
		{"governance_framework", 15},
	}
	if len(d) != len(want) {
		t.Fatalf("got %d defaults", len(d))
	}
	for i, w := range want {
		if d[i].ID != w.id || d[i].WeekAvailable != w.week {
			t.Errorf("defaults[%d] = %s@%d, want %s@%d", i, d[i].ID, d[i].WeekAvailable, w.id, w.week)
		}
		if err := d[i].Validate(); err != nil {
			t.Errorf("%s invalid: %v", d[i].ID, err)
		}
	}

	enterprise, ok := d[0].Option("enterprise_framework")
	if !ok {
		t.Fatal("enterprise_framework missing")
	}
	if enterprise.ImmediateImpact || enterprise.DelayedImpactWeeks != 3 || enterprise.MaturityImpact[models.AgentDevelopment] != 20 {
		t.Errorf("enterprise_framework = %+v", enterprise)
	}
	basic, _ := d[0].Option("opensource_basic")
	if !basic.ImmediateImpact {
		t.Error("opensource_basic should be immediate")
	}
	direct, _ := d[2].Option("direct_access")
	if direct.MaturityImpact[models.Security] != -10 {
		t.Errorf("direct_access security = %d", direct.MaturityImpact[models.Security])
	}
}

// libraries returns one instance of every backend.
func libraries(t *testing.T) map[string]Library {
	t.Helper()
	dir := t.TempDir()
	file, err := NewFileLibrary(filepath.Join(dir, "scenarios.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	db, err := NewSQLiteLibrary(context.Background(), filepath.Join(dir, "scenarios.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]Library{
		BackendMemory: NewMemoryLibrary(),
		BackendFile:   file,
		BackendSQLite: db,
	}
}

func TestLibrary_Backends(t *testing.T) {
	ctx := context.Background()
	for name, lib := range libraries(t) {
		t.Run(name, func(t *testing.T) {
			all, err := lib.All(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 5 {
				t.Fatalf("All() = %d scenarios", len(all))
			}

			wk, err := lib.ForWeek(ctx, 8)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, d := range wk {
				ids = append(ids, d.ID)
			}
			want := []string{"dev_framework_choice", "observability_setup", "data_infrastructure"}
			if !reflect.DeepEqual(ids, want) {
				t.Errorf("ForWeek(8) = %v, want %v", ids, want)
			}

			if wk, _ := lib.ForWeek(ctx, 0); len(wk) != 0 {
				t.Errorf("ForWeek(0) = %d scenarios", len(wk))
			}

			if err := lib.Add(ctx, sampleDecision("vendor_review", 3)); err != nil {
				t.Fatalf("Add: %v", err)
			}
			got, err := lib.Get(ctx, "vendor_review")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !reflect.DeepEqual(*got, sampleDecision("vendor_review", 3)) {
				t.Errorf("Get = %+v", got)
			}

			if err := lib.Add(ctx, sampleDecision("vendor_review", 3)); !errors.Is(err, ErrDuplicate) {
				t.Errorf("duplicate Add = %v", err)
			}
			if _, err := lib.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) = %v", err)
			}

			bad := sampleDecision("bad", 1)
			bad.Category = "marketing"
			var verr *models.ValidationError
			if err := lib.Add(ctx, bad); !errors.As(err, &verr) {
				t.Errorf("invalid Add = %v", err)
			}
		})
	}
}

func TestFileLibrary_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "scenarios.yaml")

	lib, err := NewFileLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should not be written before the first Add")
	}
	if err := lib.Add(ctx, sampleDecision("vendor_review", 3)); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	all, _ := reopened.All(ctx)
	if len(all) != 6 || all[5].ID != "vendor_review" {
		t.Fatalf("reopened library = %d scenarios", len(all))
	}
	opt := all[5].Options[0]
	if opt.ImmediateImpact || opt.DelayedImpactWeeks != 2 {
		t.Errorf("option lost fields: %+v", opt)
	}
}

func TestFileLibrary_SkipsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `
- id: ok
  title: Fine
  category: security
  week_available: 2
  options:
    - id: a
      text: Do it
      cost: 1
      time_weeks: 1
      resources_required: 1
      maturity_impact: {security: 3}
- id: broken
  title: No options
  category: security
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	lib, err := NewFileLibrary(path)
	if err != nil {
		t.Fatal(err)
	}
	all, _ := lib.All(context.Background())
	if len(all) != 1 || all[0].ID != "ok" {
		t.Errorf("All = %+v", all)
	}
	if len(lib.LoadErrors) != 1 || lib.LoadErrors[0].ID != "broken" {
		t.Errorf("LoadErrors = %+v", lib.LoadErrors)
	}
	if !all[0].Options[0].ImmediateImpact {
		t.Error("immediate_impact should default to true")
	}
}

func TestSQLiteLibrary_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scenarios.db")

	lib, err := NewSQLiteLibrary(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.Add(ctx, sampleDecision("vendor_review", 3)); err != nil {
		t.Fatal(err)
	}
	if origin, err := lib.Origin(ctx, "dev_framework_choice"); err != nil || origin != OriginDefault {
		t.Errorf("origin = %q, %v", origin, err)
	}
	if err := lib.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteLibrary(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	all, err := reopened.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 6 {
		t.Errorf("defaults re-seeded or user scenario lost: %d scenarios", len(all))
	}
	if origin, _ := reopened.Origin(ctx, "vendor_review"); origin != OriginUser {
		t.Errorf("origin = %q", origin)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	lib := NewMemoryLibraryWith(nil)

	unnamed := sampleDecision("", 1)
	unnamed.Options[0].ID = ""
	res, err := Import(ctx, lib, []models.Decision{sampleDecision("a", 1), unnamed, sampleDecision("a", 2)})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Added) != 2 || len(res.Skipped) != 1 || res.Skipped[0] != "a" {
		t.Errorf("result = %+v", res)
	}
	if !strings.HasPrefix(res.Added[1], "scenario_") {
		t.Errorf("generated id = %q", res.Added[1])
	}
	got, err := lib.Get(ctx, res.Added[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got.Options[0].ID, "option_") {
		t.Errorf("generated option id = %q", got.Options[0].ID)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{"memory", false},
		{"file", false},
		{"SQLite", false},
		{"postgres", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			lib, err := Open(ctx, tt.backend, DefaultPath(dir, strings.ToLower(tt.backend)))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open(%q) err = %v", tt.backend, err)
			}
			if lib != nil {
				lib.Close()
			}
		})
	}
}

func TestParseYAML_SingleMapping(t *testing.T) {
	data := []byte("id: one\ntitle: One\ncategory: data\noptions: []\n")
	got, err := ParseYAML(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "one" {
		t.Errorf("got %+v", got)
	}
}

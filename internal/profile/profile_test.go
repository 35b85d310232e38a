package profile

import (
	"sync"
	"testing"
)

func TestSetField(t *testing.T) {
	t.Parallel()

	var p Profile
	for _, field := range FieldNames() {
		if err := p.SetField(field, "value for "+field); err != nil {
			t.Errorf("SetField(%q) error = %v", field, err)
		}
	}
	if p.Name == "" || p.Industry == "" || p.Description == "" ||
		p.AIMaturityLevel == "" || p.AIUsage == "" || p.Goals == "" {
		t.Errorf("not every field was assigned: %+v", p)
	}

	if err := p.SetField("budget", "1M"); err == nil {
		t.Error("SetField with unknown field did not error")
	}
}

func TestCacheUpdateFieldPreservesOthers(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	cache.Set("s1", Profile{Name: "Acme", Industry: "Publishing"})

	updated, err := cache.UpdateField("s1", FieldGoals, "automate support")
	if err != nil {
		t.Fatalf("UpdateField() error = %v", err)
	}
	if updated.Name != "Acme" || updated.Industry != "Publishing" {
		t.Errorf("unrelated fields were lost: %+v", updated)
	}
	if updated.Goals != "automate support" {
		t.Errorf("Goals = %q", updated.Goals)
	}

	if got := cache.Get("s1"); got != updated {
		t.Errorf("Get() = %+v, want %+v", got, updated)
	}
}

func TestCacheUnknownSession(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	if got := cache.Get("missing"); got != (Profile{}) {
		t.Errorf("Get(missing) = %+v, want zero profile", got)
	}

	if _, err := cache.UpdateField("fresh", FieldName, "Acme"); err != nil {
		t.Fatalf("UpdateField on fresh session error = %v", err)
	}
	if got := cache.Get("fresh"); got.Name != "Acme" {
		t.Errorf("fresh session name = %q", got.Name)
	}
}

func TestCacheConcurrentUpdates(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	var wg sync.WaitGroup
	for _, field := range FieldNames() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.UpdateField("s1", field, "v"); err != nil {
				t.Errorf("UpdateField(%q) error = %v", field, err)
			}
		}()
	}
	wg.Wait()

	got := cache.Get("s1")
	for _, field := range FieldNames() {
		p := Profile{}
		if err := p.SetField(field, "v"); err != nil {
			t.Fatalf("SetField(%q) error = %v", field, err)
		}
	}
	if got.Name != "v" || got.Industry != "v" || got.Description != "v" ||
		got.AIMaturityLevel != "v" || got.AIUsage != "v" || got.Goals != "v" {
		t.Errorf("concurrent updates lost writes: %+v", got)
	}
}

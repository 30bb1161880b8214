package store

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/voyagen/runtv/internal/models"
)

func TestPublicSources_DropsPasswords(t *testing.T) {
	src := xtreamSource()
	src.Password = "s3cret"

	sources := publicSources([]models.Source{*src})
	if len(sources) != 1 || sources[0].Password != "" || sources[0].Username != "u" {
		t.Fatalf("public = %+v", sources)
	}
	if src.Password != "s3cret" {
		t.Error("publicSources modified its input")
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "s3cret") {
		t.Errorf("cached listing leaks the password: %s", raw)
	}
}

func TestCachedStore_GetSourceByIDSkipsCache(t *testing.T) {
	ctx := context.Background()
	b := setupBolt(t)
	id, err := b.CreateOrGetSource(ctx, xtreamSource())
	if err != nil {
		t.Fatal(err)
	}

	// A nil Redis client panics on use, so this only passes if the read goes
	// straight to the inner store.
	c := NewCachedStore(b, nil)
	src, err := c.GetSourceByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if src.Password != "p" {
		t.Errorf("password = %q, want the stored credential", src.Password)
	}
}

package api

import (
	"context"
	"testing"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{
		"/api/sources",
		"/api/sources/{id}/refresh",
		"/api/sources/{id}/channels",
		"/api/sources/{id}/status",
	} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("missing path %s", path)
		}
	}
	if _, ok := doc.Components.Schemas["IPTVData"]; !ok {
		t.Error("missing IPTVData schema")
	}
}

package core

import (
	"context"
	"reflect"
	"testing"
	"time"

	"expansioncore/pkg/domain"
)

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{" mall ", "", "corner", "mall", "  ", "transit"})
	want := []string{"mall", "corner", "transit"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeTags = %v, want %v", got, want)
	}
	if got := normalizeTags(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestReplaceLocationTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	location := f.location(t, nil, "40 Elm Row")

	updated, err := f.svc.ReplaceLocationTags(ctx, location.ID, []string{"corner", "corner", " parking "}, &location.UpdatedAt, operator)
	if err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	if !reflect.DeepEqual(updated.Tags, []string{"corner", "parking"}) {
		t.Fatalf("unexpected tags %v", updated.Tags)
	}
	if updated.Status != location.Status || !updated.UpdatedAt.After(location.UpdatedAt) {
		t.Fatalf("tag update must keep status and advance the stamp: %+v", updated)
	}

	_, err = f.svc.ReplaceLocationTags(ctx, location.ID, []string{"late"}, &location.UpdatedAt, operator)
	requireKind(t, err, domain.ErrConflict)

	f.walkLocation(t, location.ID, domain.LocationStatusRejected)
	_, err = f.svc.ReplaceLocationTags(ctx, location.ID, []string{"late"}, nil, operator)
	requireKind(t, err, domain.ErrForbidden)
}

func TestReplaceStoreFileTagsDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.storeFile(t, nil)

	if err := f.svc.ReplaceTags(ctx, domain.EntityStoreFile, file.ID, []string{"pilot"}, operator); err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	got, _ := f.store.GetStoreFile(ctx, file.ID)
	if !reflect.DeepEqual(got.Tags, []string{"pilot"}) {
		t.Fatalf("unexpected tags %v", got.Tags)
	}

	err := f.svc.ReplaceTags(ctx, domain.EntityStorePlan, "p1", []string{"x"}, operator)
	requireKind(t, err, domain.ErrBadRequest)

	stale := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.ReplaceStoreFileTags(ctx, file.ID, nil, &stale, operator)
	requireKind(t, err, domain.ErrConflict)
}

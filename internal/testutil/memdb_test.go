package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"interlink/internal/core"
	"interlink/internal/llm"
	"interlink/internal/persistence"
)

func TestMemDBRollbackDiscardsChanges(t *testing.T) {
	db := NewMemDB()
	ctx := context.Background()
	a := db.Published("post", "Post", "", "original text")

	boom := errors.New("boom")
	err := persistence.WithTx(ctx, db, func(tx persistence.Transaction) error {
		blocks := core.CloneBlocks(a.Content)
		blocks[0].Data["text"] = "changed"
		if err := tx.Articles().UpdateContent(ctx, a.ID, blocks, time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if got := db.Article(a.ID).Content[0].Data["text"]; got != "original text" {
		t.Errorf("Rollback should discard update, got %v", got)
	}
	if db.Rollbacks != 1 || db.Commits != 0 {
		t.Errorf("Unexpected tx counters %d/%d", db.Commits, db.Rollbacks)
	}
}

func TestMemDBFailureInjection(t *testing.T) {
	db := NewMemDB()
	boom := errors.New("boom")
	db.Fail(OpCountPublished, boom)
	if _, err := db.Articles().CountPublished(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected injected error, got %v", err)
	}
	db.Fail(OpCountPublished, nil)
	if _, err := db.Articles().CountPublished(context.Background()); err != nil {
		t.Errorf("Cleared failure should not fire: %v", err)
	}
}

func TestMemDBListOrder(t *testing.T) {
	db := NewMemDB()
	db.Published("old", "Old", "c")
	db.Published("new", "New", "c")

	got, _ := db.Articles().ListPublished(context.Background(), persistence.ArticleFilter{})
	if len(got) != 2 || got[0].Slug != "new" {
		t.Errorf("Expected newest first, got %+v", got)
	}
}

func TestMockLLMMatching(t *testing.T) {
	m := NewMockLLM("default").On("score", "scored")
	out, _ := m.GenerateText(context.Background(), "please score these", llm.TextGenerationOptions{})
	if out != "scored" {
		t.Errorf("Expected matched response, got %q", out)
	}
	out, _ = m.GenerateText(context.Background(), "other", llm.TextGenerationOptions{})
	if out != "default" || m.CallCount() != 2 {
		t.Errorf("Expected default response, got %q", out)
	}
}

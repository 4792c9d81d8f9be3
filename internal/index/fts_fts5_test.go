//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notebooks_fts`).Scan(&count); err != nil {
		t.Fatalf("notebooks_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertNotebook(nb("fts.py", "FTS Notebook", "f1", "search"), "Plots a powerful heavy-tailed distribution."); err != nil {
		t.Fatalf("UpsertNotebook: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Filename != "fts.py" {
		t.Errorf("filename = %q", results[0].Filename)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNotebook(nb("gone.py", "Gone", "g"), "vanishing content")
	_ = db.DeleteNotebook("gone.py")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Filename == "gone.py" {
			t.Error("deleted notebook still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNotebook(nb("evo.py", "Old", "1"), "original text")
	_ = db.UpsertNotebook(nb("evo.py", "New", "2"), "replacement text")

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

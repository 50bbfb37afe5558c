package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
)

// TestTodoScenario walks a new account through its first to-dos.
func TestTodoScenario(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	bob := mustRegister(t, fs, "bob", models.RoleUser)

	todos, err := fs.Todos.List(ctx, bob.ID, TodoAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(todos) != 0 {
		t.Fatalf("new account has %d todos", len(todos))
	}

	milk, err := fs.Todos.Create(ctx, bob.ID, "buy milk", "", "")
	if err != nil {
		t.Fatal(err)
	}
	taxes, err := fs.Todos.Create(ctx, bob.ID, "taxes", "", "2025-04-15")
	if err != nil {
		t.Fatal(err)
	}
	if milk.ID != 1 || taxes.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", milk.ID, taxes.ID)
	}
	if err := fs.Todos.Delete(ctx, bob.ID, milk.ID); err != nil {
		t.Fatal(err)
	}
	call, err := fs.Todos.Create(ctx, bob.ID, "call mom", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if call.ID != 3 {
		t.Errorf("id after delete = %d, want 3", call.ID)
	}

	todos, err = fs.Todos.List(ctx, bob.ID, TodoAll)
	if err != nil {
		t.Fatal(err)
	}
	var ids []int
	for _, td := range todos {
		ids = append(ids, td.ID)
	}
	if !slices.Equal(ids, []int{2, 3}) {
		t.Errorf("ids = %v, want [2 3]", ids)
	}

	done, err := fs.Todos.SetCompleted(ctx, bob.ID, taxes.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Errorf("SetCompleted = %+v", done)
	}
	open, err := fs.Todos.List(ctx, bob.ID, TodoOpen)
	if err != nil || len(open) != 1 || open[0].ID != 3 {
		t.Errorf("open todos = %v, %v", open, err)
	}
	if n, _ := fs.Todos.CountOpen(ctx, bob.ID); n != 1 {
		t.Errorf("CountOpen = %d", n)
	}
	reopened, err := fs.Todos.SetCompleted(ctx, bob.ID, taxes.ID, false)
	if err != nil || reopened.CompletedAt != nil {
		t.Errorf("reopen = %+v, %v", reopened, err)
	}

	if _, err := fs.Todos.Create(ctx, bob.ID, "bad", "", "15/04/2025"); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid due date = %v", err)
	}
	if _, err := fs.Todos.Create(ctx, bob.ID, "  ", "", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty title = %v", err)
	}
	if _, err := fs.Todos.List(ctx, bob.ID, "later"); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid status = %v", err)
	}
	if _, err := fs.Todos.SetCompleted(ctx, bob.ID, 42, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing todo = %v", err)
	}
	if err := fs.Todos.Delete(ctx, bob.ID, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing todo = %v", err)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	alice := mustRegister(t, fs, "alice", models.RoleUser)
	bob := mustRegister(t, fs, "bob", models.RoleUser)

	note, err := fs.Notes.Create(ctx, alice.ID, "private", "alice only", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Notes.Get(ctx, bob.ID, note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob reads alice's note: %v", err)
	}
	if _, err := fs.Notes.Update(ctx, bob.ID, note.ID, "hijack", "", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob updates alice's note: %v", err)
	}
	if err := fs.Notes.Delete(ctx, bob.ID, note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob deletes alice's note: %v", err)
	}
	got, err := fs.Notes.Get(ctx, alice.ID, note.ID)
	if err != nil || got.Title != "private" {
		t.Errorf("alice's note changed: %+v, %v", got, err)
	}
	if _, err := fs.Notes.List(ctx, 0, "", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("List for id 0 = %v", err)
	}
}

func TestNotes(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)

	a, err := fs.Notes.Create(ctx, u.ID, "Groceries", "- milk", []string{" food ", "home", "food", ""})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(a.Tags, []string{"food", "home"}) {
		t.Errorf("tags = %q", a.Tags)
	}
	b, err := fs.Notes.Create(ctx, u.ID, "Ideas", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.Tags == nil {
		t.Error("tags must serialize as []")
	}
	if _, err := fs.Notes.Update(ctx, u.ID, a.ID, "Groceries", "- milk\n- eggs", []string{"food"}); err != nil {
		t.Fatal(err)
	}
	list, err := fs.Notes.List(ctx, u.ID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != a.ID {
		t.Errorf("most recently updated note must come first: %v", list)
	}
	food, err := fs.Notes.List(ctx, u.ID, "food", "")
	if err != nil || len(food) != 1 || food[0].ID != a.ID {
		t.Errorf("tag filter = %v, %v", food, err)
	}
	if _, err := fs.Notes.Create(ctx, u.ID, "", "x", nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty title = %v", err)
	}
}

func TestNoteSearchAndTags(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)

	groceries, err := fs.Notes.Create(ctx, u.ID, "Groceries", "- Milk\n- eggs", []string{"food", "home"})
	if err != nil {
		t.Fatal(err)
	}
	recipe, err := fs.Notes.Create(ctx, u.ID, "Pancakes", "flour, MILK, eggs", []string{"food"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Notes.Create(ctx, u.ID, "Ideas", "", []string{"work"}); err != nil {
		t.Fatal(err)
	}

	ids := func(rows []*models.Note) []int {
		out := make([]int, 0, len(rows))
		for _, n := range rows {
			out = append(out, n.ID)
		}
		slices.Sort(out)
		return out
	}
	milk, err := fs.Notes.List(ctx, u.ID, "", "milk")
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(milk); !slices.Equal(got, []int{groceries.ID, recipe.ID}) {
		t.Errorf("content search = %v", got)
	}
	byTitle, err := fs.Notes.List(ctx, u.ID, "", " pAnCaKe ")
	if err != nil || len(byTitle) != 1 || byTitle[0].ID != recipe.ID {
		t.Errorf("title search = %v, %v", byTitle, err)
	}
	both, err := fs.Notes.List(ctx, u.ID, "home", "milk")
	if err != nil || len(both) != 1 || both[0].ID != groceries.ID {
		t.Errorf("tag and search = %v, %v", both, err)
	}
	none, err := fs.Notes.List(ctx, u.ID, "", "nothing like this")
	if err != nil || len(none) != 0 {
		t.Errorf("no match = %v, %v", none, err)
	}

	tags, err := fs.Notes.Tags(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []TagCount{{"food", 2}, {"home", 1}, {"work", 1}}
	if !slices.Equal(tags, want) {
		t.Errorf("Tags = %v, want %v", tags, want)
	}
	other := mustRegister(t, fs, "bob", models.RoleUser)
	if tags, err := fs.Notes.Tags(ctx, other.ID); err != nil || tags == nil || len(tags) != 0 {
		t.Errorf("Tags of a new account = %#v, %v", tags, err)
	}
}

func TestBookmarkSearchAndCategories(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)

	goDev, err := fs.Bookmarks.Create(ctx, u.ID, &models.Bookmark{URL: "https://go.dev/", Title: "Go", Category: "dev"})
	if err != nil {
		t.Fatal(err)
	}
	news, err := fs.Bookmarks.Create(ctx, u.ID, &models.Bookmark{URL: "https://news.example.com/", Title: "Daily", Description: "Morning NEWS digest", Category: "news"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Bookmarks.Create(ctx, u.ID, &models.Bookmark{URL: "https://pkg.go.dev/", Title: "Packages", Category: "dev"}); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Bookmarks.Create(ctx, u.ID, &models.Bookmark{URL: "https://example.org/", Title: "Misc"}); err != nil {
		t.Fatal(err)
	}

	byURL, err := fs.Bookmarks.List(ctx, u.ID, "", "GO.DEV")
	if err != nil || len(byURL) != 2 {
		t.Errorf("url search = %v, %v", byURL, err)
	}
	byDesc, err := fs.Bookmarks.List(ctx, u.ID, "", "digest")
	if err != nil || len(byDesc) != 1 || byDesc[0].ID != news.ID {
		t.Errorf("description search = %v, %v", byDesc, err)
	}
	devGo, err := fs.Bookmarks.List(ctx, u.ID, "dev", "go")
	if err != nil || len(devGo) != 2 || devGo[1].ID != goDev.ID {
		t.Errorf("category and search = %v, %v", devGo, err)
	}

	cats, err := fs.Bookmarks.Categories(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(cats, []string{"dev", "news"}) {
		t.Errorf("Categories = %q", cats)
	}
}

type fakePages struct {
	title string
	icon  []byte
}

func (f fakePages) Title(context.Context, string) (string, error) {
	if f.title == "" {
		return "", errors.New("no title")
	}
	return f.title, nil
}

func (f fakePages) Icon(context.Context, string) ([]byte, string, error) {
	if f.icon == nil {
		return nil, "", errors.New("no icon")
	}
	return f.icon, "ico", nil
}

func TestBookmarks(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)

	// No fetcher: the host name is the title.
	b, err := fs.Bookmarks.Create(ctx, u.ID, &models.Bookmark{URL: "https://go.dev/doc/", Category: "dev"})
	if err != nil {
		t.Fatal(err)
	}
	if b.Title != "go.dev" {
		t.Errorf("fallback title = %q", b.Title)
	}

	svc := NewBookmarkService(fs.Store, fs.Layout, fakePages{title: "Example", icon: []byte{0, 0, 1, 0}})
	c, err := svc.Create(ctx, u.ID, &models.Bookmark{URL: "http://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Title != "Example" {
		t.Errorf("fetched title = %q", c.Title)
	}
	if c.Favicon != "favicon_2.ico" {
		t.Errorf("favicon = %q", c.Favicon)
	}
	dir, _ := fs.Uploads.Dir(u.ID)
	if _, err := os.Stat(filepath.Join(dir, c.Favicon)); err != nil {
		t.Errorf("icon not saved: %v", err)
	}

	list, err := svc.List(ctx, u.ID, "", "")
	if err != nil || len(list) != 2 || list[0].ID != c.ID {
		t.Errorf("List = %v, %v", list, err)
	}
	dev, err := svc.List(ctx, u.ID, "DEV", "")
	if err != nil || len(dev) != 1 || dev[0].ID != b.ID {
		t.Errorf("category filter = %v, %v", dev, err)
	}

	if err := svc.Delete(ctx, u.ID, c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, c.Favicon)); !os.IsNotExist(err) {
		t.Errorf("icon not removed: %v", err)
	}

	for _, bad := range []string{"", "ftp://example.com", "not a url", "https://"} {
		if _, err := svc.Create(ctx, u.ID, &models.Bookmark{URL: bad}); !errors.Is(err, ErrInvalid) {
			t.Errorf("Create(%q) = %v, want ErrInvalid", bad, err)
		}
	}
	upd, err := svc.Update(ctx, u.ID, b.ID, &models.Bookmark{URL: "https://go.dev/blog/", Title: "Go Blog"})
	if err != nil || upd.Title != "Go Blog" || upd.Category != "" {
		t.Errorf("Update = %+v, %v", upd, err)
	}
}

func TestExpenses(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)

	for _, tx := range []*models.Transaction{
		{Type: models.Income, Amount: 1000, Category: "Salary", Date: "2025-01-01"},
		{Type: models.Expense, Amount: 12.35, Category: "Food", Date: "2025-01-03"},
		{Type: models.Expense, Amount: 300, Category: "Rent", Date: "2025-01-05"},
		{Type: models.Expense, Amount: 20, Category: "", Date: "2025-01-07"},
		{Type: models.Expense, Amount: 7.5, Category: "Food", Date: "2025-01-09"},
		{Type: models.Expense, Amount: 99, Category: "Rent", Date: "2025-02-01"},
	} {
		if _, err := fs.Expenses.Create(ctx, u.ID, tx); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	sum, err := fs.Expenses.Summary(ctx, u.ID, "2025-01")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Income != 1000 || sum.Expenses != 339.85 || sum.Balance != 660.15 {
		t.Errorf("summary = %+v", sum)
	}
	want := []models.CategoryTotal{{Category: "Rent", Total: 300}, {Category: Uncategorized, Total: 20}, {Category: "Food", Total: 19.85}}
	if !slices.Equal(sum.ExpenseCategories, want) {
		t.Errorf("expense categories = %v, want %v", sum.ExpenseCategories, want)
	}
	if len(sum.IncomeCategories) != 1 || sum.IncomeCategories[0].Category != "Salary" {
		t.Errorf("income categories = %v", sum.IncomeCategories)
	}

	list, err := fs.Expenses.List(ctx, u.ID, "")
	if err != nil || len(list) != 6 || list[0].Date != "2025-02-01" {
		t.Errorf("List = %v, %v", list, err)
	}

	for _, bad := range []*models.Transaction{
		{Type: "gift", Amount: 1},
		{Type: models.Expense, Amount: -1},
		{Type: models.Expense, Amount: 1, Date: "yesterday"},
	} {
		if _, err := fs.Expenses.Create(ctx, u.ID, bad); !errors.Is(err, ErrInvalid) {
			t.Errorf("Create(%+v) = %v, want ErrInvalid", bad, err)
		}
	}
	if _, err := fs.Expenses.Summary(ctx, u.ID, "2025-13"); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid month = %v", err)
	}
	tx, err := fs.Expenses.Create(ctx, u.ID, &models.Transaction{Type: models.Income, Amount: 5})
	if err != nil || tx.Date == "" {
		t.Errorf("default date = %+v, %v", tx, err)
	}
}

func TestSettings(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)

	st, err := fs.Settings.Get(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *st != models.DefaultSettings() {
		t.Errorf("defaults = %+v", st)
	}
	st, err = fs.Settings.Update(ctx, u.ID, func(s *models.Settings) error {
		s.Theme = models.ThemeDark
		s.Privacy.ShowEmail = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if st.UpdatedAt == nil || st.Language != models.LanguageEnglish || !st.Privacy.Newsletter {
		t.Errorf("after update = %+v", st)
	}

	// A partial document keeps the defaults for missing fields.
	p, _ := fs.Layout.PathFor(u.ID, KindSettings)
	if err := fs.Store.Write(ctx, p, map[string]any{"theme": "dark"}); err != nil {
		t.Fatal(err)
	}
	st, err = fs.Settings.Get(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.Theme != models.ThemeDark || st.Language != models.LanguageEnglish || !st.Privacy.Newsletter {
		t.Errorf("merged = %+v", st)
	}

	_, err = fs.Settings.Update(ctx, u.ID, func(s *models.Settings) error {
		s.Language = "fr"
		return nil
	})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid language = %v", err)
	}
}

func TestCorruptDocumentIsAnError(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)
	p, _ := fs.Layout.PathFor(u.ID, KindNotes)
	abs, _ := fs.Store.Abs(p)
	if err := os.WriteFile(abs, []byte(`[{"id": 1, "title": `), 0o644); err != nil {
		t.Fatal(err)
	}
	var decodeErr *jsondb.DecodeError
	if _, err := fs.Notes.List(ctx, u.ID, "", ""); !errors.As(err, &decodeErr) {
		t.Errorf("List = %v, want *jsondb.DecodeError", err)
	}
	if _, err := fs.Notes.Create(ctx, u.ID, "x", "", nil); !errors.As(err, &decodeErr) {
		t.Errorf("Create over a corrupt document = %v", err)
	}
}

func TestConcurrentNoteCreation(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)
	const n = 25
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			if _, err := fs.Notes.Create(ctx, u.ID, "note", "", nil); err != nil {
				t.Errorf("Create failed: %v", err)
			}
		})
	}
	wg.Wait()
	notes, err := fs.Notes.List(ctx, u.ID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int]bool{}
	for _, note := range notes {
		seen[note.ID] = true
	}
	if len(notes) != n || len(seen) != n {
		t.Errorf("%d notes with %d distinct ids, want %d", len(notes), len(seen), n)
	}
}

func TestDashboard(t *testing.T) {
	ctx := t.Context()
	fs := newTestFileStore(t)
	u := mustRegister(t, fs, "alice", models.RoleUser)

	d, err := fs.Dashboard(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Notes != 0 || d.OpenTodos != 0 || d.RecentActivity == nil || len(d.RecentActivity) != 0 {
		t.Errorf("empty Dashboard = %+v", d)
	}

	if _, err := fs.Notes.Create(ctx, u.ID, "first", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Todos.Create(ctx, u.ID, "open", "", ""); err != nil {
		t.Fatal(err)
	}
	for i := range 5 {
		td, err := fs.Todos.Create(ctx, u.ID, fmt.Sprintf("task %d", i), "", "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fs.Todos.SetCompleted(ctx, u.ID, td.ID, true); err != nil {
			t.Fatal(err)
		}
	}
	last, err := fs.Notes.Create(ctx, u.ID, "latest", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	d, err = fs.Dashboard(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Notes != 2 || d.OpenTodos != 1 || d.Bookmarks != 0 || d.Uploads != 0 {
		t.Errorf("Dashboard = %+v", d)
	}
	if len(d.RecentActivity) != 5 {
		t.Fatalf("%d activities, want 5", len(d.RecentActivity))
	}
	if a := d.RecentActivity[0]; a.Type != ActivityNote || a.ID != last.ID || a.Title != "latest" {
		t.Errorf("newest activity = %+v", a)
	}
	for i, a := range d.RecentActivity {
		if i > 0 && a.Time.After(d.RecentActivity[i-1].Time) {
			t.Errorf("activity %d is newer than the previous one", i)
		}
		if a.Title == "open" || a.Title == "first" {
			t.Errorf("unexpected activity %+v", a)
		}
	}
}

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apierrors "github.com/maruel/myaccount/internal/errors"
	"github.com/maruel/myaccount/internal/jsondb"
	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/server/reqctx"
	"github.com/maruel/myaccount/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

func newTestServices(t *testing.T) *Services {
	t.Helper()
	fs, err := storage.NewFileStore(t.TempDir(), storage.Options{Hasher: storage.BcryptHasher{Cost: bcrypt.MinCost}})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return &Services{
		Store:  fs,
		Tokens: NewTokens([]byte("0123456789abcdef0123456789abcdef"), time.Hour),
	}
}

func mustAccount(t *testing.T, svc *Services, username string, role models.Role) *models.Account {
	t.Helper()
	a, err := svc.Store.Register(t.Context(), username, username+"@example.com", "password123", role)
	if err != nil {
		t.Fatalf("Register(%q) failed: %v", username, err)
	}
	return a
}

func statusOf(err error) int {
	err = apierrors.FromStorage(err)
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode()
	}
	return 0
}

func TestAuthHandler(t *testing.T) {
	svc := newTestServices(t)
	ctx := t.Context()
	h := NewAuthHandler(svc, &Config{AllowRegistration: true})

	resp, err := h.Register(ctx, &dto.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.Token == "" || resp.Account.Username != "alice" || resp.Account.Role != models.RoleUser {
		t.Errorf("Register = %+v", resp)
	}
	id, err := svc.Tokens.Parse(resp.Token)
	if err != nil || id != resp.Account.ID {
		t.Errorf("Parse = %d, %v", id, err)
	}

	_, err = h.Register(ctx, &dto.RegisterRequest{Username: "alice", Email: "other@example.com", Password: "password123"})
	if got := statusOf(err); got != http.StatusConflict {
		t.Errorf("duplicate register status = %d (%v)", got, err)
	}
	_, err = h.Register(ctx, &dto.RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "lettersonly"})
	if got := statusOf(err); got != http.StatusBadRequest {
		t.Errorf("weak password status = %d (%v)", got, err)
	}

	if _, err := h.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "password123"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	_, err = h.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "wrong1234"})
	if got := statusOf(err); got != http.StatusUnauthorized {
		t.Errorf("bad login status = %d (%v)", got, err)
	}

	a, err := svc.Store.Accounts.Get(ctx, resp.Account.ID)
	if err != nil {
		t.Fatal(err)
	}
	me, err := h.Me(ctx, a, &dto.EmptyRequest{})
	if err != nil || me.ID != a.ID {
		t.Errorf("Me = %+v, %v", me, err)
	}
	_, err = h.ChangePassword(ctx, a, &dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newpass123"})
	if got := statusOf(err); got != http.StatusBadRequest {
		t.Errorf("wrong current password status = %d", got)
	}
	if _, err := h.ChangePassword(ctx, a, &dto.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newpass123"}); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := h.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "newpass123"}); err != nil {
		t.Errorf("Login with new password failed: %v", err)
	}

	closed := NewAuthHandler(svc, &Config{})
	_, err = closed.Register(ctx, &dto.RegisterRequest{Username: "dave", Email: "dave@example.com", Password: "password123"})
	if got := statusOf(err); got != http.StatusForbidden {
		t.Errorf("disabled registration status = %d", got)
	}
}

func TestTokens(t *testing.T) {
	tok := NewTokens([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tok.now = func() time.Time { return now }
	s, exp, err := tok.Issue(&models.Account{ID: 42})
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("exp = %v", exp)
	}
	if id, err := tok.Parse(s); err != nil || id != 42 {
		t.Errorf("Parse = %d, %v", id, err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := tok.Parse(s); err == nil {
		t.Error("expired token accepted")
	}

	other := NewTokens([]byte("another secret that is long enough!"), time.Hour)
	other.now = tok.now
	s2, _, err := other.Issue(&models.Account{ID: 42})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tok.Parse(s2); err == nil {
		t.Error("token signed with another secret accepted")
	}
	if _, err := tok.Parse("not.a.token"); err == nil {
		t.Error("garbage accepted")
	}
}

func TestNotesAndTodosHandlers(t *testing.T) {
	svc := newTestServices(t)
	ctx := t.Context()
	alice := mustAccount(t, svc, "alice", models.RoleUser)
	bob := mustAccount(t, svc, "bobby", models.RoleUser)

	notes := NewNoteHandler(svc)
	n, err := notes.Create(ctx, alice, &dto.NoteRequest{Title: "Groceries", ContentMarkdown: "- milk", Tags: []string{"home"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := notes.Get(ctx, bob, &dto.IDRequest{ID: n.ID}); statusOf(err) != http.StatusNotFound {
		t.Errorf("bob read alice's note: %v", err)
	}
	list, err := notes.List(ctx, alice, &dto.ListNotesRequest{Tag: "home"})
	if err != nil || len(list.Items) != 1 {
		t.Errorf("List = %+v, %v", list, err)
	}
	if _, err := notes.Update(ctx, alice, &dto.NoteRequest{ID: n.ID, Title: "Shopping"}); err != nil {
		t.Fatal(err)
	}
	if _, err := notes.Delete(ctx, alice, &dto.IDRequest{ID: n.ID}); err != nil {
		t.Fatal(err)
	}

	todos := NewTodoHandler(svc)
	td, err := todos.Create(ctx, alice, &dto.TodoRequest{Title: "Pay rent", DueDate: "2025-04-01"})
	if err != nil {
		t.Fatal(err)
	}
	done := true
	td, err = todos.Complete(ctx, alice, &dto.CompleteTodoRequest{ID: td.ID, Completed: &done})
	if err != nil || !td.Completed || td.CompletedAt == nil {
		t.Fatalf("Complete = %+v, %v", td, err)
	}
	open, err := todos.List(ctx, alice, &dto.ListTodosRequest{Status: "open"})
	if err != nil || len(open.Items) != 0 {
		t.Errorf("open = %+v, %v", open, err)
	}
	if _, err := todos.Delete(ctx, bob, &dto.IDRequest{ID: td.ID}); statusOf(err) != http.StatusNotFound {
		t.Errorf("bob deleted alice's todo: %v", err)
	}
}

func TestExpensesAndSettingsHandlers(t *testing.T) {
	svc := newTestServices(t)
	ctx := t.Context()
	a := mustAccount(t, svc, "alice", models.RoleUser)

	exp := NewExpenseHandler(svc)
	for _, req := range []*dto.CreateTransactionRequest{
		{Type: "income", Amount: 100, Category: "Salary", Date: "2025-01-05"},
		{Type: "expense", Amount: 30, Category: "Food", Date: "2025-01-06"},
		{Type: "expense", Amount: 5, Date: "2025-02-01"},
	} {
		if _, err := exp.Create(ctx, a, req); err != nil {
			t.Fatal(err)
		}
	}
	sum, err := exp.Summary(ctx, a, &dto.MonthRequest{Month: "2025-01"})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Income != 100 || sum.Expenses != 30 || sum.Balance != 70 {
		t.Errorf("Summary = %+v", sum)
	}
	all, err := exp.List(ctx, a, &dto.MonthRequest{})
	if err != nil || len(all.Items) != 3 {
		t.Errorf("List = %+v, %v", all, err)
	}

	st := NewSettingsHandler(svc)
	dark := true
	got, err := st.Update(ctx, a, &dto.UpdateSettingsRequest{Theme: "dark", Privacy: &dto.PrivacyRequest{ShowEmail: &dark}})
	if err != nil {
		t.Fatal(err)
	}
	if got.Theme != models.ThemeDark || !got.Privacy.ShowEmail || !got.Privacy.Newsletter || got.Language != models.LanguageEnglish {
		t.Errorf("Update = %+v", got)
	}
	got, err = st.Get(ctx, a, &dto.EmptyRequest{})
	if err != nil || got.Theme != models.ThemeDark {
		t.Errorf("Get = %+v, %v", got, err)
	}
}

func TestAdminHandler(t *testing.T) {
	svc := newTestServices(t)
	ctx := t.Context()
	root := mustAccount(t, svc, "root", models.RoleAdmin)
	alice := mustAccount(t, svc, "alice", models.RoleUser)
	h := NewAdminHandler(svc)
	var logBuf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	users, err := h.ListUsers(ctx, root, &dto.EmptyRequest{})
	if err != nil || len(users.Items) != 2 {
		t.Fatalf("ListUsers = %+v, %v", users, err)
	}
	b, _ := json.Marshal(users)
	if strings.Contains(string(b), "password") {
		t.Errorf("ListUsers leaked hashes: %s", b)
	}

	reset, err := h.ResetPassword(ctx, root, &dto.IDRequest{ID: alice.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Store.Authenticate(ctx, "alice", reset.TemporaryPassword); err != nil {
		t.Errorf("temporary password rejected: %v", err)
	}
	if _, err := h.DeleteUser(ctx, root, &dto.IDRequest{ID: root.ID}); statusOf(err) != http.StatusForbidden {
		t.Errorf("self delete: %v", err)
	}
	if _, err := h.DeleteUser(ctx, root, &dto.IDRequest{ID: alice.ID}); err != nil {
		t.Fatal(err)
	}
	// Each action is logged once.
	logged := logBuf.String()
	if n := strings.Count(logged, `msg="Password reset"`); n != 1 {
		t.Errorf("password reset logged %d times:\n%s", n, logged)
	}
	if n := strings.Count(logged, `msg="User deleted"`); n != 1 || strings.Contains(logged, "Account deleted") {
		t.Errorf("deletion logged %d times:\n%s", n, logged)
	}
	stats, err := h.Stats(ctx, root, &dto.EmptyRequest{})
	if err != nil || stats.TotalUsers != 2 || stats.ActiveUsers != 1 || len(stats.Recent) != 2 {
		t.Errorf("Stats = %+v, %v", stats, err)
	}
	logs, err := h.Logs(ctx, root, &dto.ListLogsRequest{Limit: 1})
	if err != nil || len(logs.Items) != 1 || logs.Items[0].Action != models.ActionDeleteUser {
		t.Errorf("Logs = %+v, %v", logs, err)
	}
}

func TestHealth(t *testing.T) {
	svc := newTestServices(t)
	h := NewHealthHandler(svc, &Config{Version: "v1.2.3"})
	resp, err := h.Health(t.Context(), &dto.EmptyRequest{})
	if err != nil || resp.Status != "ok" || resp.Version != "v1.2.3" {
		t.Errorf("Health = %+v, %v", resp, err)
	}
	schemas, err := h.Schemas(t.Context(), &dto.EmptyRequest{})
	if err != nil || schemas.Schemas["users.json"] == nil {
		t.Errorf("Schemas = %v, %v", schemas, err)
	}
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUploadHandler(t *testing.T) {
	svc := newTestServices(t)
	a := mustAccount(t, svc, "alice", models.RoleUser)
	h := NewUploadHandler(svc)

	body, ct := multipartBody(t, "file", "cat.png", pngBytes(t, 40, 20))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	r.Header.Set("Content-Type", ct)
	r = r.WithContext(reqctx.WithAccount(r.Context(), a))
	w := httptest.NewRecorder()
	h.Upload(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("Upload status = %d: %s", w.Code, w.Body)
	}
	var u models.Upload
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(u.Name, "file_") || u.MimeType != "image/png" {
		t.Errorf("upload = %+v", u)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+u.Name, nil)
	r.SetPathValue("name", u.Name)
	r = r.WithContext(reqctx.WithAccount(r.Context(), a))
	w = httptest.NewRecorder()
	h.Download(w, r)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" || w.Body.Len() == 0 {
		t.Errorf("Download = %d %v", w.Code, w.Header())
	}

	// Another account cannot see the file.
	bob := mustAccount(t, svc, "bobby", models.RoleUser)
	r = httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+u.Name, nil)
	r.SetPathValue("name", u.Name)
	r = r.WithContext(reqctx.WithAccount(r.Context(), bob))
	w = httptest.NewRecorder()
	h.Download(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-account download status = %d", w.Code)
	}

	body, ct = multipartBody(t, "other", "cat.png", pngBytes(t, 4, 4))
	r = httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	r.Header.Set("Content-Type", ct)
	r = r.WithContext(reqctx.WithAccount(r.Context(), a))
	w = httptest.NewRecorder()
	h.Upload(w, r)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), string(apierrors.ErrMissingField)) {
		t.Errorf("missing part = %d: %s", w.Code, w.Body)
	}

	list, err := h.List(t.Context(), a, &dto.EmptyRequest{})
	if err != nil || len(list.Items) != 1 {
		t.Errorf("List = %+v, %v", list, err)
	}
	if _, err := h.Delete(t.Context(), a, &dto.FileRequest{Name: u.Name}); err != nil {
		t.Error(err)
	}
}

func TestUploadAvatar(t *testing.T) {
	svc := newTestServices(t)
	a := mustAccount(t, svc, "alice", models.RoleUser)
	h := NewProfileHandler(svc)

	body, ct := multipartBody(t, "avatar", "me.png", pngBytes(t, 300, 200))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/profile/avatar", body)
	r.Header.Set("Content-Type", ct)
	r = r.WithContext(reqctx.WithAccount(r.Context(), a))
	w := httptest.NewRecorder()
	h.UploadAvatar(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("UploadAvatar status = %d: %s", w.Code, w.Body)
	}
	p, err := h.Get(t.Context(), a, &dto.EmptyRequest{})
	if err != nil || p.Avatar == "" {
		t.Errorf("profile = %+v, %v", p, err)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/v1/profile/avatar", strings.NewReader("{}"))
	r.Header.Set("Content-Type", "application/json")
	r = r.WithContext(reqctx.WithAccount(r.Context(), a))
	w = httptest.NewRecorder()
	h.UploadAvatar(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non multipart status = %d", w.Code)
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   apierrors.ErrorCode
	}{
		{fmt.Errorf("note 3: %w", storage.ErrNotFound), http.StatusNotFound, apierrors.ErrNotFound},
		{fmt.Errorf("users.json: %w", jsondb.ErrLockTimeout), http.StatusServiceUnavailable, apierrors.ErrBusy},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, apierrors.ErrPayloadTooLarge},
		{errors.New("boom"), http.StatusInternalServerError, apierrors.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(t.Context(), w, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp dto.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != string(tt.code) {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.code)
			}
			if strings.Contains(resp.Error.Message, "boom") {
				t.Errorf("internal error leaked: %q", resp.Error.Message)
			}
			if tt.code == apierrors.ErrBusy && w.Header().Get("Retry-After") != "1" {
				t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
			}
		})
	}
}

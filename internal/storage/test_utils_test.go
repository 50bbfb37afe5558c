package storage

import (
	"os"
	"testing"

	"github.com/maruel/myaccount/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), Options{Hasher: BcryptHasher{Cost: bcrypt.MinCost}})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return fs
}

func mustRegister(t *testing.T, fs *FileStore, username string, role models.Role) *models.Account {
	t.Helper()
	a, err := fs.Register(t.Context(), username, username+"@example.com", "password123", role)
	if err != nil {
		t.Fatalf("Register(%q) failed: %v", username, err)
	}
	return a
}

func statDir(p string) (bool, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

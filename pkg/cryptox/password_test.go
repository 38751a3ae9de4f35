package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-pepper")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashPassword_PHCFormat(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 6, "PHC hash should have 6 parts")
	require.Equal(t, "argon2id", parts[1])
	require.Equal(t, "v=19", parts[2])
	require.Equal(t, "m=19456,t=2,p=1", parts[3])
	require.NotEmpty(t, parts[4], "salt should not be empty")
	require.NotEmpty(t, parts[5], "hash should not be empty")
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("samepassword")
	require.NoError(t, err)
	h2, err := HashPassword("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2, "hashes should differ due to unique salts")
	require.NoError(t, VerifyPassword("samepassword", h1))
	require.NoError(t, VerifyPassword("samepassword", h2))
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-password")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"correct", "correct-password", nil},
		{"case difference", "Correct-Password", ErrPasswordMismatch},
		{"trailing space", "correct-password ", ErrPasswordMismatch},
		{"empty", "", ErrPasswordMismatch},
		{"very long", strings.Repeat("x", 10000), ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword(tt.password, hash)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	for _, bad := range []string{
		"",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456",
		"$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	} {
		err := VerifyPassword("whatever", bad)
		require.Error(t, err, bad)
		require.NotErrorIs(t, err, ErrPasswordMismatch, bad)
	}
}

func TestBurnPasswordCheck(t *testing.T) {
	require.NotPanics(t, func() {
		BurnPasswordCheck("anything")
		BurnPasswordCheck("")
	})
}

func TestValidatePasswordPolicy(t *testing.T) {
	require.ErrorIs(t, ValidatePasswordPolicy("short"), ErrPasswordTooShort)
	require.ErrorIs(t, ValidatePasswordPolicy(strings.Repeat("a", MaxPasswordLength+1)), ErrPasswordTooLong)
	require.NoError(t, ValidatePasswordPolicy("eight888"))
	// runes, not bytes
	require.ErrorIs(t, ValidatePasswordPolicy("ééééééé"), ErrPasswordTooShort)
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 20 {
		p, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, p, 16)
		require.NoError(t, ValidatePasswordPolicy(p))
		require.False(t, seen[p], "duplicate password generated")
		seen[p] = true
	}
}

func TestLoadPepper_RejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pepper")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0600))

	_, err := loadOrGeneratePepper(path)
	require.Error(t, err)
}

func TestLoadPepper_CreatesAndReuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	p1, err := loadOrGeneratePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, p1)

	p2, err := loadOrGeneratePepper(path)
	require.NoError(t, err)
	require.Equal(t, p1, p2)
}

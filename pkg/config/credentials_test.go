package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCredFile(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "jquants-api.toml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func clearCredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JQUANTS_API_CLIENT_CONFIG_FILE", "")
	t.Setenv("JQUANTS_API_MAIL_ADDRESS", "")
	t.Setenv("JQUANTS_API_PASSWORD", "")
	t.Setenv("JQUANTS_API_REFRESH_TOKEN", "")
	os.Unsetenv("JQUANTS_API_CLIENT_CONFIG_FILE")
	os.Unsetenv("JQUANTS_API_MAIL_ADDRESS")
	os.Unsetenv("JQUANTS_API_PASSWORD")
	os.Unsetenv("JQUANTS_API_REFRESH_TOKEN")
}

func TestLoadCredentialsFromFile(t *testing.T) {
	clearCredEnv(t)
	p := writeCredFile(t, t.TempDir(), `
[jquants-api-client]
mail_address = "user@example.com"
password = "secret"
`)
	c, err := LoadCredentials(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MailAddress != "user@example.com" || c.Password != "secret" {
		t.Fatalf("unexpected credentials: %+v", c)
	}
	if !c.HasLogin() {
		t.Fatal("expected HasLogin")
	}
}

func TestLoadCredentialsEnvOverridesFile(t *testing.T) {
	clearCredEnv(t)
	p := writeCredFile(t, t.TempDir(), `
[jquants-api-client]
mail_address = "file@example.com"
password = "file_pw"
refresh_token = "file_token"
`)
	t.Setenv("JQUANTS_API_MAIL_ADDRESS", "env@example.com")
	t.Setenv("JQUANTS_API_PASSWORD", "env_pw")
	t.Setenv("JQUANTS_API_REFRESH_TOKEN", "env_token")

	c, err := LoadCredentials(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MailAddress != "env@example.com" || c.Password != "env_pw" || c.RefreshToken != "env_token" {
		t.Fatalf("env should win: %+v", c)
	}
}

func TestLoadCredentialsLaterFileWins(t *testing.T) {
	clearCredEnv(t)
	first := writeCredFile(t, t.TempDir(), `
[jquants-api-client]
mail_address = "first@example.com"
password = "pw"
`)
	second := writeCredFile(t, t.TempDir(), `
[jquants-api-client]
mail_address = "second@example.com"
refresh_token = "tok"
`)
	t.Setenv("JQUANTS_API_CLIENT_CONFIG_FILE", first)

	c, err := LoadCredentials(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// explicit path is last in the chain, so it overrides the env-named file,
	// but fields it does not set are kept.
	if c.MailAddress != "second@example.com" {
		t.Fatalf("mail: %s", c.MailAddress)
	}
	if c.Password != "pw" {
		t.Fatalf("password should carry over: %s", c.Password)
	}
	if c.RefreshToken != "tok" {
		t.Fatalf("token: %s", c.RefreshToken)
	}
}

func TestLoadCredentialsMissingAll(t *testing.T) {
	clearCredEnv(t)
	if _, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error when no credentials are available")
	}
}

func TestLoadCredentialsTokenOnly(t *testing.T) {
	clearCredEnv(t)
	t.Setenv("JQUANTS_API_REFRESH_TOKEN", "token_only")
	c, err := LoadCredentials("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.RefreshToken != "token_only" || c.HasLogin() {
		t.Fatalf("unexpected credentials: %+v", c)
	}
}

func TestCredentialsValidateMail(t *testing.T) {
	c := Credentials{MailAddress: "nodomain", Password: "pw"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for mail address without '@'")
	}
}

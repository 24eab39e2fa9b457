package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Credentials holds J-Quants API login material. Either MailAddress+Password
// or a RefreshToken must be present.
type Credentials struct {
	MailAddress  string `toml:"mail_address"`
	Password     string `toml:"password"`
	RefreshToken string `toml:"refresh_token"`
}

// credentialsFile is the TOML layout: credentials live under a
// [jquants-api-client] table so the file can be shared with other tooling.
type credentialsFile struct {
	JQuantsAPIClient Credentials `toml:"jquants-api-client"`
}

// LoadCredentials resolves J-Quants credentials from a chain of sources,
// later sources overriding earlier ones:
//
//  1. ~/.jquants-api/jquants-api.toml
//  2. ./jquants-api.toml
//  3. the file named by $JQUANTS_API_CLIENT_CONFIG_FILE
//  4. explicitPath, if non-empty (from the app config)
//  5. JQUANTS_API_MAIL_ADDRESS / JQUANTS_API_PASSWORD / JQUANTS_API_REFRESH_TOKEN
//
// Missing files are skipped silently; a present but malformed file is an error.
func LoadCredentials(explicitPath string) (Credentials, error) {
	var c Credentials

	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".jquants-api", "jquants-api.toml"))
	}
	paths = append(paths, "jquants-api.toml")
	if p := os.Getenv("JQUANTS_API_CLIENT_CONFIG_FILE"); p != "" {
		paths = append(paths, p)
	}
	if explicitPath != "" {
		paths = append(paths, explicitPath)
	}

	for _, p := range paths {
		fc, ok, err := readCredentialsFile(p)
		if err != nil {
			return Credentials{}, err
		}
		if !ok {
			continue
		}
		c.merge(fc)
	}

	if v := os.Getenv("JQUANTS_API_MAIL_ADDRESS"); v != "" {
		c.MailAddress = v
	}
	if v := os.Getenv("JQUANTS_API_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("JQUANTS_API_REFRESH_TOKEN"); v != "" {
		c.RefreshToken = v
	}

	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func readCredentialsFile(path string) (Credentials, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, fmt.Errorf("read credentials %s: %w", path, err)
	}
	var f credentialsFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return Credentials{}, false, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return f.JQuantsAPIClient, true, nil
}

func (c *Credentials) merge(o Credentials) {
	if o.MailAddress != "" {
		c.MailAddress = o.MailAddress
	}
	if o.Password != "" {
		c.Password = o.Password
	}
	if o.RefreshToken != "" {
		c.RefreshToken = o.RefreshToken
	}
}

// Validate ensures the credentials are usable.
func (c Credentials) Validate() error {
	if (c.MailAddress == "" || c.Password == "") && c.RefreshToken == "" {
		return fmt.Errorf("either mail_address/password or refresh_token is required")
	}
	if c.MailAddress != "" && !strings.Contains(c.MailAddress, "@") {
		return fmt.Errorf("mail_address must contain '@'")
	}
	return nil
}

// HasLogin reports whether full mail+password login is available, which
// allows refresh tokens to be re-issued when they expire.
func (c Credentials) HasLogin() bool {
	return c.MailAddress != "" && c.Password != ""
}

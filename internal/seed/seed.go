// Package seed registers clients, scopes and users from a YAML file.
//
// Example file:
//
//	clients:
//	  - client_id: backend
//	    client_secret: s3cret
//	  - client_id: spa
//	    redirect_uri: https://app.example.com/callback
//	scopes: [read, write]
//	users:
//	  - username: alice
//	    password_hash: $2a$10$...
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/oauth2-server/storage"
)

// File is the YAML seed document.
type File struct {
	Clients []Client `yaml:"clients"`
	Scopes  []string `yaml:"scopes"`
	Users   []User   `yaml:"users"`
}

// Client is a seeded client. Give either a plaintext secret, which is
// hashed on load, or a precomputed bcrypt hash. Neither makes a public
// client.
type Client struct {
	ClientID         string `yaml:"client_id"`
	ClientSecret     string `yaml:"client_secret"`
	ClientSecretHash string `yaml:"client_secret_hash"`
	RedirectURI      string `yaml:"redirect_uri"`
}

// User is a seeded resource owner.
type User struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// Parse decodes a seed document, rejecting unknown fields.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}
	return &f, nil
}

// LoadFile parses the seed file at path and applies it to r.
func LoadFile(ctx context.Context, path string, r storage.Registry) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return err
	}
	return f.Apply(ctx, r)
}

// Apply registers every entry of f in r. Existing clients and users with
// the same identifier are replaced.
func (f *File) Apply(ctx context.Context, r storage.Registry) error {
	for _, name := range f.Scopes {
		if err := r.SaveScope(ctx, &storage.Scope{Name: name}); err != nil {
			return fmt.Errorf("saving scope %q: %w", name, err)
		}
	}

	for i, c := range f.Clients {
		hash, err := secretHash(c.ClientSecret, c.ClientSecretHash)
		if err != nil {
			return fmt.Errorf("client %d (%s): %w", i+1, c.ClientID, err)
		}
		err = r.SaveClient(ctx, &storage.Client{
			ClientID:         c.ClientID,
			ClientSecretHash: hash,
			RedirectURI:      c.RedirectURI,
		})
		if err != nil {
			return fmt.Errorf("saving client %q: %w", c.ClientID, err)
		}
	}

	for i, u := range f.Users {
		hash, err := secretHash(u.Password, u.PasswordHash)
		if err != nil {
			return fmt.Errorf("user %d (%s): %w", i+1, u.Username, err)
		}
		if hash == "" {
			return fmt.Errorf("user %d (%s): password or password_hash is required", i+1, u.Username)
		}
		// Usernames are matched in NFC by the password grant.
		err = r.SaveUser(ctx, &storage.User{
			Username:     norm.NFC.String(u.Username),
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("saving user %q: %w", u.Username, err)
		}
	}

	return nil
}

func secretHash(plain, hash string) (string, error) {
	switch {
	case plain != "" && hash != "":
		return "", fmt.Errorf("set either a plaintext secret or a hash, not both")
	case plain != "":
		return storage.HashSecret(plain)
	default:
		return hash, nil
	}
}

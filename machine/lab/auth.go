package lab

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// Authenticator is the credential used to log in on the lab host. Exactly one
// authenticator is active per host; the variant is resolved once at
// construction time.
type Authenticator interface {
	// methods builds the SSH auth methods for this credential.
	methods() ([]ssh.AuthMethod, error)
	describe() string
}

// PasswordAuth authenticates with a password.
type PasswordAuth struct {
	Password string
}

func (a PasswordAuth) methods() ([]ssh.AuthMethod, error) {
	return []ssh.AuthMethod{ssh.Password(a.Password)}, nil
}

func (a PasswordAuth) describe() string { return "password" }

// PrivateKeyAuth authenticates with a private key file.
type PrivateKeyAuth struct {
	KeyFile string
}

func (a PrivateKeyAuth) methods() ([]ssh.AuthMethod, error) {
	data, err := os.ReadFile(a.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading private key %s: %w", a.KeyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing private key %s: %w", a.KeyFile, err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func (a PrivateKeyAuth) describe() string { return "private key " + a.KeyFile }

// DefaultAuthenticator is the fallback when the configuration names no
// credential: the private key at the conventional location.
func DefaultAuthenticator() Authenticator {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return PrivateKeyAuth{KeyFile: filepath.Join(home, ".ssh", "id_rsa")}
}

package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
)

// Store is a local-first filesystem keystore. One hex seed file per
// wallet, named <name>.key, mode 0600.
type Store struct {
	Directory string
}

// DefaultDirectory is where Open falls back when no directory is given.
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".tokengate", "keys"), nil
}

// Open returns a store rooted at directory, or at DefaultDirectory when
// directory is empty. The directory is created lazily on first write.
func Open(directory string) (*Store, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &Store{Directory: directory}, nil
}

// CheckName rejects wallet names that would escape the store directory.
func CheckName(name string) error {
	if name == "" {
		return errors.New("wallet name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in wallet name", char)
	}
	return nil
}

func (s *Store) keyFilePath(name string) string {
	return filepath.Join(s.Directory, name+".key")
}

func (s *Store) saveSeed(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (s *Store) loadSeed(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// Create writes a wallet under name. A nil seed generates a fresh one.
// Existing wallets are preserved unless overwrite is set.
func (s *Store) Create(name string, seed []byte, overwrite bool) (*Keypair, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	var kp *Keypair
	var err error
	if seed == nil {
		kp, err = Generate(nil)
	} else {
		kp, err = FromSeed(seed)
	}
	if err != nil {
		return nil, err
	}
	if err := s.saveSeed(s.keyFilePath(name), kp.Seed(), overwrite); err != nil {
		return nil, err
	}
	return kp, nil
}

// Load reads the wallet stored under name.
func (s *Store) Load(name string) (*Keypair, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	seed, err := s.loadSeed(s.keyFilePath(name))
	if err != nil {
		return nil, err
	}
	return FromSeed(seed)
}

// LoadSigner resolves a signing wallet from the first source provided:
// an inline hex seed, an explicit key file, or a stored wallet name.
func (s *Store) LoadSigner(seedHex, keyFile, name string) (*Keypair, error) {
	if seedHex != "" {
		seed, err := ParseSeedHex(seedHex)
		if err != nil {
			return nil, err
		}
		return FromSeed(seed)
	}
	if keyFile != "" {
		seed, err := s.loadSeed(keyFile)
		if err != nil {
			return nil, err
		}
		return FromSeed(seed)
	}
	if name != "" {
		return s.Load(name)
	}
	return nil, errors.New("no signer provided")
}

// List returns the stored wallet names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".key") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".key"))
		}
	}
	sort.Strings(names)
	return names, nil
}

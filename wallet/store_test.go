package wallet

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStore_CreateLoadRoundTrip(t *testing.T) {
	store := &Store{Directory: t.TempDir()}

	created, err := store.Create("alice", nil, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	loaded, err := store.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if created.Address() != loaded.Address() {
		t.Fatalf("address changed across reload: %s vs %s", created.Address(), loaded.Address())
	}

	info, err := os.Stat(filepath.Join(store.Directory, "alice.key"))
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("key file mode = %o, want 600", perm)
	}
}

func TestStore_CreateRefusesOverwrite(t *testing.T) {
	store := &Store{Directory: t.TempDir()}

	first, err := store.Create("bob", testSeed(0x01), false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create("bob", testSeed(0x02), false); err == nil {
		t.Fatal("second create without overwrite succeeded")
	}
	kept, err := store.Load("bob")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if kept.Address() != first.Address() {
		t.Fatal("failed create clobbered the stored seed")
	}

	replaced, err := store.Create("bob", testSeed(0x02), true)
	if err != nil {
		t.Fatalf("Create with overwrite: %v", err)
	}
	if replaced.Address() == first.Address() {
		t.Fatal("overwrite kept the old seed")
	}
}

func TestStore_RejectsBadNames(t *testing.T) {
	store := &Store{Directory: t.TempDir()}
	for _, name := range []string{"", "../escape", "a b", "x/y"} {
		if _, err := store.Create(name, nil, false); err == nil {
			t.Fatalf("name %q accepted", name)
		}
	}
}

func TestStore_LoadSignerResolutionOrder(t *testing.T) {
	store := &Store{Directory: t.TempDir()}
	if _, err := store.Create("named", testSeed(0x03), false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	keyFile := filepath.Join(t.TempDir(), "external.key")
	if err := os.WriteFile(keyFile, []byte(hex.EncodeToString(testSeed(0x04))+"\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	inline := hex.EncodeToString(testSeed(0x05))

	fromInline, err := store.LoadSigner(inline, keyFile, "named")
	if err != nil {
		t.Fatalf("LoadSigner inline: %v", err)
	}
	wantInline, _ := FromSeed(testSeed(0x05))
	if fromInline.Address() != wantInline.Address() {
		t.Fatal("inline seed did not win")
	}

	fromFile, err := store.LoadSigner("", keyFile, "named")
	if err != nil {
		t.Fatalf("LoadSigner file: %v", err)
	}
	wantFile, _ := FromSeed(testSeed(0x04))
	if fromFile.Address() != wantFile.Address() {
		t.Fatal("key file did not win over stored name")
	}

	fromName, err := store.LoadSigner("", "", "named")
	if err != nil {
		t.Fatalf("LoadSigner name: %v", err)
	}
	wantName, _ := FromSeed(testSeed(0x03))
	if fromName.Address() != wantName.Address() {
		t.Fatal("stored wallet not loaded")
	}

	if _, err := store.LoadSigner("", "", ""); err == nil {
		t.Fatal("empty signer sources accepted")
	}
}

func TestStore_ListSorted(t *testing.T) {
	store := &Store{Directory: t.TempDir()}
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := store.Create(name, nil, false); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "mid", "zeta"}) {
		t.Fatalf("names = %v", names)
	}

	empty := &Store{Directory: filepath.Join(t.TempDir(), "missing")}
	names, err = empty.List()
	if err != nil || names != nil {
		t.Fatalf("missing directory: names=%v err=%v", names, err)
	}
}

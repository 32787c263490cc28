package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRootHasCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "hash-password"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("command %q not registered (%v)", name, err)
		}
	}
}

func TestHashPassword(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	root := newRootCmd()
	root.SetArgs([]string{"hash-password", "--cost", "4", "s3cret"})
	runErr := root.Execute()
	_ = w.Close()
	os.Stdout = stdout
	if runErr != nil {
		t.Fatal(runErr)
	}
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)

	hash := strings.TrimSpace(buf.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Fatalf("hash %q does not match: %v", hash, err)
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != 4 {
		t.Fatalf("cost = %d", cost)
	}
}

func TestHashPasswordNeedsOneArg(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"hash-password"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Fatal("expected an argument error")
	}
}

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/fastrule/internal/cache"
	"github.com/funvibe/fastrule/internal/config"
	"github.com/funvibe/fastrule/internal/pipeline"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		args       []string
		positional []string
		opts       options
		wantErr    bool
	}{
		{[]string{"f.yaml"}, []string{"f.yaml"}, options{}, false},
		{[]string{"f.yaml", "-o", "out.frp", "-v", "-v"}, []string{"f.yaml"}, options{output: "out.frp", verbosity: 2}, false},
		{[]string{"--cache", "c.db", "f.yaml", "Zero", "-d"}, []string{"f.yaml", "Zero"}, options{cachePath: "c.db", disasm: true}, false},
		{[]string{"-vv", "--no-color", "x"}, []string{"x"}, options{verbosity: 2, noColor: true}, false},
		{[]string{"f.yaml", "-o"}, nil, options{}, true},
	}
	for _, tt := range tests {
		positional, opts, err := parseArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseArgs(%v) err = %v", tt.args, err)
			continue
		}
		if tt.wantErr {
			continue
		}
		if !reflect.DeepEqual(positional, tt.positional) || opts != tt.opts {
			t.Errorf("parseArgs(%v) = %v, %+v; want %v, %+v", tt.args, positional, opts, tt.positional, tt.opts)
		}
	}
}

// TestTestdata verifies every bundled clause file against its probes.
func TestTestdata(t *testing.T) {
	entries, err := os.ReadDir("testdata")
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, e := range entries {
		path := filepath.Join("testdata", e.Name())
		if e.IsDir() || !config.IsClauseFile(path) {
			continue
		}
		n++
		t.Run(e.Name(), func(t *testing.T) {
			ctx := pipeline.Verify().Run(pipeline.NewContext(path))
			if ctx.Failed() {
				t.Fatalf("errors: %v", ctx.Err())
			}
			if len(ctx.Reports) == 0 {
				t.Error("no probes ran")
			}
		})
	}
	if n == 0 {
		t.Fatal("no clause files in testdata")
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"valid", "clauses:\n  - f Zero\n  - f (Succ n)\n", ""},
		{"parse error", "clauses:\n  - f (Succ\n", "clauses[0]"},
		{"mixed roots", "clauses: [\"f x\", \"g x\"]\n", `clause for "g"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "f.yaml")
			if err := os.WriteFile(path, []byte(tt.src), 0o644); err != nil {
				t.Fatal(err)
			}
			opts := options{cachePath: filepath.Join(dir, "cache.db")}

			ctx, err := build(pipeline.Compile(), path, opts)
			if tt.wantErr == "" {
				if err != nil || ctx.Program == nil {
					t.Fatalf("build: %v", err)
				}
			} else if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("build err = %v, want %q", err, tt.wantErr)
			}

			// build has released the cache, so it opens again.
			c, err := cache.Open(opts.cachePath)
			if err != nil {
				t.Fatalf("reopening cache: %v", err)
			}
			defer c.Close()
			n, err := c.Len()
			if err != nil {
				t.Fatal(err)
			}
			want := 0
			if tt.wantErr == "" {
				want = 1
			}
			if n != want {
				t.Errorf("cache holds %d programs, want %d", n, want)
			}
		})
	}
}

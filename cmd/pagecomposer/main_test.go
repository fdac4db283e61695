/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"pagecomposer/internal/storage"
)

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	keyring.MockInit()
	t.Setenv("PCE_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))
	t.Setenv("PCE_LOG_LEVEL", "error")
	return &cli{t: t, dir: t.TempDir()}
}

// run executes one command in a fresh process-like app and returns stdout.
func (c *cli) run(args ...string) (string, int) {
	c.t.Helper()
	var out bytes.Buffer
	a := &app{dh: &storage.DocumentHandle{}}
	code := run(context.Background(), a, append([]string{"--dir", c.dir}, args...), &out)
	a.close()
	return out.String(), code
}

func (c *cli) must(args ...string) string {
	c.t.Helper()
	out, code := c.run(args...)
	if code != 0 {
		c.t.Fatalf("%v exited %d: %s", args, code, out)
	}
	return strings.TrimSpace(out)
}

func TestCLIEditFlow(t *testing.T) {
	c := newCLI(t)
	c.must("init", "site", "Landing")
	if _, code := c.run("init", "site"); code == 0 {
		t.Fatalf("second init must fail")
	}

	section := c.must("add", "site", "section")
	heading := c.must("add", "site", "heading")
	c.must("move", "site", heading, section, "--into")
	if _, code := c.run("move", "site", heading, heading, "--into"); code == 0 {
		t.Fatalf("--into on a leaf must fail")
	}
	c.must("set", "site", heading, "text", `"Hello"`)
	dup := c.must("duplicate", "site", heading)
	if dup == "" || dup == heading {
		t.Fatalf("duplicate returned %q", dup)
	}
	c.must("global", "site", "font.family", "Inter")

	show := c.must("show", "site")
	if !strings.Contains(show, "[0] Landing /landing") || !strings.Contains(show, "Hello") {
		t.Fatalf("unexpected show output:\n%s", show)
	}
	c.must("validate", "site")

	found := c.must("find", "site", "--type", "heading", "Hello")
	if strings.Count(found, "\n")+1 != 2 {
		t.Fatalf("expected two headings, got:\n%s", found)
	}

	c.must("delete", "site", section)
	if _, code := c.run("delete", "site", section); code == 0 {
		t.Fatalf("deleting a missing node must fail")
	}
	c.must("outline", "site", "out.pdf")
	if _, err := os.Stat(filepath.Join(c.dir, "site", "exports", "out.pdf")); err != nil {
		t.Fatalf("outline missing: %v", err)
	}
}

func TestCLIPagesAndNavigation(t *testing.T) {
	c := newCLI(t)
	c.must("init", "site")
	about := c.must("page", "add", "site", "About Us")
	c.must("page", "seo", "site", about, "About", "Who we are")
	nav := c.must("add", "site", "navbar", "--page", "1")
	c.must("nav", "put", "site", "main", "--name", "Main", "Docs=/docs", "Blog=https://blog.example")
	c.must("set", "site", nav, "navigationId", "main")

	show := c.must("show", "site", "--json")
	if !strings.Contains(show, `"about-us"`) || !strings.Contains(show, `"/docs"`) {
		t.Fatalf("navbar links not cached:\n%s", show)
	}
	out := c.must("nav", "delete", "site", "main")
	if !strings.Contains(out, "1 navbars detached") {
		t.Fatalf("unexpected nav delete output: %s", out)
	}
	if _, code := c.run("nav", "delete", "site", "main"); code == 0 {
		t.Fatalf("deleting a missing navigation must fail")
	}
	if _, code := c.run("add", "site", "heading", "--page", "5"); code == 0 {
		t.Fatalf("out of range page must fail")
	}
}

func TestParseValueAndNavItem(t *testing.T) {
	if v := parseValue("42"); v != float64(42) {
		t.Fatalf("number: %#v", v)
	}
	if v := parseValue("hello world"); v != "hello world" {
		t.Fatalf("string fallback: %#v", v)
	}
	if m, ok := parseValue(`{"a":true}`).(map[string]any); !ok || m["a"] != true {
		t.Fatalf("object: %#v", m)
	}
	it, err := parseNavItem("Blog=https://blog.example")
	if err != nil || it.Type != "external" {
		t.Fatalf("nav item: %+v err=%v", it, err)
	}
	if _, err := parseNavItem("nourl"); err == nil {
		t.Fatalf("expected error for item without url")
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pagecomposer/internal/config"
	"pagecomposer/internal/crash"
	"pagecomposer/internal/domain"
	"pagecomposer/internal/editor"
	applog "pagecomposer/internal/log"
	"pagecomposer/internal/registry"
	"pagecomposer/internal/storage"
	"pagecomposer/internal/version"
)

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg   config.AppConfig
	token string
	reg   *registry.Registry
	store storage.FileStore
	log   *slog.Logger

	// dh is allocated before any command runs so crash.Recover can be
	// deferred with it; open fills it in.
	dh   *storage.DocumentHandle
	sess *editor.Session
	navs *storage.NavigationStore

	docsDir string
	page    int
}

// document returns the live document for crash snapshots.
func (a *app) document() domain.Document {
	if a.sess != nil {
		return a.sess.Document()
	}
	return a.dh.Document
}

func (a *app) setup() error {
	cfg, tok, err := config.Load()
	if err != nil {
		// Defaults still work without a resolvable config directory.
		applog.WithComponent("cli").Warn("config unavailable", slog.Any("err", err))
	}
	a.cfg, a.token = cfg, tok
	applog.Init(cfg.Logging.Options())
	a.log = applog.WithComponent("cli")

	a.reg = registry.Default()
	if f := cfg.General.RegistryFile; f != "" {
		ext, err := registry.LoadFile(f)
		if err != nil {
			return fmt.Errorf("component registry: %w", err)
		}
		a.reg.Merge(ext)
	}
	dir := cfg.General.DocumentsDir
	if a.docsDir != "" {
		dir = a.docsDir
	}
	a.store = storage.FileStore{Dir: dir, Index: true}
	if cfg.History.Persist {
		a.store.KeepHistory = cfg.History.KeepLast
	}
	return nil
}

// open loads documentID into a session backed by the file store and the
// document's navigation table.
func (a *app) open(ctx context.Context, documentID string) error {
	root := a.store.Root(documentID)
	h, err := storage.Open(root)
	if err != nil {
		return err
	}
	*a.dh = *h
	navs, err := storage.OpenNavigationStore(root)
	if err != nil {
		return err
	}
	a.navs = navs
	a.sess = editor.New(h.Document, editor.Options{
		Registry:    a.reg,
		Navigations: navs,
		Store:       a.store,
		DocumentID:  documentID,
		History:     a.cfg.History.Manager(),
		Logger:      applog.WithComponent("editor"),
	})
	if a.page != 0 && !a.sess.SelectPage(a.page) {
		return fmt.Errorf("page %d out of range (document has %d pages)", a.page, len(h.Document.Pages))
	}
	a.log.Debug("document opened", slog.String("document", documentID), slog.String("root", root))
	return nil
}

// save persists the session when it has unsaved edits.
func (a *app) save(ctx context.Context) error {
	if a.sess == nil || a.sess.Status() != domain.StatusUnsavedChanges {
		return nil
	}
	return a.sess.Save(ctx)
}

func (a *app) close() {
	if a.navs != nil {
		_ = a.navs.Close()
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pagecomposer",
		Short:         "Compose web pages from a component tree",
		Long:          `pagecomposer edits page documents made of nested components, stored as JSON manifests with backups and a SQLite index.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.docsDir, "dir", "", "documents directory (default from config)")
	root.PersistentFlags().IntVar(&a.page, "page", 0, "active page index for node commands")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)
	root.AddCommand(documentCommands(a)...)
	root.AddCommand(nodeCommands(a)...)
	root.AddCommand(pageCommands(a)...)
	root.AddCommand(navigationCommands(a)...)
	root.AddCommand(remoteCommands(a)...)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{dh: &storage.DocumentHandle{}}
	code := run(ctx, a, os.Args[1:], os.Stdout)
	a.close()
	stop()
	os.Exit(code)
}

func run(ctx context.Context, a *app, args []string, out io.Writer) int {
	defer crash.Recover(a.dh, a.document)
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

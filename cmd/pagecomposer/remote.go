/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pagecomposer/internal/backend"
	"pagecomposer/internal/config"
	"pagecomposer/internal/domain"
	"pagecomposer/internal/editor"
	"pagecomposer/internal/storage"
)

func (a *app) client() *backend.Client {
	c := backend.NewClient(a.cfg.Backend.BaseURL, a.token, a.cfg.Backend.EffectiveTimeout())
	c.Bootstrap = os.Getenv(backend.EnvBootstrapSecret)
	if a.cfg.Backend.TLSInsecure {
		c.InsecureSkipVerify()
	}
	return c
}

func remoteCommands(a *app) []*cobra.Command {
	var memory bool
	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the document server",
		Long: `Run the HTTP document server. Documents are kept in Postgres
(DATABASE_URL or PCE_PG_DSN) unless --memory is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.General.EnableServer {
				return errors.New("server disabled; set general.enable_server or " + config.EnvEnableServer + "=1")
			}
			listen := a.cfg.Backend.ListenAddr
			if addr != "" {
				listen = addr
			}
			cfg := backend.ConfigFromEnv(listen)
			cfg.Memory = memory
			return backend.Start(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().BoolVar(&memory, "memory", false, "keep documents in memory")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	var ttl time.Duration
	loginCmd := &cobra.Command{
		Use:   "login <subject>",
		Short: "Request a server token and store it in the OS keychain",
		Long: `Request a server token and store it in the OS keychain. The server
only issues tokens to callers presenting its bootstrap secret, read from
` + backend.EnvBootstrapSecret + `, unless it runs on the development secret.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := a.client().RequestToken(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			if err := config.Save(a.cfg, tok); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in as", args[0])
			return nil
		},
	}
	loginCmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored server token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.DeleteToken()
		},
	}

	pushCmd := &cobra.Command{
		Use:   "push <document>",
		Short: "Upload a local document to the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c := a.client()
			// Prime the version so the upload is conditional on what the
			// server has; a missing remote copy is created.
			if _, err := c.Load(cmd.Context(), args[0]); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			sess := editor.New(doc, editor.Options{Registry: a.reg, Store: c, DocumentID: args[0]})
			if err := sess.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Pushed", args[0], "to", a.cfg.Backend.BaseURL)
			return nil
		},
	}

	pullCmd := &cobra.Command{
		Use:   "pull <document>",
		Short: "Download a document from the server into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := editor.New(domain.Document{}, editor.Options{Registry: a.reg, Store: a.client()})
			if err := sess.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := a.store.Save(cmd.Context(), args[0], sess.Document()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Pulled", args[0], "into", a.store.Root(args[0]))
			return nil
		},
	}

	remoteListCmd := &cobra.Command{
		Use:   "remote-list",
		Short: "List documents on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client().ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tv%d\t%s\t%s\n", r.ID, r.Version, r.UpdatedBy, r.UpdatedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}

	return []*cobra.Command{serveCmd, loginCmd, logoutCmd, pushCmd, pullCmd, remoteListCmd}
}

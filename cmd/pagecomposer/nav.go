/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pagecomposer/internal/domain"
)

// parseNavItem reads "label=url" or "label=url=type".
func parseNavItem(s string) (domain.NavItem, error) {
	parts := strings.SplitN(s, "=", 3)
	if len(parts) < 2 || parts[0] == "" {
		return domain.NavItem{}, fmt.Errorf("invalid item %q, want label=url[=type]", s)
	}
	it := domain.NavItem{Label: parts[0], URL: parts[1], Type: "internal"}
	if len(parts) == 3 {
		it.Type = parts[2]
	} else if strings.Contains(it.URL, "://") {
		it.Type = "external"
	}
	return it, nil
}

func navigationCommands(a *app) []*cobra.Command {
	navCmd := &cobra.Command{
		Use:   "nav",
		Short: "Manage navigations referenced by navbars",
	}

	var putName string
	putCmd := &cobra.Command{
		Use:   "put <document> <navigation-id> <label=url[=type]>...",
		Short: "Create or replace a navigation and refresh navbars using it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			nav := domain.Navigation{ID: args[1], Name: putName, Items: []domain.NavItem{}}
			for _, raw := range args[2:] {
				it, err := parseNavItem(raw)
				if err != nil {
					return err
				}
				nav.Items = append(nav.Items, it)
			}
			if err := a.navs.Put(cmd.Context(), nav); err != nil {
				return err
			}
			n := a.sess.RefreshNavigation(cmd.Context(), nav.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Stored navigation %s (%d items, %d navbars refreshed)\n", nav.ID, len(nav.Items), n)
			return a.save(cmd.Context())
		},
	}
	putCmd.Flags().StringVar(&putName, "name", "", "display name")

	deleteCmd := &cobra.Command{
		Use:   "delete <document> <navigation-id>",
		Short: "Delete a navigation and detach navbars using it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			ok, err := a.navs.Delete(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("navigation %s not found", args[1])
			}
			n := a.sess.InvalidateNavigation(args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted navigation %s (%d navbars detached)\n", args[1], n)
			return a.save(cmd.Context())
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <document>",
		Short: "List navigations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			navs, err := a.navs.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, nav := range navs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", nav.ID, nav.Name)
				for _, it := range nav.Items {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s (%s)\n", it.Label, it.URL, it.Type)
				}
			}
			return nil
		},
	}

	navCmd.AddCommand(putCmd, deleteCmd, listCmd)
	return []*cobra.Command{navCmd}
}

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

	"github.com/spf13/cobra"
)

func pageCommands(a *app) []*cobra.Command {
	pageCmd := &cobra.Command{
		Use:   "page",
		Short: "Manage the pages of a document",
	}

	var addSlug string
	addCmd := &cobra.Command{
		Use:   "add <document> <name>",
		Short: "Append a page; the slug is derived from the name unless given",
		Args:  cobra.ExactArgs(2),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			fmt.Fprintln(cmd.OutOrStdout(), a.sess.AddPage(args[1], addSlug))
			return true, nil
		}),
	}
	addCmd.Flags().StringVar(&addSlug, "slug", "", "page slug")

	var renameSlug string
	renameCmd := &cobra.Command{
		Use:   "rename <document> <page-id> <name>",
		Short: "Rename a page",
		Args:  cobra.ExactArgs(3),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			return a.sess.RenamePage(args[1], args[2], renameSlug), nil
		}),
	}
	renameCmd.Flags().StringVar(&renameSlug, "slug", "", "new slug")

	deleteCmd := &cobra.Command{
		Use:   "delete <document> <page-id>",
		Short: "Delete a page (the last page is kept)",
		Args:  cobra.ExactArgs(2),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			return a.sess.DeletePage(args[1]), nil
		}),
	}

	seoCmd := &cobra.Command{
		Use:   "seo <document> <page-id> <title> [description]",
		Short: "Set the search title and description of a page",
		Args:  cobra.RangeArgs(3, 4),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			var desc string
			if len(args) == 4 {
				desc = args[3]
			}
			return a.sess.SetPageSEO(args[1], args[2], desc), nil
		}),
	}

	pageCmd.AddCommand(addCmd, renameCmd, deleteCmd, seoCmd)
	return []*cobra.Command{pageCmd}
}

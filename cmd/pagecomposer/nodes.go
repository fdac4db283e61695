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
	"strconv"

	"github.com/spf13/cobra"

	"pagecomposer/internal/tree"
)

// edit opens the document, applies fn and saves when fn reports a change.
func edit(a *app, fn func(cmd *cobra.Command, args []string) (bool, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Context(), args[0]); err != nil {
			return err
		}
		changed, err := fn(cmd, args)
		if err != nil {
			return err
		}
		if !changed {
			return errNoChange
		}
		return a.save(cmd.Context())
	}
}

// intoTarget maps a container node id to the id of its child list: the
// container id of a section, or the given 1-based column of a columns node.
func (a *app) intoTarget(nodeID string, column int) (string, error) {
	n := tree.FindNode(a.sess.Document().Pages, nodeID)
	if n == nil {
		return "", fmt.Errorf("node %s not found", nodeID)
	}
	if cid := n.ContainerID(); cid != "" {
		return cid, nil
	}
	if cols, ok := n.Columns(); ok {
		if column < 1 || column > len(cols) {
			return "", fmt.Errorf("column %d out of range (%s has %d)", column, nodeID, len(cols))
		}
		return cols[column-1].ID, nil
	}
	return "", fmt.Errorf("node %s is not a container", nodeID)
}

type targetFlags struct {
	into   bool
	column int
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.into, "into", false, "treat target as a container node and drop inside it")
	cmd.Flags().IntVar(&f.column, "column", 1, "column of a columns container, with --into")
}

func (f *targetFlags) resolve(a *app, target string) (string, error) {
	if !f.into || target == tree.RootContainerID {
		return target, nil
	}
	return a.intoTarget(target, f.column)
}

func nodeCommands(a *app) []*cobra.Command {
	var addTarget, moveTarget targetFlags
	addCmd := &cobra.Command{
		Use:   "add <document> <type> [target] [position]",
		Short: "Insert a new component",
		Long: `Insert a new component built from the registry defaults of <type>.

<target> is a container id, the id of a sibling (the new node is placed
right after it) or "root" for the active page. The default is "root".
With --into, <target> names a container node instead.
<position> is an index into the target list; omit it to append.`,
		Args: cobra.RangeArgs(2, 4),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			target, pos := tree.RootContainerID, -1
			if len(args) > 2 {
				t, err := addTarget.resolve(a, args[2])
				if err != nil {
					return false, err
				}
				target = t
			}
			if len(args) > 3 {
				p, err := strconv.Atoi(args[3])
				if err != nil {
					return false, fmt.Errorf("invalid position %q", args[3])
				}
				pos = p
			}
			id, ok := a.sess.Insert(args[1], target, pos)
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return ok, nil
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set <document> <node> <path> <value>",
		Short: "Set a config value on a node",
		Long: `Set a config value on a node. <path> uses dots and brackets, e.g.
"style.color" or "items[0].label". <value> is parsed as JSON and falls
back to a plain string, so both 42 and hello work.`,
		Args: cobra.ExactArgs(4),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			return a.sess.SetProperty(cmd.Context(), args[1], args[2], parseValue(args[3])), nil
		}),
	}

	globalCmd := &cobra.Command{
		Use:   "global <document> <path> <value>",
		Short: "Set a document-level setting",
		Args:  cobra.ExactArgs(3),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			return a.sess.SetGlobalSetting(args[1], parseValue(args[2])), nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <document> <node>",
		Short: "Delete a node and its subtree",
		Args:  cobra.ExactArgs(2),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			return a.sess.Delete(args[1]), nil
		}),
	}

	duplicateCmd := &cobra.Command{
		Use:   "duplicate <document> <node>",
		Short: "Clone a node next to itself with fresh ids",
		Args:  cobra.ExactArgs(2),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			id, ok := a.sess.Duplicate(args[1])
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return ok, nil
		}),
	}

	moveCmd := &cobra.Command{
		Use:   "move <document> <node> <target>",
		Short: "Move a node into a container or next to a sibling",
		Args:  cobra.ExactArgs(3),
		RunE: edit(a, func(cmd *cobra.Command, args []string) (bool, error) {
			target, err := moveTarget.resolve(a, args[2])
			if err != nil {
				return false, err
			}
			return a.sess.Move(args[1], target), nil
		}),
	}
	addTarget.register(addCmd)
	moveTarget.register(moveCmd)

	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "List registered component types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range a.reg.Types() {
				kind := "leaf"
				if a.reg.IsContainerKind(t) {
					kind = "container"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-24s %s\n", t, a.reg.Label(t), kind)
			}
		},
	}

	return []*cobra.Command{addCmd, setCmd, globalCmd, deleteCmd, duplicateCmd, moveCmd, typesCmd}
}

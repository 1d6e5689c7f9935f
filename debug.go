package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"eve-intel/internal/chatlog"
	"eve-intel/internal/graph"
	"eve-intel/internal/sde"
)

var universePath string

var routeCmd = &cobra.Command{
	Use:   "route <from> <to>",
	Short: "Print the shortest stargate route between two systems",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := loadUniverse()
		if err != nil {
			return err
		}
		from, err := findSystem(u, args[0])
		if err != nil {
			return err
		}
		to, err := findSystem(u, args[1])
		if err != nil {
			return err
		}
		r, err := u.Route(from.ID, to.ID)
		if err != nil {
			return fmt.Errorf("%s -> %s: %w", from.Name, to.Name, err)
		}
		names := make([]string, len(r.Systems))
		for i, s := range r.Systems {
			names[i] = s.Name
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, strings.Join(names, " -> "))
		fmt.Fprintf(out, "%d jumps\n", r.Distance)
		return nil
	},
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby <system> [jumps]",
	Short: "List the systems within a jump radius",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		radius := 5
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid jump count %q", args[1])
			}
			radius = n
		}
		u, err := loadUniverse()
		if err != nil {
			return err
		}
		origin, err := findSystem(u, args[0])
		if err != nil {
			return err
		}

		type entry struct {
			name  string
			jumps int
		}
		var entries []entry
		for id, jumps := range u.SystemsWithinRadius(origin.ID, radius) {
			if s, ok := u.System(id); ok {
				entries = append(entries, entry{s.Name, jumps})
			}
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].jumps != entries[j].jumps {
				return entries[i].jumps < entries[j].jumps
			}
			return entries[i].name < entries[j].name
		})
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%3d  %s\n", e.jumps, e.name)
		}
		return nil
	},
}

var headerCmd = &cobra.Command{
	Use:   "header <file>",
	Short: "Print the header and messages of a chat log file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := chatlog.Open(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-16s %s\n", chatlog.FieldChannelID+":", h.ChannelID)
		fmt.Fprintf(out, "%-16s %s\n", chatlog.FieldChannelName+":", h.ChannelName)
		fmt.Fprintf(out, "%-16s %s\n", chatlog.FieldListener+":", h.Listener)
		fmt.Fprintf(out, "%-16s %s\n", chatlog.FieldSessionStarted+":", h.SessionStarted.Format(chatlog.TimeLayout))
		fmt.Fprintf(out, "%-16s %d bytes\n", "Header length:", h.Length)

		lines, err := h.ReadNew()
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		for _, l := range lines {
			fmt.Fprintln(out, l.String())
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "eve-intel %s\n", version)
	},
}

func init() {
	for _, c := range []*cobra.Command{routeCmd, nearbyCmd} {
		c.Flags().StringVar(&universePath, "universe", "", "Universe snapshot (SQLite file or SDE directory)")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(headerCmd, versionCmd)
}

// loadUniverse loads the snapshot named by --universe or the config file.
func loadUniverse() (*graph.Universe, error) {
	path := universePath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Universe
	}
	return sde.Load(path)
}

func findSystem(u *graph.Universe, name string) (*graph.System, error) {
	s, ok := u.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", graph.ErrUnknownSystem, name)
	}
	return s, nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/workspace"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage courses",
}

var courseCreateCmd = &cobra.Command{
	Use:   "create <code> <name>",
	Short: "Create a course",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := app.Workspace.CreateCourse(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if printJSON(course) {
			return nil
		}
		fmt.Printf("Course %s created (%s)\n", course.Code, course.ID)
		return nil
	},
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer app.Close()

		courses, err := app.Workspace.ListCourses(cmd.Context())
		if err != nil {
			return err
		}
		if printJSON(courses) {
			return nil
		}
		for _, c := range courses {
			fmt.Printf("%-12s %s  %s\n", c.Code, c.ID, c.Name)
		}
		return nil
	},
}

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Manage uploaded course materials",
}

var artifactAddCmd = &cobra.Command{
	Use:   "add <course> <file>...",
	Short: "Upload files into a course",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}

		var saved []*workspace.Artifact
		for _, path := range args[1:] {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			art, created, err := app.Workspace.SaveArtifact(ctx, course.ID, filepath.Base(path), data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			saved = append(saved, art)
			if !outputJSON {
				state := "added"
				if !created {
					state = "already present"
				}
				fmt.Printf("%d\t%s\t%s\n", art.ID, art.FileName, state)
			}
		}
		printJSON(saved)
		return nil
	},
}

var artifactListCmd = &cobra.Command{
	Use:   "list <course>",
	Short: "List a course's artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		arts, err := app.Workspace.ListArtifacts(ctx, course.ID)
		if err != nil {
			return err
		}
		if printJSON(arts) {
			return nil
		}
		for _, a := range arts {
			fmt.Printf("%d\t%s\t%s\n", a.ID, a.ContentHash[:12], a.FileName)
		}
		return nil
	},
}

var artifactRemoveCmd = &cobra.Command{
	Use:   "rm <course> <id>",
	Short: "Remove an artifact and its file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		return app.Workspace.RemoveArtifact(ctx, course.ID, id)
	},
}

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Manage scope sets",
}

var scopeListCmd = &cobra.Command{
	Use:   "list <course>",
	Short: "List a course's scope sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		sets, err := app.Workspace.ListScopeSets(ctx, course.ID)
		if err != nil {
			return err
		}
		if printJSON(sets) {
			return nil
		}
		for _, s := range sets {
			marker := " "
			if s.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %d\t%s\t%v\n", marker, s.ID, s.Name, []int64(s.ArtifactIDs))
		}
		return nil
	},
}

var scopeCreateCmd = &cobra.Command{
	Use:   "create <course> <name>",
	Short: "Create an empty scope set",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		id, err := app.Workspace.CreateScopeSet(ctx, course.ID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("Scope set %d created\n", id)
		return nil
	},
}

var scopeRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a scope set",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		set, err := app.Workspace.RenameScopeSet(ctx, id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if set == nil {
			fmt.Printf("Scope set %d does not exist\n", id)
			return nil
		}
		if !printJSON(set) {
			fmt.Printf("Scope set %d renamed to %q\n", set.ID, set.Name)
		}
		return nil
	},
}

var scopeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a scope set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Workspace.DeleteScopeSet(ctx, id)
	},
}

var scopeSetCmd = &cobra.Command{
	Use:   "set <id> [artifact-id]...",
	Short: "Replace the artifacts of a scope set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.Workspace.ReplaceScopeSetItems(ctx, id, ids)
		if err != nil {
			return err
		}
		fmt.Printf("Scope set %d now holds %d artifact(s)\n", id, n)
		return nil
	},
}

var outputCmd = &cobra.Command{
	Use:   "output",
	Short: "Browse generated outputs",
}

var outputListCmd = &cobra.Command{
	Use:   "list <course>",
	Short: "List a course's outputs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		typ, _ := cmd.Flags().GetString("type")
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		course, err := resolveCourse(ctx, app, args[0])
		if err != nil {
			return err
		}
		outputs, err := app.Workspace.ListOutputs(ctx, course.ID, workspace.OutputType(typ))
		if err != nil {
			return err
		}
		if printJSON(outputs) {
			return nil
		}
		for _, o := range outputs {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n", o.ID, o.Type, o.Status, o.ModelUsed, o.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var outputShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		app, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer app.Close()

		out, err := app.Workspace.GetOutput(ctx, id)
		if err != nil {
			return err
		}
		if printJSON(out) {
			return nil
		}
		fmt.Printf("%s output %d (%s), scope %v\n\n%s\n", out.Type, out.ID, out.Status, []int64(out.ScopeArtifactIDs), out.Content)
		return nil
	},
}

func init() {
	courseCmd.AddCommand(courseCreateCmd, courseListCmd)
	artifactCmd.AddCommand(artifactAddCmd, artifactListCmd, artifactRemoveCmd)
	scopeCmd.AddCommand(scopeListCmd, scopeCreateCmd, scopeRenameCmd, scopeDeleteCmd, scopeSetCmd)
	outputCmd.AddCommand(outputListCmd, outputShowCmd)
	outputListCmd.Flags().String("type", "", "Filter by type (summary, graph, outline, quiz)")
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	api "github.com/studyhall/solver/api/v1alpha1"
)

var (
	createTitle       string
	createDescription string
	createSubject     string
	createCourse      string
	createKind        string
	createDueDate     string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an assignment",
	RunE: func(cmd *cobra.Command, args []string) error {
		form := api.AssignmentForm{
			Title:       createTitle,
			Description: createDescription,
			CourseName:  createCourse,
			Kind:        createKind,
		}
		if createSubject != "" {
			form.Subject = &createSubject
		}
		if createDueDate != "" {
			due, err := time.Parse(time.RFC3339, createDueDate)
			if err != nil {
				return fmt.Errorf("due date must be RFC3339: %w", err)
			}
			form.DueDate = &due
		}

		assignment, err := newClient().CreateAssignment(cmd.Context(), form)
		if err != nil {
			return err
		}
		return printJSON(assignment)
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve <assignment-id>",
	Short: "Request a solution for an assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid assignment id: %w", err)
		}

		ack, err := newClient().Solve(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(ack)
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate <assignment-id>",
	Short: "Discard the current solution and solve again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid assignment id: %w", err)
		}

		ack, err := newClient().Regenerate(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(ack)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <assignment-id>",
	Short: "Reset a stuck assignment back to pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid assignment id: %w", err)
		}

		ack, err := newClient().ResetStatus(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(ack)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <assignment-id>",
	Short: "Show an assignment and its solution when present",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid assignment id: %w", err)
		}

		c := newClient()
		assignment, err := c.GetAssignment(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := printJSON(assignment); err != nil {
			return err
		}

		if solution, err := c.GetSolution(cmd.Context(), id); err == nil {
			return printJSON(solution)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createTitle, "title", "", "Assignment title")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Assignment description")
	createCmd.Flags().StringVar(&createSubject, "subject", "", "Subject")
	createCmd.Flags().StringVar(&createCourse, "course", "", "Course name")
	createCmd.Flags().StringVar(&createKind, "kind", "", "Assignment kind")
	createCmd.Flags().StringVar(&createDueDate, "due", "", "Due date (RFC3339)")
	_ = createCmd.MarkFlagRequired("title")
	_ = createCmd.MarkFlagRequired("description")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

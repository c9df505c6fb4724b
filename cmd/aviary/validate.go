package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"

	"github.com/aviary-sh/aviary/pkg/cmd"
	"github.com/aviary-sh/aviary/pkg/log"
	"github.com/aviary-sh/aviary/pkg/models"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate stored tasks, workflows, and step configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (sqlite://path or file://dir)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: validateAction,
	}
}

func validateAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("validate")

	validate := validator.New(validator.WithRequiredStructEnabled())

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	valid := 0
	invalid := 0

	tasks, err := persistence.AutomationTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch tasks: %w", err)
	}

	fmt.Println("Validation Results:")
	fmt.Println("===================")

	for _, task := range tasks {
		fmt.Printf("\nTask: %s (%s)\n", task.Name, task.ID)

		if err := validate.Struct(task); err != nil {
			fmt.Printf("  INVALID: %v\n", err)

			invalid++

			continue
		}

		fmt.Println("  VALID")

		valid++
	}

	workflows, err := persistence.Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch workflows: %w", err)
	}

	for _, wf := range workflows {
		fmt.Printf("\nWorkflow: %s (%s)\n", wf.Name, wf.ID)

		if err := validate.Struct(wf); err != nil {
			fmt.Printf("  INVALID: %v\n", err)

			invalid++

			continue
		}

		if err := wf.Validate(); err != nil {
			fmt.Printf("  INVALID: %v\n", err)

			invalid++

			continue
		}

		fmt.Println("  VALID")

		valid++

		steps, err := persistence.WorkflowSteps(ctx, wf.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch steps for workflow %s: %w", wf.ID, err)
		}

		for _, step := range steps {
			fmt.Printf("  Step %d (%s)\n", step.Order, step.Type)

			if err := models.ValidateStepConfig(step); err != nil {
				fmt.Printf("    INVALID: %v\n", err)

				invalid++

				continue
			}

			fmt.Println("    VALID")

			valid++
		}
	}

	fmt.Printf("\nValidation Summary:\n")
	fmt.Printf("  Valid: %d\n", valid)
	fmt.Printf("  Invalid: %d\n", invalid)

	if invalid > 0 {
		return fmt.Errorf("found %d invalid records", invalid)
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
)

var (
	errNoDatabase   = errors.New("migrations require a SQL store (store.engine: postgres | sqlite)")
	errInvalidInput = errors.New("invalid input")
)

type commandLine struct {
	svc        activity.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
	catalog    []activity.Activity // seeded before any activity command
	db         *sqlx.DB            // nil for the memory engine
	engine     string
	out        io.Writer
}

func (cl *commandLine) app() *cli.Command {
	return &cli.Command{
		Name:      "admin",
		Usage:     "Manage Mergington High School activities",
		UsageText: "admin command [command options]",
		Writer:    cl.out,
		ErrWriter: cl.out,
		// errors are reported by main
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			{
				Name:   "activities",
				Usage:  "List activities and their participants",
				Action: cl.listActivities,
			},
			{
				Name:      "signup",
				Usage:     "Sign a student up for an activity",
				UsageText: "admin signup --activity NAME --email EMAIL",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "activity", Aliases: []string{"a"}, Usage: "activity name", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "student email", Required: true},
				},
				Action: cl.signup,
			},
			cl.migrateCommand(),
		},
	}
}

func (cl *commandLine) run(ctx context.Context, args []string) error {
	return cl.app().Run(ctx, args)
}

func (cl *commandLine) seed(ctx context.Context) error {
	return cl.svc.Seed(ctx, cl.catalog)
}

func (cl *commandLine) listActivities(ctx context.Context, _ *cli.Command) error {
	if err := cl.seed(ctx); err != nil {
		return err
	}
	activities, err := cl.svc.QueryAllOrdered(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cl.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSCHEDULE\tPARTICIPANTS\tSPOTS LEFT")
	for _, act := range activities {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\n", act.Name, act.Schedule, len(act.Participants), act.MaxParticipants, act.SpotsLeft())
		for _, email := range act.Participants {
			_, _ = fmt.Fprintf(w, "\t- %s\t\t\n", email)
		}
	}
	return w.Flush()
}

func (cl *commandLine) signup(ctx context.Context, cmd *cli.Command) error {
	data := activity.Signup{
		Activity: cmd.String("activity"),
		Email:    cmd.String("email"),
	}
	if err := cl.validateInput(data.Validate(cl.validate)); err != nil {
		return err
	}

	if err := cl.seed(ctx); err != nil {
		return err
	}
	reg, err := cl.svc.Signup(ctx, data)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cl.out, "Signed up %s for %s\n", reg.Email, reg.Activity)
	return nil
}

// validateInput turns validation errors into errInvalidInput, listing the translated field errors.
func (cl *commandLine) validateInput(err error) error {
	var vErrs validator.ValidationErrors
	if err == nil || !errors.As(err, &vErrs) {
		return err
	}
	fldErrs := core.TranslateErrors(vErrs, cl.translator)
	msgs := make([]string, 0, len(fldErrs))
	for fld, msg := range fldErrs {
		msgs = append(msgs, fld+": "+msg)
	}
	sort.Strings(msgs)
	return errors.Wrap(errInvalidInput, strings.Join(msgs, ", "))
}

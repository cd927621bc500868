package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/urfave/cli/v2"

	"github.com/inkworks/inkworks/internal/notifications"
	"github.com/inkworks/inkworks/internal/users"
	"github.com/inkworks/inkworks/jobs"
)

// Scanner runs a notification scan in-process.
type Scanner interface {
	Scan(ctx context.Context, now time.Time) (notifications.ScanResult, error)
}

// Enqueuer hands a scan to the worker.
type Enqueuer interface {
	EnqueueNotificationScan(ctx context.Context) (string, error)
}

// UserCreator provisions accounts.
type UserCreator interface {
	Create(ctx context.Context, in users.CreateInput) (users.User, error)
}

// Deps is opened lazily, once a command actually needs the database or the queue.
type Deps struct {
	Migrate   func(ctx context.Context) error
	Scanner   Scanner
	Enqueuer  Enqueuer
	Users     UserCreator
	Inspector jobs.QueueInspector
	Now       func() time.Time
	Close     func()
}

// Opener builds the dependencies from the environment.
type Opener func(ctx context.Context) (*Deps, error)

func newApp(open Opener, stdin io.Reader, stdout io.Writer) *cli.App {
	withDeps := func(fn func(c *cli.Context, deps *Deps) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			deps, err := open(c.Context)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if deps.Close != nil {
				defer deps.Close()
			}
			return fn(c, deps)
		}
	}

	return &cli.App{
		Name:      "inkctl",
		Usage:     "operate the inkworks back office",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stdout,
		// main reports the error and picks the exit code.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply pending database migrations",
				Action: withDeps(func(c *cli.Context, deps *Deps) error {
					if err := deps.Migrate(c.Context); err != nil {
						return cli.Exit(fmt.Sprintf("migrate: %v", err), 1)
					}
					_, err := fmt.Fprintln(c.App.Writer, "migrations applied")
					return err
				}),
			},
			{
				Name:  "scan-notifications",
				Usage: "generate low stock and overdue order notifications",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "enqueue", Usage: "hand the scan to the worker instead of running it here"},
				},
				Action: withDeps(scanNotifications),
			},
			{
				Name:  "create-user",
				Usage: "create a staff account or a superuser",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "password", EnvVars: []string{"INKCTL_PASSWORD"}, Usage: "read from stdin when empty"},
					&cli.StringSliceFlag{Name: "group", Usage: "Admin, Financeiro, Atendimento or Producao; repeatable"},
					&cli.BoolFlag{Name: "superuser"},
				},
				Action: withDeps(createUser),
			},
			{
				Name:  "queue",
				Usage: "show the job queue state",
				Action: withDeps(func(c *cli.Context, deps *Deps) error {
					info, err := deps.Inspector.GetQueueInfo(jobs.QueueDefault)
					if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
						return cli.Exit(fmt.Sprintf("queue: %v", err), 1)
					}
					out := map[string]any{"queue": jobs.QueueDefault, "pending": 0, "active": 0, "scheduled": 0, "retry": 0}
					if info != nil {
						out["pending"], out["active"], out["scheduled"], out["retry"] = info.Pending, info.Active, info.Scheduled, info.Retry
					}
					return json.NewEncoder(c.App.Writer).Encode(out)
				}),
			},
		},
	}
}

func scanNotifications(c *cli.Context, deps *Deps) error {
	if c.Bool("enqueue") {
		id, err := deps.Enqueuer.EnqueueNotificationScan(c.Context)
		if err != nil {
			return cli.Exit(fmt.Sprintf("enqueue scan: %v", err), 1)
		}
		_, err = fmt.Fprintf(c.App.Writer, "scan queued as %s\n", id)
		return err
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	res, err := deps.Scanner.Scan(c.Context, now())
	if err != nil {
		return cli.Exit(fmt.Sprintf("scan: %v", err), 1)
	}
	if res.Skipped {
		_, err = fmt.Fprintln(c.App.Writer, "no active superuser to notify, scan skipped")
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "created %d, resurfaced %d\n", res.Created, res.Resurfaced)
	return err
}

func createUser(c *cli.Context, deps *Deps) error {
	password := c.String("password")
	if password == "" {
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return cli.Exit(fmt.Sprintf("read password: %v", err), 1)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	u, err := deps.Users.Create(c.Context, users.CreateInput{
		Username:  c.String("username"),
		Email:     c.String("email"),
		Name:      c.String("name"),
		Password:  password,
		Groups:    c.StringSlice("group"),
		Superuser: c.Bool("superuser"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("create user: %v", err), 1)
	}
	kind := "user"
	if u.IsSuperuser {
		kind = "superuser"
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s %s created with id %d\n", kind, u.Username, u.ID)
	return err
}

// Command ermsctl drives a running ERMS API from the shell.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/client"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

const usage = `usage: ermsctl [--server URL] [--token TOKEN] <command> [flags]

commands:
  login        exchange email/password for a token
  technicians  list the technician roster
  available    list technicians that can take an assignment
  assign       assign a technician to a repair request
  assignments  list assignments, optionally for one technician
  report       submit a service report for a repair request
  feedback     rate a service report
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintln(os.Stderr, "ermsctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("ermsctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	server := global.String("server", envOr("ERMS_SERVER", "http://localhost:8080"), "API base URL")
	token := global.String("token", os.Getenv("ERMS_TOKEN"), "bearer token")
	timeout := global.Duration("timeout", 30*time.Second, "overall timeout")
	if err := global.Parse(args); err != nil {
		return errUsage
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c := client.New(*server, *token, zap.NewNop())
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "login":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", os.Getenv("ERMS_PASSWORD"), "account password")
		if err := fs.Parse(cmdArgs); err != nil || *email == "" {
			return errUsage
		}
		tok, err := c.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, tok)
		return err

	case "technicians":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		page := fs.Int("page", 1, "page number")
		size := fs.Int("page-size", 50, "page size")
		if err := fs.Parse(cmdArgs); err != nil {
			return errUsage
		}
		users, err := c.Technicians(ctx, *page, *size)
		if err != nil {
			return err
		}
		return printJSON(out, users)

	case "available":
		users, err := c.AvailableTechnicians(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, users)

	case "assign":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		req := fs.Uint("request", 0, "repair request id")
		tech := fs.Uint("technician", 0, "technician user id")
		if err := fs.Parse(cmdArgs); err != nil || *req == 0 || *tech == 0 {
			return errUsage
		}
		res, err := c.Assign(ctx, *req, *tech)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, res.Message)
		return err

	case "assignments":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		tech := fs.Uint("technician", 0, "only this technician")
		if err := fs.Parse(cmdArgs); err != nil {
			return errUsage
		}
		list, err := c.Assignments(ctx, *tech)
		if err != nil {
			return err
		}
		return printJSON(out, list)

	case "report":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		req := fs.Uint("request", 0, "repair request id")
		assignedTo := fs.Uint("assigned-to", 0, "technician id, defaults to the current assignee")
		performed := fs.String("performed", "", "service performed")
		parts := fs.String("parts", "", "parts used")
		comments := fs.String("comments", "", "technician comments")
		rating := fs.String("rating", "", "result rating, e.g. 95%")
		tests := fs.StringArray("test", nil, "test result as name=result, repeatable")
		if err := fs.Parse(cmdArgs); err != nil || *req == 0 {
			return errUsage
		}
		results, err := parseTests(*tests)
		if err != nil {
			return err
		}
		report, err := c.SubmitReport(ctx, client.ReportInput{
			RepairRequestID:    *req,
			AssignedTo:         *assignedTo,
			ServicePerformed:   *performed,
			PartsUsed:          *parts,
			TechnicianComments: *comments,
			ResultRating:       *rating,
			TestResults:        results,
		})
		if err != nil {
			return err
		}
		return printJSON(out, report)

	case "feedback":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		in := client.FeedbackInput{}
		fs.UintVar(&in.ServiceReportID, "report", 0, "service report id")
		fs.StringVar(&in.Courtesy, "courtesy", "", "bucket: 100%, 90%-99%, 70%-90%, <70%")
		fs.StringVar(&in.Communication, "communication", "", "bucket")
		fs.StringVar(&in.Friendliness, "friendliness", "", "bucket")
		fs.StringVar(&in.Professionalism, "professionalism", "", "bucket")
		fs.StringVar(&in.OverallSatisfaction, "overall", "", "bucket")
		fs.StringVar(&in.Comments, "comments", "", "free text")
		if err := fs.Parse(cmdArgs); err != nil || in.ServiceReportID == 0 {
			return errUsage
		}
		fb, err := c.SubmitFeedback(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(out, fb)
	}

	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func parseTests(raw []string) ([]models.TestResult, error) {
	out := make([]models.TestResult, 0, len(raw))
	for _, r := range raw {
		name, result, ok := strings.Cut(r, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("test %q: want name=result", r)
		}
		out = append(out, models.TestResult{Test: name, Result: result})
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

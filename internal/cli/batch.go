package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dejobratic/orderflow/internal/orders/app"
	"github.com/dejobratic/orderflow/internal/orders/domain"
)

const maxBatchLineBytes = 1 << 20

type batchLine struct {
	LineNo   int          `json:"line_no"`
	Mobile   string       `json:"mobile"`
	Message  string       `json:"message"`
	Response app.Response `json:"response"`
}

type batchSummary struct {
	LinesProcessed int `json:"lines_processed"`
	LinesSucceeded int `json:"lines_succeeded"`
	LinesFailed    int `json:"lines_failed"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(root *RootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Place one order per input line of the form mobile|message",
		Long: `Place one order per input line of the form mobile|message.

Blank lines and lines starting with # are skipped. Each processed line prints
one JSON object, followed by a batch_summary object.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, closeInput, err := openBatchInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeInput()

			return root.runWithService(cmd, func(ctx context.Context, svc *app.Service) error {
				return runBatch(ctx, svc, r, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input file, or - for stdin")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func openBatchInput(cmd *cobra.Command, input string) (io.Reader, func(), error) {
	if input == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "open batch input", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func runBatch(ctx context.Context, svc *app.Service, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBatchLineBytes)

	var (
		summary       batchSummary
		hasValidation bool
		hasFailure    bool
		lineNo        int
	)

	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSuffix(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		line := batchLine{LineNo: lineNo}
		mobile, message, ok := strings.Cut(raw, "|")
		if ok {
			line.Mobile, line.Message = mobile, message
			line.Response = svc.Place(ctx, mobile, message)
		} else {
			line.Mobile = raw
			line.Response = app.Response{
				Command: app.CommandPlace,
				Error: &app.ErrorBody{
					Code:    domain.CodeParseError,
					Message: "Invalid batch line format.",
					Details: map[string]any{"line_no": lineNo},
				},
			}
		}

		summary.LinesProcessed++
		if line.Response.OK {
			summary.LinesSucceeded++
		} else {
			summary.LinesFailed++
			if line.Response.ErrorCode().IsClientInput() {
				hasValidation = true
			} else {
				hasFailure = true
			}
		}

		if err := writeJSON(w, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("read batch input after line %d", lineNo), err)
	}

	if err := writeJSON(w, app.Response{OK: true, Command: "batch_summary", Data: summary}); err != nil {
		return err
	}

	switch {
	case hasFailure:
		return &ExitError{Code: ExitFailure}
	case hasValidation:
		return &ExitError{Code: ExitValidation}
	default:
		return nil
	}
}
